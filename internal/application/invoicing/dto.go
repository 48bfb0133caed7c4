package invoicing

import (
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRequest is one document line in a create or update request
type LineRequest struct {
	Type             string          `json:"type" binding:"omitempty,oneof=product service comment subtotal"`
	ProductRef       string          `json:"product_ref" binding:"max=100"`
	Description      string          `json:"description" binding:"max=2000"`
	Quantity         decimal.Decimal `json:"qty"`
	UnitPriceExclTax decimal.Decimal `json:"pu_ht"`
	DiscountPercent  decimal.Decimal `json:"discount"`
	TotalExclTax     decimal.Decimal `json:"total_ht"`
}

// DiscountRequest is a percent/value discount pair
type DiscountRequest struct {
	Percent decimal.Decimal `json:"percent"`
	Value   decimal.Decimal `json:"value"`
}

// CreateDocumentRequest represents a request to create a document. Totals
// are computed by the caller; they are only normalized here.
type CreateDocumentRequest struct {
	ForSales             bool             `json:"for_sales"`
	IssueDate            time.Time        `json:"issue_date" binding:"required"`
	PaymentTermsCode     string           `json:"payment_terms" binding:"max=20"`
	PaymentModeCode      string           `json:"payment_mode" binding:"max=20"`
	EntityAccountingRef  string           `json:"entity_ref" binding:"max=10"`
	Currency             string           `json:"currency" binding:"omitempty,iso4217"`
	TotalExclTax         decimal.Decimal  `json:"total_ht"`
	TotalInclTax         decimal.Decimal  `json:"total_ttc"`
	Correction           decimal.Decimal  `json:"correction"`
	ShippingExclTax      decimal.Decimal  `json:"shipping_ht"`
	Discount             *DiscountRequest `json:"discount"`
	EarlyPaymentDiscount *DiscountRequest `json:"early_payment_discount"`
	Lines                []LineRequest    `json:"lines" binding:"dive"`
}

// UpdateDocumentRequest represents a partial update. Version, when set, must
// match the stored version.
type UpdateDocumentRequest struct {
	Version              int              `json:"version"`
	IssueDate            *time.Time       `json:"issue_date"`
	PaymentTermsCode     *string          `json:"payment_terms" binding:"omitempty,max=20"`
	PaymentModeCode      *string          `json:"payment_mode" binding:"omitempty,max=20"`
	EntityAccountingRef  *string          `json:"entity_ref" binding:"omitempty,max=10"`
	TotalExclTax         *decimal.Decimal `json:"total_ht"`
	TotalInclTax         *decimal.Decimal `json:"total_ttc"`
	Correction           *decimal.Decimal `json:"correction"`
	ShippingExclTax      *decimal.Decimal `json:"shipping_ht"`
	Discount             *DiscountRequest `json:"discount"`
	EarlyPaymentDiscount *DiscountRequest `json:"early_payment_discount"`
	Lines                *[]LineRequest   `json:"lines" binding:"omitempty,dive"`
}

// ListDocumentsFilter holds listing query parameters
type ListDocumentsFilter struct {
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
	Search         string     `form:"search"`
	ForSales       *bool      `form:"for_sales"`
	Status         string     `form:"status"`
	IssuedFrom     *time.Time `form:"issued_from" time_format:"2006-01-02"`
	IssuedTo       *time.Time `form:"issued_to" time_format:"2006-01-02"`
	IncludeRemoved bool       `form:"include_removed"`
}

// LineResponse represents a document line in API responses
type LineResponse struct {
	ID               uuid.UUID       `json:"id"`
	Position         int             `json:"position"`
	Type             string          `json:"type"`
	ProductRef       string          `json:"product_ref,omitempty"`
	Description      string          `json:"description,omitempty"`
	Quantity         decimal.Decimal `json:"qty"`
	UnitPriceExclTax decimal.Decimal `json:"pu_ht"`
	DiscountPercent  decimal.Decimal `json:"discount"`
	TotalExclTax     decimal.Decimal `json:"total_ht"`
}

// StatusViewResponse is the display status of a document
type StatusViewResponse struct {
	Stored    string `json:"stored"`
	Displayed string `json:"displayed"`
	Label     string `json:"label"`
	Style     string `json:"css"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID                  uuid.UUID                `json:"id"`
	Ref                 string                   `json:"ref"`
	SequenceNumber      int64                    `json:"sequence_number"`
	ForSales            bool                     `json:"for_sales"`
	Status              StatusViewResponse       `json:"status"`
	IssueDate           time.Time                `json:"issue_date"`
	DueDate             time.Time                `json:"due_date"`
	PaymentTermsCode    string                   `json:"payment_terms"`
	PaymentModeCode     string                   `json:"payment_mode"`
	EntityAccountingRef string                   `json:"entity_ref,omitempty"`
	Currency            string                   `json:"currency"`
	TotalExclTax        decimal.Decimal          `json:"total_ht"`
	TotalInclTax        decimal.Decimal          `json:"total_ttc"`
	TotalPaid           decimal.Decimal          `json:"total_paid"`
	AmountDue           decimal.Decimal          `json:"amount_due"`
	Correction          decimal.Decimal          `json:"correction"`
	ShippingExclTax     decimal.Decimal          `json:"shipping_ht"`
	Lines               []LineResponse           `json:"lines"`
	History             []invoicing.HistoryEntry `json:"history"`
	IsRemoved           bool                     `json:"is_removed"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
	Version             int                      `json:"version"`
}

// DocumentListResponse represents a list item for documents
type DocumentListResponse struct {
	ID           uuid.UUID          `json:"id"`
	Ref          string             `json:"ref"`
	ForSales     bool               `json:"for_sales"`
	Status       StatusViewResponse `json:"status"`
	IssueDate    time.Time          `json:"issue_date"`
	DueDate      time.Time          `json:"due_date"`
	TotalInclTax decimal.Decimal    `json:"total_ttc"`
	TotalPaid    decimal.Decimal    `json:"total_paid"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ReconcileResult reports what one reconciliation run did
type ReconcileResult struct {
	DocumentID uuid.UUID        `json:"document_id"`
	Outcome    string           `json:"outcome"`
	Status     invoicing.Status `json:"status,omitempty"`
	TotalPaid  decimal.Decimal  `json:"total_paid"`
	Attempts   int              `json:"attempts"`
}

// ToStatusViewResponse converts a derived status view
func ToStatusViewResponse(v invoicing.StatusView) StatusViewResponse {
	return StatusViewResponse{
		Stored:    v.Stored.String(),
		Displayed: v.Displayed.String(),
		Label:     v.Label,
		Style:     v.Style,
	}
}

// ToDocumentResponse converts a domain document
func ToDocumentResponse(d *invoicing.Document, view invoicing.StatusView) DocumentResponse {
	lines := make([]LineResponse, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = LineResponse{
			ID:               l.ID,
			Position:         l.Position,
			Type:             string(l.Type),
			ProductRef:       l.ProductRef,
			Description:      l.Description,
			Quantity:         l.Quantity,
			UnitPriceExclTax: l.UnitPriceExclTax,
			DiscountPercent:  l.DiscountPercent,
			TotalExclTax:     l.TotalExclTax,
		}
	}
	history := d.History
	if history == nil {
		history = invoicing.History{}
	}
	return DocumentResponse{
		ID:                  d.ID,
		Ref:                 d.Ref,
		SequenceNumber:      d.SequenceNumber,
		ForSales:            d.ForSales,
		Status:              ToStatusViewResponse(view),
		IssueDate:           d.IssueDate,
		DueDate:             d.DueDate,
		PaymentTermsCode:    string(d.PaymentTermsCode),
		PaymentModeCode:     d.PaymentModeCode,
		EntityAccountingRef: d.EntityAccountingRef,
		Currency:            string(d.Currency),
		TotalExclTax:        d.TotalExclTax,
		TotalInclTax:        d.TotalInclTax,
		TotalPaid:           d.TotalPaid,
		AmountDue:           d.AmountDue().Amount(),
		Correction:          d.Correction,
		ShippingExclTax:     d.ShippingExclTax,
		Lines:               lines,
		History:             history,
		IsRemoved:           d.IsRemoved,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		Version:             d.Version,
	}
}

// ToDocumentListResponse converts a domain document into a list item
func ToDocumentListResponse(d *invoicing.Document, view invoicing.StatusView) DocumentListResponse {
	return DocumentListResponse{
		ID:           d.ID,
		Ref:          d.Ref,
		ForSales:     d.ForSales,
		Status:       ToStatusViewResponse(view),
		IssueDate:    d.IssueDate,
		DueDate:      d.DueDate,
		TotalInclTax: d.TotalInclTax,
		TotalPaid:    d.TotalPaid,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (r *DiscountRequest) toDomain() invoicing.DiscountLine {
	if r == nil {
		return invoicing.DiscountLine{}
	}
	return invoicing.DiscountLine{Percent: r.Percent, Value: r.Value}
}

func toDomainLines(reqs []LineRequest) []invoicing.Line {
	lines := make([]invoicing.Line, len(reqs))
	for i, r := range reqs {
		lines[i] = invoicing.Line{
			Type:             invoicing.LineType(r.Type),
			ProductRef:       r.ProductRef,
			Description:      r.Description,
			Quantity:         r.Quantity,
			UnitPriceExclTax: r.UnitPriceExclTax,
			DiscountPercent:  r.DiscountPercent,
			TotalExclTax:     r.TotalExclTax,
		}
	}
	return lines
}

func (f ListDocumentsFilter) toDomain() invoicing.DocumentFilter {
	df := invoicing.DocumentFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   f.Search,
		},
		ForSales:       f.ForSales,
		IssuedFrom:     f.IssuedFrom,
		IssuedTo:       f.IssuedTo,
		IncludeRemoved: f.IncludeRemoved,
	}
	if f.Status != "" {
		s := invoicing.Status(f.Status)
		df.Status = &s
	}
	return df
}
