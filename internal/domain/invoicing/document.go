package invoicing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeDocument is the aggregate type name used in events
const AggregateTypeDocument = "Document"

// Reference prefixes
const (
	PrefixProvisional = "PROV"
	PrefixSupplier    = "FF"
	PrefixInvoice     = "FA"
	PrefixCreditNote  = "AV"
)

// DefaultPaymentMode applies when a document carries no payment mode
const DefaultPaymentMode = "TIP"

// History modes
const (
	HistoryModeCreated  = "created"
	HistoryModeNumbered = "numbered"
	HistoryModeStatus   = "status"
	HistoryModeRemoved  = "removed"
)

// LineType distinguishes product lines from free text and subtotal rows
type LineType string

const (
	LineTypeProduct  LineType = "product"
	LineTypeService  LineType = "service"
	LineTypeComment  LineType = "comment"
	LineTypeSubtotal LineType = "subtotal"
)

// Line is a document line. Monetary fields are normalized on every save.
type Line struct {
	ID               uuid.UUID       `json:"id"`
	Position         int             `json:"position"`
	Type             LineType        `json:"type"`
	ProductRef       string          `json:"product_ref,omitempty"`
	Description      string          `json:"description,omitempty"`
	Quantity         decimal.Decimal `json:"qty"`
	UnitPriceExclTax decimal.Decimal `json:"pu_ht"`
	DiscountPercent  decimal.Decimal `json:"discount"`
	TotalExclTax     decimal.Decimal `json:"total_ht"`
}

// Normalize rounds the monetary fields of the line
func (l *Line) Normalize() {
	l.UnitPriceExclTax = valueobject.Normalize(l.UnitPriceExclTax)
	l.TotalExclTax = valueobject.Normalize(l.TotalExclTax)
}

// DiscountLine is a percent/value pair; the value is the monetary amount
type DiscountLine struct {
	Percent decimal.Decimal `json:"percent"`
	Value   decimal.Decimal `json:"value"`
}

// HistoryEntry records one change made to a document
type HistoryEntry struct {
	At      time.Time `json:"date"`
	Mode    string    `json:"mode"`
	Status  Status    `json:"status,omitempty"`
	Message string    `json:"msg,omitempty"`
}

// History is the append-only change log of a document, stored as JSONB
type History []HistoryEntry

// Value implements driver.Valuer interface for GORM to store as JSONB
func (h History) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (h *History) Scan(value interface{}) error {
	if value == nil {
		*h = History{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan History: unsupported type")
	}

	if len(bytes) == 0 {
		*h = History{}
		return nil
	}
	return json.Unmarshal(bytes, h)
}

// Document is a sales invoice, credit note or supplier invoice
type Document struct {
	shared.BaseAggregateRoot
	Ref                  string
	SequenceNumber       int64
	ForSales             bool
	Status               Status
	IssueDate            time.Time
	DueDate              time.Time
	PaymentTermsCode     PaymentTermsCode
	PaymentModeCode      string
	EntityAccountingRef  string
	Currency             valueobject.Currency
	TotalExclTax         decimal.Decimal
	TotalInclTax         decimal.Decimal
	TotalPaid            decimal.Decimal
	Correction           decimal.Decimal
	ShippingExclTax      decimal.Decimal
	Discount             DiscountLine
	EarlyPaymentDiscount DiscountLine
	Lines                []Line
	History              History
	IsRemoved            bool
}

// NewDocument creates an unnumbered draft document
func NewDocument(forSales bool, issueDate time.Time, terms PaymentTermsCode) *Document {
	if terms == "" {
		terms = DefaultPaymentTerms
	}
	return &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ForSales:          forSales,
		Status:            StatusDraft,
		IssueDate:         issueDate,
		DueDate:           issueDate,
		PaymentTermsCode:  terms,
		PaymentModeCode:   DefaultPaymentMode,
		Currency:          valueobject.DefaultCurrency,
		History:           History{},
	}
}

// HasProvisionalRef reports whether the reference is still provisional
func (d *Document) HasProvisionalRef() bool {
	return strings.HasPrefix(d.Ref, PrefixProvisional)
}

// IsCreditNote reports whether the document carries a negative total
func (d *Document) IsCreditNote() bool {
	return d.TotalInclTax.IsNegative()
}

// Normalize rounds every monetary field of the document and its lines
func (d *Document) Normalize() {
	d.TotalExclTax = valueobject.Normalize(d.TotalExclTax)
	d.TotalInclTax = valueobject.Normalize(d.TotalInclTax)
	d.TotalPaid = valueobject.Normalize(d.TotalPaid)
	d.Correction = valueobject.Normalize(d.Correction)
	d.ShippingExclTax = valueobject.Normalize(d.ShippingExclTax)
	d.Discount.Value = valueobject.Normalize(d.Discount.Value)
	d.EarlyPaymentDiscount.Value = valueobject.Normalize(d.EarlyPaymentDiscount.Value)
	for i := range d.Lines {
		d.Lines[i].Normalize()
	}
}

// SetTotals replaces the externally computed totals
func (d *Document) SetTotals(exclTax, inclTax decimal.Decimal) {
	d.TotalExclTax = valueobject.Normalize(exclTax)
	d.TotalInclTax = valueobject.Normalize(inclTax)
	d.Touch()
}

// ReplaceLines replaces all lines, assigning ids and positions
func (d *Document) ReplaceLines(lines []Line) {
	d.Lines = make([]Line, len(lines))
	for i, l := range lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.Position = i + 1
		if l.Type == "" {
			l.Type = LineTypeProduct
		}
		l.Normalize()
		d.Lines[i] = l
	}
	d.Touch()
}

// AddHistory appends an entry to the change log
func (d *Document) AddHistory(mode, message string) {
	d.History = append(d.History, HistoryEntry{
		At:      time.Now(),
		Mode:    mode,
		Status:  d.Status,
		Message: message,
	})
}

// Validate moves a draft with a non-zero total to NOT_PAID. The next save
// promotes its provisional reference.
func (d *Document) Validate() error {
	if d.IsRemoved {
		return shared.NewDomainError("DOCUMENT_REMOVED", "Cannot validate a removed document")
	}
	if d.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Can only validate draft documents")
	}
	if d.TotalInclTax.IsZero() {
		return shared.NewDomainError("ZERO_TOTAL", "Cannot validate a document with a zero total")
	}
	d.Status = StatusNotPaid
	d.AddHistory(HistoryModeStatus, "validated")
	d.Touch()
	return nil
}

// Cancel cancels a document that has not been fully paid
func (d *Document) Cancel(reason string) error {
	switch d.Status {
	case StatusCanceled:
		return shared.NewDomainError("INVALID_STATE", "Document is already canceled")
	case StatusPaid, StatusPaidBack, StatusConvertedToReduc:
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a settled document")
	}
	d.Status = StatusCanceled
	d.AddHistory(HistoryModeStatus, reason)
	d.Touch()
	return nil
}

// ConvertToReduction turns an unsettled credit note into a customer discount
func (d *Document) ConvertToReduction() error {
	if !d.IsCreditNote() {
		return shared.NewDomainError("NOT_A_CREDIT_NOTE", "Only credit notes can be converted to a reduction")
	}
	if d.Status == StatusDraft || d.Status == StatusCanceled || d.Status == StatusConvertedToReduc {
		return shared.NewDomainError("INVALID_STATE", "Credit note cannot be converted in its current state")
	}
	d.Status = StatusConvertedToReduc
	d.AddHistory(HistoryModeStatus, "converted to reduction")
	d.Touch()
	return nil
}

// EventSourceRemoval is the source recorded on the event raised by MarkRemoved
const EventSourceRemoval = "document.remove"

// MarkRemoved flags the document as removed and records a PaymentChanged
// event, so reconciliation zeroes its totals once the removal is saved
func (d *Document) MarkRemoved() {
	if d.IsRemoved {
		return
	}
	d.IsRemoved = true
	d.AddHistory(HistoryModeRemoved, "")
	d.AddDomainEvent(NewPaymentChangedEvent(d.ID, EventSourceRemoval))
	d.Touch()
}

// AmountDue returns the part of the total not yet covered by payments
func (d *Document) AmountDue() valueobject.Money {
	m, err := valueobject.NewMoney(d.TotalInclTax.Sub(d.TotalPaid), d.Currency)
	if err != nil {
		return valueobject.Zero(valueobject.DefaultCurrency)
	}
	return m
}
