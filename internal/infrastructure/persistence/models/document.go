package models

import (
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate
type DocumentModel struct {
	AggregateModel
	Ref                 string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	SequenceNumber      int64               `gorm:"not null;default:0"`
	ForSales            bool                `gorm:"not null;index"`
	Status              invoicing.Status    `gorm:"type:varchar(30);not null;index"`
	IssueDate           time.Time           `gorm:"not null;index"`
	DueDate             time.Time           `gorm:"not null"`
	PaymentTermsCode    string              `gorm:"type:varchar(30);not null"`
	PaymentModeCode     string              `gorm:"type:varchar(30);not null"`
	EntityAccountingRef string              `gorm:"type:varchar(20);not null;default:''"`
	Currency            string              `gorm:"type:varchar(3);not null"`
	TotalExclTax        decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	TotalInclTax        decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	TotalPaid           decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Correction          decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingExclTax     decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountPercent     decimal.Decimal     `gorm:"type:decimal(7,4);not null;default:0"`
	DiscountValue       decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	EarlyPaymentPercent decimal.Decimal     `gorm:"type:decimal(7,4);not null;default:0"`
	EarlyPaymentValue   decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	History             invoicing.History   `gorm:"type:jsonb;not null"`
	IsRemoved           bool                `gorm:"not null;default:false;index"`
	Lines               []DocumentLineModel `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// DocumentLineModel is the persistence model for a document line
type DocumentLineModel struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey"`
	DocumentID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	Position         int                `gorm:"not null"`
	Type             invoicing.LineType `gorm:"type:varchar(20);not null"`
	ProductRef       string             `gorm:"type:varchar(100)"`
	Description      string             `gorm:"type:text"`
	Quantity         decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPriceExclTax decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountPercent  decimal.Decimal    `gorm:"type:decimal(7,4);not null;default:0"`
	TotalExclTax     decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "document_lines"
}

// DocumentModelFromDomain creates a persistence model from a domain document
func DocumentModelFromDomain(d *invoicing.Document) *DocumentModel {
	m := &DocumentModel{
		Ref:                 d.Ref,
		SequenceNumber:      d.SequenceNumber,
		ForSales:            d.ForSales,
		Status:              d.Status,
		IssueDate:           d.IssueDate,
		DueDate:             d.DueDate,
		PaymentTermsCode:    string(d.PaymentTermsCode),
		PaymentModeCode:     d.PaymentModeCode,
		EntityAccountingRef: d.EntityAccountingRef,
		Currency:            string(d.Currency),
		TotalExclTax:        d.TotalExclTax,
		TotalInclTax:        d.TotalInclTax,
		TotalPaid:           d.TotalPaid,
		Correction:          d.Correction,
		ShippingExclTax:     d.ShippingExclTax,
		DiscountPercent:     d.Discount.Percent,
		DiscountValue:       d.Discount.Value,
		EarlyPaymentPercent: d.EarlyPaymentDiscount.Percent,
		EarlyPaymentValue:   d.EarlyPaymentDiscount.Value,
		History:             d.History,
		IsRemoved:           d.IsRemoved,
	}
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	if m.History == nil {
		m.History = invoicing.History{}
	}
	m.Lines = LineModelsFromDomain(d.ID, d.Lines)
	return m
}

// LineModelsFromDomain converts domain lines to persistence models
func LineModelsFromDomain(documentID uuid.UUID, lines []invoicing.Line) []DocumentLineModel {
	out := make([]DocumentLineModel, len(lines))
	for i, l := range lines {
		out[i] = DocumentLineModel{
			ID:               l.ID,
			DocumentID:       documentID,
			Position:         l.Position,
			Type:             l.Type,
			ProductRef:       l.ProductRef,
			Description:      l.Description,
			Quantity:         l.Quantity,
			UnitPriceExclTax: l.UnitPriceExclTax,
			DiscountPercent:  l.DiscountPercent,
			TotalExclTax:     l.TotalExclTax,
		}
		if out[i].ID == uuid.Nil {
			out[i].ID = uuid.New()
		}
	}
	return out
}

// ToDomain converts the persistence model to a domain document
func (m *DocumentModel) ToDomain() *invoicing.Document {
	d := &invoicing.Document{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		Ref:                 m.Ref,
		SequenceNumber:      m.SequenceNumber,
		ForSales:            m.ForSales,
		Status:              m.Status,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		PaymentTermsCode:    invoicing.PaymentTermsCode(m.PaymentTermsCode),
		PaymentModeCode:     m.PaymentModeCode,
		EntityAccountingRef: m.EntityAccountingRef,
		Currency:            valueobject.Currency(m.Currency),
		TotalExclTax:        m.TotalExclTax,
		TotalInclTax:        m.TotalInclTax,
		TotalPaid:           m.TotalPaid,
		Correction:          m.Correction,
		ShippingExclTax:     m.ShippingExclTax,
		Discount:            invoicing.DiscountLine{Percent: m.DiscountPercent, Value: m.DiscountValue},
		History:             m.History,
		IsRemoved:           m.IsRemoved,
		Lines:               make([]invoicing.Line, len(m.Lines)),
	}
	d.EarlyPaymentDiscount = invoicing.DiscountLine{Percent: m.EarlyPaymentPercent, Value: m.EarlyPaymentValue}
	for i, l := range m.Lines {
		d.Lines[i] = invoicing.Line{
			ID:               l.ID,
			Position:         l.Position,
			Type:             l.Type,
			ProductRef:       l.ProductRef,
			Description:      l.Description,
			Quantity:         l.Quantity,
			UnitPriceExclTax: l.UnitPriceExclTax,
			DiscountPercent:  l.DiscountPercent,
			TotalExclTax:     l.TotalExclTax,
		}
	}
	return d
}

// ToSnapshot converts the reconciliation columns of the model
func (m *DocumentModel) ToSnapshot() *invoicing.ReconciliationSnapshot {
	return &invoicing.ReconciliationSnapshot{
		ID:           m.ID,
		Status:       m.Status,
		TotalInclTax: m.TotalInclTax,
		TotalPaid:    m.TotalPaid,
		IsRemoved:    m.IsRemoved,
		Version:      m.Version,
	}
}
