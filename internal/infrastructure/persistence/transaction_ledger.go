package persistence

import (
	"context"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransactionLedger reads payment allocations from the ledger tables
type GormTransactionLedger struct {
	db *gorm.DB
}

// NewGormTransactionLedger creates a new GormTransactionLedger
func NewGormTransactionLedger(db *gorm.DB) *GormTransactionLedger {
	return &GormTransactionLedger{db: db}
}

// SumAllocatedAmount sums what non-voided, bank-attached transactions
// allocate to the document
func (l *GormTransactionLedger) SumAllocatedAmount(ctx context.Context, documentID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := l.db.WithContext(ctx).
		Table("transaction_allocations AS a").
		Select("COALESCE(SUM(a.amount), 0)").
		Joins("JOIN transactions t ON t.id = a.transaction_id").
		Where("a.document_id = ? AND t.voided = ? AND t.bank_id IS NOT NULL", documentID, false).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return valueobject.Normalize(sum), nil
}

var _ invoicing.TransactionLedger = (*GormTransactionLedger)(nil)
