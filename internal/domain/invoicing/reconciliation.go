package invoicing

import (
	"context"

	"github.com/erp/invoicing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationSnapshot is the slice of a document reconciliation reads
type ReconciliationSnapshot struct {
	ID           uuid.UUID
	Status       Status
	TotalInclTax decimal.Decimal
	TotalPaid    decimal.Decimal
	IsRemoved    bool
	Version      int
}

// DecideStatus derives the payment status from the document total and the
// sum of its payments. Both are normalized before comparison:
//
//	paid >= total       -> PAID
//	paid <= 0           -> NOT_PAID
//	otherwise           -> PAID_PARTIALLY
func DecideStatus(total, paid decimal.Decimal) Status {
	total = valueobject.Normalize(total)
	paid = valueobject.Normalize(paid)
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.LessThanOrEqual(decimal.Zero):
		return StatusNotPaid
	default:
		return StatusPaidPartially
	}
}

// NeedsUpdate reports whether applying status and paid to the snapshot would
// change anything
func (s *ReconciliationSnapshot) NeedsUpdate(status Status, paid decimal.Decimal) bool {
	return s.Status != status || !s.TotalPaid.Equal(valueobject.Normalize(paid))
}

// DocumentLocker serializes work on a single document. Lock blocks until the
// lock is held or ctx is done; the returned func releases it.
type DocumentLocker interface {
	Lock(ctx context.Context, documentID uuid.UUID) (unlock func(), err error)
}
