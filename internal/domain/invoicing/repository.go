package invoicing

import (
	"context"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentFilter defines filtering options for document queries
type DocumentFilter struct {
	shared.Filter
	ForSales       *bool
	Status         *Status
	IssuedFrom     *time.Time
	IssuedTo       *time.Time
	IncludeRemoved bool
}

// DocumentRepository persists documents. Update and UpdatePaymentStatus are
// conditional on the version the caller read; a mismatch returns
// shared.ErrConcurrencyConflict and writes nothing.
type DocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	FindByRef(ctx context.Context, ref string) (*Document, error)
	FindAll(ctx context.Context, filter DocumentFilter) ([]Document, int64, error)

	// Create inserts a new document with its lines
	Create(ctx context.Context, doc *Document) error
	// Update writes the document if its stored version equals doc.Version,
	// then increments doc.Version
	Update(ctx context.Context, doc *Document) error

	// FindReconciliationSnapshot loads the fields reconciliation reads
	FindReconciliationSnapshot(ctx context.Context, id uuid.UUID) (*ReconciliationSnapshot, error)
	// UpdatePaymentStatus writes status and total paid if the stored version
	// still equals expectedVersion
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status Status, totalPaid decimal.Decimal) error
	// ResetRemovedTotals zeroes the totals of a removed document
	ResetRemovedTotals(ctx context.Context, id uuid.UUID) error
}

// TransactionLedger is the read side of the external payment ledger
type TransactionLedger interface {
	// SumAllocatedAmount sums the amounts allocated to the document by every
	// non-voided transaction attached to a bank account
	SumAllocatedAmount(ctx context.Context, documentID uuid.UUID) (decimal.Decimal, error)
}
