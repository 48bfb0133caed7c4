package invoicing

import (
	"context"
	"errors"
	"sync"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByRef(ctx context.Context, ref string) (*invoicing.Document, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAll(ctx context.Context, filter invoicing.DocumentFilter) ([]invoicing.Document, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]invoicing.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *invoicing.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Update(ctx context.Context, doc *invoicing.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindReconciliationSnapshot(ctx context.Context, id uuid.UUID) (*invoicing.ReconciliationSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.ReconciliationSnapshot), args.Error(1)
}

func (m *MockDocumentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status invoicing.Status, totalPaid decimal.Decimal) error {
	args := m.Called(ctx, id, expectedVersion, status, totalPaid)
	return args.Error(0)
}

func (m *MockDocumentRepository) ResetRemovedTotals(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTransactionLedger is a mock implementation of TransactionLedger
type MockTransactionLedger struct {
	mock.Mock
}

func (m *MockTransactionLedger) SumAllocatedAmount(ctx context.Context, documentID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// memoryCounters is an in-process CounterStore for service tests
type memoryCounters struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func newMemoryCounters() *memoryCounters {
	return &memoryCounters{values: make(map[string]int64)}
}

func (c *memoryCounters) Increment(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.values[name]++
	return c.values[name], nil
}

func (c *memoryCounters) Current(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name], nil
}

var errStoreDown = errors.New("connection refused")
