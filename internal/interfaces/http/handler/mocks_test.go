package handler

import (
	"context"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockDocumentUseCases struct {
	mock.Mock
}

func (m *MockDocumentUseCases) Create(ctx context.Context, req appinvoicing.CreateDocumentRequest) (*appinvoicing.DocumentResponse, error) {
	args := m.Called(ctx, req)
	return docResult(args)
}

func (m *MockDocumentUseCases) Update(ctx context.Context, id uuid.UUID, req appinvoicing.UpdateDocumentRequest) (*appinvoicing.DocumentResponse, error) {
	args := m.Called(ctx, id, req)
	return docResult(args)
}

func (m *MockDocumentUseCases) Validate(ctx context.Context, id uuid.UUID) (*appinvoicing.DocumentResponse, error) {
	return docResult(m.Called(ctx, id))
}

func (m *MockDocumentUseCases) Cancel(ctx context.Context, id uuid.UUID, reason string) (*appinvoicing.DocumentResponse, error) {
	return docResult(m.Called(ctx, id, reason))
}

func (m *MockDocumentUseCases) ConvertToReduction(ctx context.Context, id uuid.UUID) (*appinvoicing.DocumentResponse, error) {
	return docResult(m.Called(ctx, id))
}

func (m *MockDocumentUseCases) Remove(ctx context.Context, id uuid.UUID) (*appinvoicing.DocumentResponse, error) {
	return docResult(m.Called(ctx, id))
}

func (m *MockDocumentUseCases) Get(ctx context.Context, idOrRef string) (*appinvoicing.DocumentResponse, error) {
	return docResult(m.Called(ctx, idOrRef))
}

func (m *MockDocumentUseCases) StatusView(ctx context.Context, idOrRef string) (*appinvoicing.StatusViewResponse, error) {
	args := m.Called(ctx, idOrRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinvoicing.StatusViewResponse), args.Error(1)
}

func (m *MockDocumentUseCases) List(ctx context.Context, filter appinvoicing.ListDocumentsFilter) (shared.Paginated[appinvoicing.DocumentListResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[appinvoicing.DocumentListResponse]), args.Error(1)
}

func docResult(args mock.Arguments) (*appinvoicing.DocumentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinvoicing.DocumentResponse), args.Error(1)
}

type MockPaymentEventEnqueuer struct {
	mock.Mock
}

func (m *MockPaymentEventEnqueuer) PaymentChanged(ctx context.Context, documentID uuid.UUID, source string) (*invoicing.PaymentChangedEvent, error) {
	args := m.Called(ctx, documentID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.PaymentChangedEvent), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, documentID uuid.UUID) (*appinvoicing.ReconcileResult, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinvoicing.ReconcileResult), args.Error(1)
}
