package invoicing

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, documentID uuid.UUID) (*ReconcileResult, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReconcileResult), args.Error(1)
}

type otherEvent struct {
	shared.BaseDomainEvent
}

func TestPaymentChangedHandler_EventTypes(t *testing.T) {
	handler := NewPaymentChangedHandler(new(MockReconciler), zap.NewNop())
	require.Len(t, handler.EventTypes(), 1)
	assert.Equal(t, invoicing.EventTypePaymentChanged, handler.EventTypes()[0])
}

func TestPaymentChangedHandler_Handle(t *testing.T) {
	t.Run("reconciles the document", func(t *testing.T) {
		reconciler := new(MockReconciler)
		docID := uuid.New()
		reconciler.On("Reconcile", mock.Anything, docID).
			Return(&ReconcileResult{DocumentID: docID, Outcome: "updated"}, nil)

		err := NewPaymentChangedHandler(reconciler, nil).
			Handle(context.Background(), invoicing.NewPaymentChangedEvent(docID, "bank"))
		require.NoError(t, err)
		reconciler.AssertExpectations(t)
	})

	t.Run("reconciliation error asks for redelivery", func(t *testing.T) {
		reconciler := new(MockReconciler)
		docID := uuid.New()
		boom := errors.New("ledger down")
		reconciler.On("Reconcile", mock.Anything, docID).Return(nil, boom)

		err := NewPaymentChangedHandler(reconciler, nil).
			Handle(context.Background(), invoicing.NewPaymentChangedEvent(docID, "bank"))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("rejects other event types", func(t *testing.T) {
		reconciler := new(MockReconciler)
		event := &otherEvent{BaseDomainEvent: shared.NewBaseDomainEvent("Other", "Document", uuid.New())}

		err := NewPaymentChangedHandler(reconciler, nil).Handle(context.Background(), event)
		assert.Error(t, err)
		reconciler.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
	})
}
