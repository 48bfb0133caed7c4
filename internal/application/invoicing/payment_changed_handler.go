package invoicing

import (
	"context"
	"fmt"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler recomputes the payment state of one document
type Reconciler interface {
	Reconcile(ctx context.Context, documentID uuid.UUID) (*ReconcileResult, error)
}

// PaymentChangedHandler reconciles the document named by a PaymentChanged
// event. A returned error makes the queue redeliver the event.
type PaymentChangedHandler struct {
	reconciler Reconciler
	logger     *zap.Logger
}

// NewPaymentChangedHandler creates a new handler for payment change events
func NewPaymentChangedHandler(reconciler Reconciler, logger *zap.Logger) *PaymentChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentChangedHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentChangedHandler) EventTypes() []string {
	return []string{invoicing.EventTypePaymentChanged}
}

// Handle processes a PaymentChangedEvent
func (h *PaymentChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*invoicing.PaymentChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", invoicing.EventTypePaymentChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			invoicing.EventTypePaymentChanged, event.EventType())
	}

	result, err := h.reconciler.Reconcile(ctx, changed.DocumentID)
	if err != nil {
		h.logger.Warn("reconciliation failed, event will be redelivered",
			zap.String("event_id", event.EventID().String()),
			zap.String("document_id", changed.DocumentID.String()),
			zap.Error(err),
		)
		return err
	}

	h.logger.Debug("payment change handled",
		zap.String("event_id", event.EventID().String()),
		zap.String("document_id", changed.DocumentID.String()),
		zap.String("source", changed.Source),
		zap.String("outcome", result.Outcome),
	)
	return nil
}

var (
	_ shared.EventHandler = (*PaymentChangedHandler)(nil)
	_ Reconciler          = (*ReconciliationService)(nil)
)
