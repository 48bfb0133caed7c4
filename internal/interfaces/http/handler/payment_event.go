package handler

import (
	"context"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultPaymentEventSource tags events received without an explicit source
const DefaultPaymentEventSource = "api"

// PaymentEventEnqueuer durably queues PaymentChanged events
type PaymentEventEnqueuer interface {
	PaymentChanged(ctx context.Context, documentID uuid.UUID, source string) (*invoicing.PaymentChangedEvent, error)
}

// PaymentEventHandler receives payment change notifications
type PaymentEventHandler struct {
	BaseHandler
	events     PaymentEventEnqueuer
	reconciler appinvoicing.Reconciler
}

// NewPaymentEventHandler creates a new PaymentEventHandler
func NewPaymentEventHandler(events PaymentEventEnqueuer, reconciler appinvoicing.Reconciler) *PaymentEventHandler {
	return &PaymentEventHandler{
		events:     events,
		reconciler: reconciler,
	}
}

// Enqueue records that the payments of a document changed. Reconciliation
// runs asynchronously from the outbox.
func (h *PaymentEventHandler) Enqueue(c *gin.Context) {
	var req dto.PaymentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		h.BadRequest(c, "invalid document_id: "+req.DocumentID)
		return
	}

	source := req.Source
	if source == "" {
		source = DefaultPaymentEventSource
	}

	event, err := h.events.PaymentChanged(c.Request.Context(), documentID, source)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, dto.PaymentEventResponse{
		EventID:    event.EventID().String(),
		DocumentID: documentID.String(),
	})
}

// Reconcile reconciles a document synchronously
func (h *PaymentEventHandler) Reconcile(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
