package invoicing

import (
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
)

// EventTypePaymentChanged is emitted whenever a transaction referencing a
// document is created, modified, voided or deleted
const EventTypePaymentChanged = "PaymentChanged"

// PaymentChangedEvent carries only the document id. Consumers recompute the
// payment state from scratch, so duplicates and reordering are harmless.
type PaymentChangedEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID `json:"document_id"`
	Source     string    `json:"source,omitempty"`
}

// NewPaymentChangedEvent creates a payment change notification
func NewPaymentChangedEvent(documentID uuid.UUID, source string) *PaymentChangedEvent {
	return &PaymentChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentChanged, AggregateTypeDocument, documentID),
		DocumentID:      documentID,
		Source:          source,
	}
}
