package event

import (
	"context"
	"fmt"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentEventPublisher enqueues payment change notifications in the outbox
// table, which serves as the durable queue of the reconciliation consumer
type PaymentEventPublisher struct {
	repo       *GormOutboxRepository
	serializer *EventSerializer
	maxRetries int
}

// NewPaymentEventPublisher creates a publisher. maxRetries 0 retries forever.
func NewPaymentEventPublisher(repo *GormOutboxRepository, serializer *EventSerializer, maxRetries int) *PaymentEventPublisher {
	return &PaymentEventPublisher{
		repo:       repo,
		serializer: serializer,
		maxRetries: maxRetries,
	}
}

// Publish persists events as pending queue entries
func (p *PaymentEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return p.save(ctx, p.repo, events)
}

// PublishWithTx persists events within the provided transaction, so they
// commit atomically with the ledger change that caused them
func (p *PaymentEventPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	return p.save(ctx, p.repo.WithTx(tx), events)
}

// SaveEvents implements shared.OutboxEventSaver for repositories that write
// events in their own transaction. txProvider must be a *gorm.DB.
func (p *PaymentEventPublisher) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}

// PaymentChanged enqueues a PaymentChanged event for a document
func (p *PaymentEventPublisher) PaymentChanged(ctx context.Context, documentID uuid.UUID, source string) (*invoicing.PaymentChangedEvent, error) {
	event := invoicing.NewPaymentChangedEvent(documentID, source)
	if err := p.Publish(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (p *PaymentEventPublisher) save(ctx context.Context, repo *GormOutboxRepository, events []shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", event.EventType(), err)
		}
		entry := shared.NewOutboxEntry(event, payload)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}
	return repo.Save(ctx, entries...)
}

var (
	_ shared.EventPublisher   = (*PaymentEventPublisher)(nil)
	_ shared.OutboxEventSaver = (*PaymentEventPublisher)(nil)
)
