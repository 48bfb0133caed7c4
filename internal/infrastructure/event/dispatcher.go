package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erp/invoicing/internal/domain/shared"
	"go.uber.org/zap"
)

// Dispatcher routes events to subscribed handlers synchronously. Unlike a
// fire-and-forget bus it returns handler failures, so the queue processor can
// schedule a redelivery.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	logger   *zap.Logger
}

var (
	_ shared.EventPublisher  = (*Dispatcher)(nil)
	_ shared.EventSubscriber = (*Dispatcher)(nil)
)

// NewDispatcher creates a dispatcher with no handlers
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the given types, or for the types the
// handler declares when none are given
func (d *Dispatcher) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range eventTypes {
		d.handlers[t] = append(d.handlers[t], handler)
	}
	d.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// HasHandlers reports whether any handler receives eventType
func (d *Dispatcher) HasHandlers(eventType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventType]) > 0
}

// Publish delivers every event to each of its handlers and joins their errors
func (d *Dispatcher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		d.mu.RLock()
		handlers := append([]shared.EventHandler(nil), d.handlers[event.EventType()]...)
		d.mu.RUnlock()

		if len(handlers) == 0 {
			d.logger.Debug("no handler for event", zap.String("event_type", event.EventType()))
			continue
		}
		for _, h := range handlers {
			if err := d.dispatch(ctx, h, event); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// dispatch runs one handler, turning a panic into an error
func (d *Dispatcher) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var (
	_ shared.EventPublisher  = (*Dispatcher)(nil)
	_ shared.EventSubscriber = (*Dispatcher)(nil)
)
