package invoicing

import (
	"context"
	"fmt"

	"github.com/erp/invoicing/internal/domain/shared"
)

// Counter names
const (
	CounterProvisional     = "PROV"
	CounterSupplierInvoice = "SUPPLIER_INVOICE"
	CounterInvoice         = "INVOICE"
)

// DefaultSequenceWidth is the zero-padding width of formatted sequence values
const DefaultSequenceWidth = 4

// ErrSequenceUnavailable is returned when the counter store cannot hand out a
// value. The document being saved must not be persisted.
var ErrSequenceUnavailable = shared.NewDomainError("SEQUENCE_UNAVAILABLE", "Sequence counter is unavailable")

// Counters lists every counter the numbering service allocates from
func Counters() []string {
	return []string{CounterProvisional, CounterInvoice, CounterSupplierInvoice}
}

// CounterStore is a named monotonic counter. Increment must be atomic across
// every process sharing the store and must never return a value twice, even
// if the caller's own transaction later rolls back. Current reads the last
// value handed out, 0 for an unused counter, for operators inspecting the
// store.
type CounterStore interface {
	Increment(ctx context.Context, name string) (int64, error)
	Current(ctx context.Context, name string) (int64, error)
}

// Sequence is one allocated counter value
type Sequence struct {
	Value     int64
	Formatted string
}

// SequenceAllocator hands out formatted counter values
type SequenceAllocator struct {
	store CounterStore
	width int
}

// NewSequenceAllocator creates an allocator; width <= 0 selects
// DefaultSequenceWidth
func NewSequenceAllocator(store CounterStore, width int) *SequenceAllocator {
	if width <= 0 {
		width = DefaultSequenceWidth
	}
	return &SequenceAllocator{store: store, width: width}
}

// Increment atomically advances the named counter and returns the new value
func (a *SequenceAllocator) Increment(ctx context.Context, name string) (Sequence, error) {
	value, err := a.store.Increment(ctx, name)
	if err != nil {
		return Sequence{}, fmt.Errorf("increment %s: %w: %w", name, ErrSequenceUnavailable, err)
	}
	return Sequence{Value: value, Formatted: FormatSequence(value, a.width)}, nil
}

// Current returns the last value handed out for name without advancing it
func (a *SequenceAllocator) Current(ctx context.Context, name string) (Sequence, error) {
	value, err := a.store.Current(ctx, name)
	if err != nil {
		return Sequence{}, fmt.Errorf("read %s: %w: %w", name, ErrSequenceUnavailable, err)
	}
	return Sequence{Value: value, Formatted: FormatSequence(value, a.width)}, nil
}

// Width returns the zero-padding width
func (a *SequenceAllocator) Width() int {
	return a.width
}

// FormatSequence zero-pads value to width digits. Longer values are kept whole.
func FormatSequence(value int64, width int) string {
	return fmt.Sprintf("%0*d", width, value)
}
