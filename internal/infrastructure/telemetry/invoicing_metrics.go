package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Reconciliation outcomes
const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeRemoved   = "removed"
	OutcomeNotFound  = "not_found"
	OutcomeFailed    = "failed"
)

// Queue results
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
	ResultDead   = "dead"
)

// InvoicingMetrics holds the numbering, reconciliation and queue instruments.
// A nil *InvoicingMetrics records nothing.
type InvoicingMetrics struct {
	sequenceAllocations   *Counter
	reconciliations       *Counter
	reconcileConflicts    *Counter
	queueEvents           *Counter
	queueHandlingDuration *Histogram
}

// NewInvoicingMetrics creates the instruments on meter
func NewInvoicingMetrics(meter metric.Meter) (*InvoicingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &InvoicingMetrics{}
	var err error
	if m.sequenceAllocations, err = NewCounter(meter,
		"invoicing_sequence_allocations_total",
		"Counter values handed out, by counter name",
		"{values}"); err != nil {
		return nil, err
	}
	if m.reconciliations, err = NewCounter(meter,
		"invoicing_reconciliations_total",
		"Payment status reconciliations, by outcome",
		"{runs}"); err != nil {
		return nil, err
	}
	if m.reconcileConflicts, err = NewCounter(meter,
		"invoicing_reconciliation_conflicts_total",
		"Versioned updates rejected because the document changed",
		"{conflicts}"); err != nil {
		return nil, err
	}
	if m.queueEvents, err = NewCounter(meter,
		"invoicing_queue_events_total",
		"Queued events processed, by type and result",
		"{events}"); err != nil {
		return nil, err
	}
	if m.queueHandlingDuration, err = NewHistogram(meter,
		"invoicing_queue_handling_duration_seconds",
		"Time spent handling one queued event",
		"s",
		0.005, 0.01, 0.05, 0.1, 0.5, 1, 5); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAllocation counts one value handed out by the named counter
func (m *InvoicingMetrics) RecordAllocation(ctx context.Context, counter string) {
	if m == nil {
		return
	}
	m.sequenceAllocations.Inc(ctx, attribute.String("counter", counter))
}

// RecordReconciliation counts one reconciliation run
func (m *InvoicingMetrics) RecordReconciliation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.reconciliations.Inc(ctx, attribute.String("outcome", outcome))
}

// RecordConflict counts one rejected versioned update
func (m *InvoicingMetrics) RecordConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconcileConflicts.Inc(ctx)
}

// RecordQueueEvent counts one processed queue entry and its handling time
func (m *InvoicingMetrics) RecordQueueEvent(ctx context.Context, eventType, result string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
		attribute.String("result", result),
	}
	m.queueEvents.Inc(ctx, attrs...)
	m.queueHandlingDuration.RecordDuration(ctx, d, attrs...)
}
