package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultMaxConflictRetries bounds the reload-and-recompute loop when the
// versioned status write loses a race
const DefaultMaxConflictRetries = 5

// ReconciliationService recomputes a document's payment status from the
// transaction ledger. Each run is a total recomputation, so it is safe to
// replay in any order.
type ReconciliationService struct {
	repo       invoicing.DocumentRepository
	ledger     invoicing.TransactionLedger
	locker     invoicing.DocumentLocker
	logger     *zap.Logger
	metrics    *telemetry.InvoicingMetrics
	maxRetries int
}

// ReconciliationOption configures a ReconciliationService
type ReconciliationOption func(*ReconciliationService)

// WithLocker serializes runs for the same document
func WithLocker(l invoicing.DocumentLocker) ReconciliationOption {
	return func(s *ReconciliationService) {
		s.locker = l
	}
}

// WithReconciliationMetrics records run outcomes and conflicts
func WithReconciliationMetrics(m *telemetry.InvoicingMetrics) ReconciliationOption {
	return func(s *ReconciliationService) {
		s.metrics = m
	}
}

// WithMaxConflictRetries sets how many version conflicts a run absorbs
// before giving up
func WithMaxConflictRetries(n int) ReconciliationOption {
	return func(s *ReconciliationService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	repo invoicing.DocumentRepository,
	ledger invoicing.TransactionLedger,
	logger *zap.Logger,
	opts ...ReconciliationOption,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReconciliationService{
		repo:       repo,
		ledger:     ledger,
		logger:     logger,
		maxRetries: DefaultMaxConflictRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile recomputes the status and paid amount of one document.
//
// A missing document is dropped with a nil error. A ledger failure returns an
// error and writes nothing, so the caller can redeliver. A conflicting
// concurrent write triggers a reload; ErrConcurrencyConflict is returned once
// the retries are exhausted.
func (s *ReconciliationService) Reconcile(ctx context.Context, documentID uuid.UUID) (*ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile",
		attribute.String("document_id", documentID.String()))
	defer span.End()

	log := s.logger.With(zap.String("document_id", documentID.String()))

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, documentID)
		if err != nil {
			telemetry.RecordError(span, err)
			s.metrics.RecordReconciliation(ctx, telemetry.OutcomeFailed)
			return nil, fmt.Errorf("lock document %s: %w", documentID, err)
		}
		defer unlock()
	}

	result := &ReconcileResult{DocumentID: documentID}
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		result.Attempts = attempt

		done, err := s.attempt(ctx, log, result)
		if err == nil {
			if done {
				span.SetAttributes(attribute.String("outcome", result.Outcome))
				s.metrics.RecordReconciliation(ctx, result.Outcome)
				return result, nil
			}
			continue
		}

		telemetry.RecordError(span, err)
		s.metrics.RecordReconciliation(ctx, telemetry.OutcomeFailed)
		return nil, err
	}

	err := fmt.Errorf("document %s: %d conflicting writes: %w", documentID, s.maxRetries, shared.ErrConcurrencyConflict)
	log.Warn("reconciliation gave up after repeated conflicts", zap.Int("attempts", s.maxRetries))
	telemetry.RecordError(span, err)
	s.metrics.RecordReconciliation(ctx, telemetry.OutcomeFailed)
	return nil, err
}

// attempt runs one read-aggregate-write pass. done is false when the
// versioned write lost a race and the pass must be repeated.
func (s *ReconciliationService) attempt(ctx context.Context, log *zap.Logger, result *ReconcileResult) (done bool, err error) {
	snap, err := s.repo.FindReconciliationSnapshot(ctx, result.DocumentID)
	if errors.Is(err, shared.ErrNotFound) {
		log.Warn("payment event for unknown document dropped")
		result.Outcome = telemetry.OutcomeNotFound
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load document %s: %w", result.DocumentID, err)
	}

	if snap.IsRemoved {
		if err := s.repo.ResetRemovedTotals(ctx, snap.ID); err != nil {
			return false, fmt.Errorf("reset removed document %s: %w", snap.ID, err)
		}
		log.Info("removed document totals reset")
		result.Outcome = telemetry.OutcomeRemoved
		result.Status = snap.Status
		result.TotalPaid = decimal.Zero
		return true, nil
	}

	if snap.Status == invoicing.StatusDraft {
		log.Debug("draft document skipped")
		result.Outcome = telemetry.OutcomeSkipped
		result.Status = snap.Status
		result.TotalPaid = snap.TotalPaid
		return true, nil
	}

	sum, err := s.ledger.SumAllocatedAmount(ctx, snap.ID)
	if err != nil {
		log.Error("transaction aggregate failed, status left untouched", zap.Error(err))
		return false, fmt.Errorf("sum payments of %s: %w", snap.ID, err)
	}
	sum = valueobject.Normalize(sum)
	status := invoicing.DecideStatus(snap.TotalInclTax, sum)

	result.Status = status
	result.TotalPaid = sum

	if !snap.NeedsUpdate(status, sum) {
		result.Outcome = telemetry.OutcomeUnchanged
		return true, nil
	}

	err = s.repo.UpdatePaymentStatus(ctx, snap.ID, snap.Version, status, sum)
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		s.metrics.RecordConflict(ctx)
		log.Debug("document changed during reconciliation, retrying", zap.Int("version", snap.Version))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update payment status of %s: %w", snap.ID, err)
	}

	log.Info("payment status reconciled",
		zap.String("previous_status", snap.Status.String()),
		zap.String("status", status.String()),
		zap.String("total_paid", sum.StringFixed(valueobject.MinorUnitPlaces)),
	)
	result.Outcome = telemetry.OutcomeUpdated
	return true, nil
}
