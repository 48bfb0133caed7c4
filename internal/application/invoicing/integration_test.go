package invoicing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/event"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"github.com/erp/invoicing/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type pipeline struct {
	db         *gorm.DB
	documents  *DocumentService
	reconciler *ReconciliationService
	publisher  *event.PaymentEventPublisher
	processor  *event.OutboxProcessor
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	log := zaptest.NewLogger(t)

	repo := persistence.NewGormDocumentRepository(tdb.DB)
	counters := persistence.NewGormSequenceStore(tdb.DB)
	numbering := invoicing.NewNumberingService(invoicing.NewSequenceAllocator(counters, 4), "")

	outbox := event.NewGormOutboxRepository(tdb.DB)
	serializer := event.NewInvoicingSerializer()
	publisher := event.NewPaymentEventPublisher(outbox, serializer, 0)
	repo.SetOutboxEventSaver(publisher)

	reconciler := NewReconciliationService(repo, persistence.NewGormTransactionLedger(tdb.DB), log)
	dispatcher := event.NewDispatcher(log)
	handler := NewPaymentChangedHandler(reconciler, log)
	dispatcher.Subscribe(handler, handler.EventTypes()...)

	cfg := event.DefaultOutboxProcessorConfig()
	cfg.CleanupEnabled = false
	return &pipeline{
		db:         tdb.DB,
		documents:  NewDocumentService(repo, numbering, log),
		reconciler: reconciler,
		publisher:  publisher,
		processor:  event.NewOutboxProcessor(outbox, dispatcher, serializer, cfg, log),
	}
}

func (p *pipeline) pay(t *testing.T, documentID uuid.UUID, amount string) {
	t.Helper()
	bank := uuid.New()
	now := time.Now()
	require.NoError(t, p.db.Create(&models.TransactionModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BankID:    &bank,
		ValueDate: now,
		Allocations: []models.TransactionAllocationModel{{
			ID:         uuid.New(),
			DocumentID: documentID,
			Amount:     decimal.RequireFromString(amount),
		}},
	}).Error)
}

func TestIntegration_ConcurrentCreateAllocatesDistinctReferences(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	const n = 20
	refs := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := p.documents.Create(ctx, CreateDocumentRequest{ForSales: true, IssueDate: time.Now()})
			if assert.NoError(t, err) {
				refs <- resp.Ref
			}
		}()
	}
	wg.Wait()
	close(refs)

	seen := make(map[string]bool)
	for ref := range refs {
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["PROV0001"])
	assert.True(t, seen["PROV0020"])
}

func TestIntegration_ValidateAndReconcileThroughQueue(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	total := decimal.NewFromInt(100)

	created, err := p.documents.Create(ctx, CreateDocumentRequest{
		ForSales:     true,
		IssueDate:    time.Now(),
		TotalExclTax: total,
		TotalInclTax: total,
	})
	require.NoError(t, err)
	assert.Equal(t, "PROV0001", created.Ref)

	validated, err := p.documents.Validate(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "FA0001", validated.Ref)
	assert.Equal(t, string(invoicing.StatusNotPaid), validated.Status.Stored)

	t.Run("partial payment", func(t *testing.T) {
		p.pay(t, created.ID, "40.00")
		_, err := p.publisher.PaymentChanged(ctx, created.ID, "test")
		require.NoError(t, err)

		assert.Equal(t, 1, p.processor.ProcessOnce(ctx))

		doc, err := p.documents.Get(ctx, created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, string(invoicing.StatusPaidPartially), doc.Status.Stored)
		assert.True(t, doc.TotalPaid.Equal(decimal.NewFromInt(40)))
	})

	t.Run("balance paid", func(t *testing.T) {
		p.pay(t, created.ID, "60.00")
		_, err := p.publisher.PaymentChanged(ctx, created.ID, "test")
		require.NoError(t, err)

		assert.Equal(t, 1, p.processor.ProcessOnce(ctx))
		assert.Zero(t, p.processor.ProcessOnce(ctx))

		doc, err := p.documents.Get(ctx, created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, string(invoicing.StatusPaid), doc.Status.Stored)
		assert.True(t, doc.AmountDue.IsZero())
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		first, err := p.reconciler.Reconcile(ctx, created.ID)
		require.NoError(t, err)
		second, err := p.reconciler.Reconcile(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.StatusPaid, second.Status)
		assert.Equal(t, first.Outcome, second.Outcome)
	})

	t.Run("removal zeroes totals through the queue", func(t *testing.T) {
		removed, err := p.documents.Remove(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, removed.IsRemoved)

		assert.Equal(t, 1, p.processor.ProcessOnce(ctx))

		doc, err := p.documents.Get(ctx, created.ID.String())
		require.NoError(t, err)
		assert.True(t, doc.TotalInclTax.IsZero())
		assert.True(t, doc.TotalPaid.IsZero())
	})
}
