package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument(ref string, total string) *invoicing.Document {
	doc := invoicing.NewDocument(true, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), invoicing.DefaultPaymentTerms)
	doc.Ref = ref
	doc.SetTotals(decimal.RequireFromString(total), decimal.RequireFromString(total))
	doc.ReplaceLines([]invoicing.Line{
		{Description: "second", Quantity: decimal.NewFromInt(1), UnitPriceExclTax: decimal.RequireFromString(total), TotalExclTax: decimal.RequireFromString(total)},
		{Type: invoicing.LineTypeComment, Description: "note"},
	})
	doc.AddHistory(invoicing.HistoryModeCreated, "")
	return doc
}

func TestGormDocumentRepository_CreateAndFind(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	doc := newTestDocument("PROV0001", "120.50")
	require.NoError(t, repo.Create(ctx, doc))

	t.Run("finds by id with ordered lines", func(t *testing.T) {
		found, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "PROV0001", found.Ref)
		assert.Equal(t, invoicing.StatusDraft, found.Status)
		assert.True(t, found.TotalInclTax.Equal(decimal.RequireFromString("120.50")))
		require.Len(t, found.Lines, 2)
		assert.Equal(t, 1, found.Lines[0].Position)
		assert.Equal(t, "second", found.Lines[0].Description)
		assert.Equal(t, invoicing.LineTypeComment, found.Lines[1].Type)
		require.Len(t, found.History, 1)
		assert.Equal(t, invoicing.HistoryModeCreated, found.History[0].Mode)
		assert.Equal(t, 1, found.Version)
	})

	t.Run("finds by ref", func(t *testing.T) {
		found, err := repo.FindByRef(ctx, "PROV0001")
		require.NoError(t, err)
		assert.Equal(t, doc.ID, found.ID)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns not found for unknown ref", func(t *testing.T) {
		_, err := repo.FindByRef(ctx, "FA0001-0001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects duplicate ref", func(t *testing.T) {
		dup := newTestDocument("PROV0001", "1.00")
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormDocumentRepository_Update(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	doc := newTestDocument("PROV0002", "50.00")
	require.NoError(t, repo.Create(ctx, doc))

	t.Run("writes fields and replaces lines", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)

		loaded.Ref = "FA2403-0001"
		loaded.Status = invoicing.StatusNotPaid
		loaded.ReplaceLines([]invoicing.Line{{Description: "only", TotalExclTax: decimal.RequireFromString("50")}})
		require.NoError(t, repo.Update(ctx, loaded))
		assert.Equal(t, 2, loaded.Version)

		reloaded, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "FA2403-0001", reloaded.Ref)
		assert.Equal(t, invoicing.StatusNotPaid, reloaded.Status)
		assert.Equal(t, 2, reloaded.Version)
		require.Len(t, reloaded.Lines, 1)
		assert.Equal(t, "only", reloaded.Lines[0].Description)
	})

	t.Run("rejects stale version", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		fresh, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)

		fresh.EntityAccountingRef = "411000"
		require.NoError(t, repo.Update(ctx, fresh))

		stale.EntityAccountingRef = "401000"
		err = repo.Update(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		reloaded, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "411000", reloaded.EntityAccountingRef)
	})

	t.Run("returns not found for missing document", func(t *testing.T) {
		missing := newTestDocument("PROV0999", "1.00")
		err := repo.Update(ctx, missing)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormDocumentRepository_FindAll(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	for i, ref := range []string{"PROV0001", "PROV0002", "PROV0003"} {
		doc := newTestDocument(ref, "10.00")
		if i == 2 {
			doc.MarkRemoved()
		}
		require.NoError(t, repo.Create(ctx, doc))
	}

	t.Run("excludes removed documents by default", func(t *testing.T) {
		filter := invoicing.DocumentFilter{Filter: shared.DefaultFilter()}
		filter.OrderBy = "ref"
		filter.OrderDir = "asc"
		docs, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, docs, 2)
		assert.Equal(t, "PROV0001", docs[0].Ref)
	})

	t.Run("includes removed documents on request", func(t *testing.T) {
		filter := invoicing.DocumentFilter{Filter: shared.DefaultFilter(), IncludeRemoved: true}
		_, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := invoicing.DocumentFilter{Filter: shared.Filter{Page: 2, PageSize: 1, OrderBy: "ref", OrderDir: "asc"}}
		docs, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, docs, 1)
		assert.Equal(t, "PROV0002", docs[0].Ref)
	})

	t.Run("filters by search and status", func(t *testing.T) {
		status := invoicing.StatusDraft
		filter := invoicing.DocumentFilter{Filter: shared.DefaultFilter(), Status: &status}
		filter.Search = "0002"
		docs, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "PROV0002", docs[0].Ref)
	})
}

func TestGormDocumentRepository_Reconciliation(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	doc := newTestDocument("FA2403-0002", "100.00")
	doc.Status = invoicing.StatusNotPaid
	require.NoError(t, repo.Create(ctx, doc))

	snap, err := repo.FindReconciliationSnapshot(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.StatusNotPaid, snap.Status)
	assert.True(t, snap.TotalInclTax.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, snap.Version)

	t.Run("applies status at expected version", func(t *testing.T) {
		err := repo.UpdatePaymentStatus(ctx, doc.ID, 1, invoicing.StatusPaidPartially, decimal.RequireFromString("40.00"))
		require.NoError(t, err)

		after, err := repo.FindReconciliationSnapshot(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.StatusPaidPartially, after.Status)
		assert.True(t, after.TotalPaid.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, 2, after.Version)
	})

	t.Run("rejects stale version", func(t *testing.T) {
		err := repo.UpdatePaymentStatus(ctx, doc.ID, 1, invoicing.StatusPaid, decimal.NewFromInt(100))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("snapshot of missing document", func(t *testing.T) {
		_, err := repo.FindReconciliationSnapshot(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("reset only touches removed documents", func(t *testing.T) {
		require.NoError(t, repo.ResetRemovedTotals(ctx, doc.ID))
		kept, err := repo.FindReconciliationSnapshot(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, kept.TotalInclTax.Equal(decimal.NewFromInt(100)))

		loaded, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		loaded.MarkRemoved()
		require.NoError(t, repo.Update(ctx, loaded))

		require.NoError(t, repo.ResetRemovedTotals(ctx, doc.ID))
		removed, err := repo.FindReconciliationSnapshot(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, removed.IsRemoved)
		assert.True(t, removed.TotalInclTax.IsZero())
		assert.True(t, removed.TotalPaid.IsZero())
	})
}

func TestGormDocumentRepository_UpdatePaymentStatusSQL(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormDocumentRepository(gormDB)
	id := uuid.New()

	t.Run("conditional on version", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "documents" SET .*"version"=version \+ 1 WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdatePaymentStatus(context.Background(), id, 3, invoicing.StatusPaid, decimal.NewFromInt(10))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row affected is a conflict", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdatePaymentStatus(context.Background(), id, 3, invoicing.StatusPaid, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database errors", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "documents" SET`).
			WillReturnError(errors.New("connection reset"))

		err := repo.UpdatePaymentStatus(context.Background(), id, 3, invoicing.StatusPaid, decimal.NewFromInt(10))
		assert.EqualError(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
