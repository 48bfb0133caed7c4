package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPaymentEventPublisher_PublishWithTx(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	publisher := NewPaymentEventPublisher(repo, NewInvoicingSerializer(), 3)
	ctx := context.Background()

	t.Run("entries commit with the transaction", func(t *testing.T) {
		documentID := uuid.New()
		err := db.Transaction(func(tx *gorm.DB) error {
			return publisher.PublishWithTx(ctx, tx, invoicing.NewPaymentChangedEvent(documentID, "ledger"))
		})
		require.NoError(t, err)

		pending, err := repo.FindPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, documentID, pending[0].AggregateID)
		assert.Equal(t, 3, pending[0].MaxRetries)
	})

	t.Run("entries roll back with the transaction", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := publisher.PublishWithTx(ctx, tx, invoicing.NewPaymentChangedEvent(uuid.New(), "ledger")); err != nil {
				return err
			}
			return errors.New("ledger write failed")
		})
		require.Error(t, err)

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
	})
}

func TestPaymentEventPublisher_SaveEvents(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	publisher := NewPaymentEventPublisher(repo, NewInvoicingSerializer(), 0)
	ctx := context.Background()

	err := publisher.SaveEvents(ctx, "not a transaction", invoicing.NewPaymentChangedEvent(uuid.New(), "x"))
	assert.Error(t, err)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(ctx, tx, invoicing.NewPaymentChangedEvent(uuid.New(), invoicing.EventSourceRemoval))
	}))
	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, publisher.SaveEvents(ctx, db))
}
