package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("resets dead letter entry for retry", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:          uuid.New(),
			EventID:     uuid.New(),
			EventType:   "PaymentChanged",
			AggregateID: uuid.New(),
			Status:      OutboxStatusDead,
			RetryCount:  5,
			MaxRetries:  5,
			LastError:   "ledger unavailable",
			CreatedAt:   time.Now().Add(-time.Hour),
			UpdatedAt:   time.Now().Add(-time.Minute),
		}

		err := entry.ResetForRetry()
		assert.NoError(t, err)
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
	})

	t.Run("fails for non-dead entry", func(t *testing.T) {
		for _, status := range []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			err := entry.ResetForRetry()
			assert.Error(t, err)
		}
	})
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("unbounded entries never dead-letter", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing}
		for i := 0; i < 50; i++ {
			entry.MarkFailed("boom")
		}
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 50, entry.RetryCount)
		assert.True(t, entry.CanRetry())
		if assert.NotNil(t, entry.NextRetryAt) {
			assert.WithinDuration(t, time.Now().Add(DefaultMaxBackoff), *entry.NextRetryAt, 5*time.Second)
		}
	})

	t.Run("bounded entries move to dead letter", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 3}
		entry.MarkFailed("one")
		entry.MarkFailed("two")
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		entry.MarkFailed("three")
		assert.True(t, entry.IsDead())
		assert.False(t, entry.CanRetry())
		assert.Nil(t, entry.NextRetryAt)
		assert.Equal(t, "three", entry.LastError)
	})
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Second, RetryBackoff(0, time.Minute))
	assert.Equal(t, time.Second, RetryBackoff(1, time.Minute))
	assert.Equal(t, 8*time.Second, RetryBackoff(4, time.Minute))
	assert.Equal(t, time.Minute, RetryBackoff(10, time.Minute))
	assert.Equal(t, time.Minute, RetryBackoff(64, time.Minute))
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusPending}
	assert.NoError(t, entry.MarkProcessing())
	assert.Equal(t, OutboxStatusProcessing, entry.Status)
	assert.Error(t, entry.MarkProcessing())

	entry.MarkSent()
	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
}
