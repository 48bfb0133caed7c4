package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSequenceStore_ConcurrentIncrements(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisSequenceStore(client, "test:sequence:")
	ctx := context.Background()

	current, err := store.Current(ctx, "INVOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	const workers = 50
	values := make(chan int64, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Increment(ctx, "INVOICE")
			assert.NoError(t, err)
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool, workers)
	for v := range values {
		assert.False(t, seen[v], "duplicate value %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers)

	current, err = store.Current(ctx, "INVOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), current)
}

func TestRedisDocumentLocker_MutualExclusion(t *testing.T) {
	client := testutil.NewRedisClient(t)
	locker := NewRedisDocumentLocker(client, WithLockRetryInterval(5*time.Millisecond))
	ctx := context.Background()
	documentID := uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, documentID)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestRedisDocumentLocker_ContextCancelled(t *testing.T) {
	client := testutil.NewRedisClient(t)
	locker := NewRedisDocumentLocker(client)
	documentID := uuid.New()

	unlock, err := locker.Lock(context.Background(), documentID)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, documentID)
	assert.Error(t, err)
}
