package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/redis/go-redis/v9"
)

const defaultSequenceKeyPrefix = "invoicing:sequence:"

// RedisSequenceStore keeps counters as redis integers. INCR is atomic on the
// server, so every process sharing the instance sees a single sequence.
type RedisSequenceStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSequenceStore creates a store on an existing client
func NewRedisSequenceStore(client *redis.Client, keyPrefix string) *RedisSequenceStore {
	if keyPrefix == "" {
		keyPrefix = defaultSequenceKeyPrefix
	}
	return &RedisSequenceStore{client: client, keyPrefix: keyPrefix}
}

// Increment advances the counter; a missing key starts at 1
func (s *RedisSequenceStore) Increment(ctx context.Context, name string) (int64, error) {
	v, err := s.client.Incr(ctx, s.keyPrefix+name).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return v, nil
}

// Current returns the last value handed out, or 0 for an unused counter
func (s *RedisSequenceStore) Current(ctx context.Context, name string) (int64, error) {
	v, err := s.client.Get(ctx, s.keyPrefix+name).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", name, err)
	}
	return v, nil
}

var _ invoicing.CounterStore = (*RedisSequenceStore)(nil)
