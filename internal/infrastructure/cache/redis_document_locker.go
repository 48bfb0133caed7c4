package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockKeyPrefix = "invoicing:lock:document:"
	defaultLockTTL       = 30 * time.Second
	defaultLockRetry     = 50 * time.Millisecond
)

// releaseScript deletes the lock only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisDocumentLocker is a per-document lock shared across processes. The
// lock expires after ttl so a crashed holder cannot block a document forever.
type RedisDocumentLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	retry     time.Duration
	logger    *zap.Logger
}

// RedisLockerOption configures a RedisDocumentLocker
type RedisLockerOption func(*RedisDocumentLocker)

// WithLockTTL sets the lock expiry
func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisDocumentLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLockRetryInterval sets how often a blocked Lock retries
func WithLockRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisDocumentLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLockLogger sets the logger
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisDocumentLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisDocumentLocker creates a locker on an existing client
func NewRedisDocumentLocker(client *redis.Client, opts ...RedisLockerOption) *RedisDocumentLocker {
	l := &RedisDocumentLocker{
		client:    client,
		keyPrefix: defaultLockKeyPrefix,
		ttl:       defaultLockTTL,
		retry:     defaultLockRetry,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock acquires the document lock with SET NX PX, polling until it is free
func (l *RedisDocumentLocker) Lock(ctx context.Context, documentID uuid.UUID) (func(), error) {
	key := l.keyPrefix + documentID.String()
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock for document %s: %w", documentID, err)
		}
		if ok {
			return l.unlockFunc(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisDocumentLocker) unlockFunc(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release document lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

var _ invoicing.DocumentLocker = (*RedisDocumentLocker)(nil)
