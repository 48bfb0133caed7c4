package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BackendFactory builds the counter store and document locker selected by
// configuration, sharing one redis client between them
type BackendFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool

	mu     sync.Mutex
	client *redis.Client
}

// BackendFactoryOption is a functional option for configuring the factory
type BackendFactoryOption func(*BackendFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) BackendFactoryOption {
	return func(f *BackendFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether the locker falls back to the
// in-memory implementation when redis is unavailable. Default is false.
func WithInMemoryFallback(allow bool) BackendFactoryOption {
	return func(f *BackendFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewBackendFactory creates a new factory
func NewBackendFactory(cfg config.RedisConfig, opts ...BackendFactoryOption) *BackendFactory {
	f := &BackendFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RedisClient returns the shared client, connecting on first use
func (f *BackendFactory) RedisClient(ctx context.Context) (*redis.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, err
	}
	f.client = client
	return client, nil
}

// CreateCounterStore returns the database store or a redis store. There is no
// in-memory fallback: a per-process counter would hand out duplicate numbers.
func (f *BackendFactory) CreateCounterStore(ctx context.Context, backend string, database invoicing.CounterStore) (invoicing.CounterStore, error) {
	switch backend {
	case config.BackendDatabase:
		f.logger.Info("using database sequence store")
		return database, nil
	case config.BackendRedis:
		client, err := f.RedisClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("Redis required for numbering but unavailable: %w", err)
		}
		f.logger.Info("using Redis sequence store")
		return NewRedisSequenceStore(client, ""), nil
	default:
		return nil, fmt.Errorf("unknown numbering backend %q", backend)
	}
}

// CreateDocumentLocker returns the locker for backend, falling back to the
// in-memory locker when redis is unavailable and fallback is allowed
func (f *BackendFactory) CreateDocumentLocker(ctx context.Context, cfg config.ReconciliationConfig) (invoicing.DocumentLocker, error) {
	switch cfg.LockBackend {
	case config.BackendMemory:
		f.logger.Info("using in-memory document locker")
		return NewInMemoryDocumentLocker(), nil
	case config.BackendRedis:
		client, err := f.RedisClient(ctx)
		if err == nil {
			f.logger.Info("using Redis document locker")
			return NewRedisDocumentLocker(client, WithLockTTL(cfg.LockTTL), WithLockLogger(f.logger)), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for document locks but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory document locker. "+
			"Reconciliation still converges through versioned updates.",
			zap.Error(err),
		)
		return NewInMemoryDocumentLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

// Close closes the shared redis client if one was opened
func (f *BackendFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}
