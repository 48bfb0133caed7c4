package persistence

import (
	"context"
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"gorm.io/gorm"
)

const incrementSequenceSQL = `INSERT INTO sequences (name, value, updated_at) VALUES (?, 1, ?)
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1, updated_at = excluded.updated_at
RETURNING value`

// GormSequenceStore keeps named counters in the sequences table. Each
// increment is a single autocommitted upsert, independent of any document
// transaction, so a value is never handed out twice.
type GormSequenceStore struct {
	db *gorm.DB
}

// NewGormSequenceStore creates a new GormSequenceStore
func NewGormSequenceStore(db *gorm.DB) *GormSequenceStore {
	return &GormSequenceStore{db: db}
}

// Increment atomically advances the counter, creating it at 1
func (s *GormSequenceStore) Increment(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := s.db.WithContext(ctx).Raw(incrementSequenceSQL, name, time.Now()).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}

// Current returns the last value handed out, or 0 for an unused counter
func (s *GormSequenceStore) Current(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := s.db.WithContext(ctx).Raw("SELECT value FROM sequences WHERE name = ?", name).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}

var _ invoicing.CounterStore = (*GormSequenceStore)(nil)
