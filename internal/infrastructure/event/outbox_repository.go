package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimableStatuses are the states a consumer may move to PROCESSING
var claimableStatuses = []shared.OutboxStatus{
	shared.OutboxStatusPending,
	shared.OutboxStatusFailed,
}

// GormOutboxRepository stores payment-change events in outbox_entries
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// WithTx returns a repository bound to tx, so events commit with the ledger
// write that caused them
func (r *GormOutboxRepository) WithTx(tx *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: tx}
}

func (r *GormOutboxRepository) inStatus(ctx context.Context, status shared.OutboxStatus) *gorm.DB {
	return r.db.WithContext(ctx).Model(&shared.OutboxEntry{}).Where("status = ?", status)
}

// Save inserts entries in a single statement
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(entries).Error; err != nil {
		return fmt.Errorf("save %d outbox entries: %w", len(entries), err)
	}
	return nil
}

// FindPending returns the oldest pending entries first
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := r.inStatus(ctx, shared.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("find pending outbox entries: %w", err)
	}
	return entries, nil
}

// FindRetryable returns failed entries whose backoff expired before the cutoff
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := r.inStatus(ctx, shared.OutboxStatusFailed).
		Where("next_retry_at <= ?", before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("find retryable outbox entries: %w", err)
	}
	return entries, nil
}

// MarkProcessing claims the given entries and returns the ones this caller
// won. Rows held by another consumer are skipped rather than waited on, so
// two processors never hand the same event to the reconciler at once.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*shared.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockClaimable(tx, ids)
		if err != nil || len(locked) == 0 {
			return err
		}

		now := time.Now()
		won := make([]uuid.UUID, len(locked))
		for i, e := range locked {
			won[i] = e.ID
		}
		if err := tx.Model(&shared.OutboxEntry{}).
			Where("id IN ?", won).
			Updates(map[string]any{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for _, e := range locked {
			e.Status = shared.OutboxStatusProcessing
			e.UpdatedAt = now
		}
		claimed = locked
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim outbox entries: %w", err)
	}
	return claimed, nil
}

func lockClaimable(tx *gorm.DB, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("id IN ? AND status IN ?", ids, claimableStatuses).
		Find(&entries).Error
	return entries, err
}

// ReleaseStale puts entries a crashed consumer left in PROCESSING since
// before the cutoff back to PENDING
func (r *GormOutboxRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.inStatus(ctx, shared.OutboxStatusProcessing).
		Where("updated_at < ?", before).
		Updates(map[string]any{
			"status":     shared.OutboxStatusPending,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("release stale outbox entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Update writes back an entry after its delivery attempt
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("update outbox entry %s: %w", entry.ID, err)
	}
	return nil
}

// DeleteOlderThan purges sent entries processed before the cutoff
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&shared.OutboxEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete sent outbox entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// FindDead pages through dead-lettered entries, most recently failed first
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	filter := shared.Filter{Page: page, PageSize: pageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}

	var total int64
	if err := r.inStatus(ctx, shared.OutboxStatusDead).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count dead outbox entries: %w", err)
	}

	var entries []*shared.OutboxEntry
	if err := r.inStatus(ctx, shared.OutboxStatusDead).
		Order("updated_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("find dead outbox entries: %w", err)
	}
	return entries, total, nil
}

// FindByID loads one entry; a missing entry is shared.ErrNotFound
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var entry shared.OutboxEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find outbox entry %s: %w", id, err)
	}
	return &entry, nil
}

// CountByStatus returns the queue depth per status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
