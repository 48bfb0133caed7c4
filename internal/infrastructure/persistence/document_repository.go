package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormDocumentRepository implements invoicing.DocumentRepository using GORM
type GormDocumentRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// SetOutboxEventSaver makes Update write the document's recorded domain
// events to the outbox in the same transaction as the document. Without a
// saver, recorded events stay on the aggregate.
func (r *GormDocumentRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds a document and its lines by ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRef finds a document by its reference
func (r *GormDocumentRepository) FindByRef(ctx context.Context, ref string) (*invoicing.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("ref = ?", ref).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists documents without their lines
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter invoicing.DocumentFilter) ([]invoicing.Document, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.DocumentModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.DocumentModel{}), filter)
	sortField := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.DocumentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	docs := make([]invoicing.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, total, nil
}

func (r *GormDocumentRepository) applyFilter(query *gorm.DB, filter invoicing.DocumentFilter) *gorm.DB {
	if !filter.IncludeRemoved {
		query = query.Where("is_removed = ?", false)
	}
	if filter.ForSales != nil {
		query = query.Where("for_sales = ?", *filter.ForSales)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssuedTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("ref LIKE ?", "%"+search+"%")
	}
	return query
}

// Create inserts a new document with its lines
func (r *GormDocumentRepository) Create(ctx context.Context, doc *invoicing.Document) error {
	model := models.DocumentModelFromDomain(doc)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("document %s: %w", doc.Ref, shared.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// Update writes the document if the stored version still equals
// doc.Version, replacing its lines, then increments doc.Version
func (r *GormDocumentRepository) Update(ctx context.Context, doc *invoicing.Document) error {
	model := models.DocumentModelFromDomain(doc)
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.DocumentModel{}).
			Where("id = ? AND version = ?", doc.ID, doc.Version).
			Updates(map[string]interface{}{
				"ref":                   model.Ref,
				"sequence_number":       model.SequenceNumber,
				"for_sales":             model.ForSales,
				"status":                model.Status,
				"issue_date":            model.IssueDate,
				"due_date":              model.DueDate,
				"payment_terms_code":    model.PaymentTermsCode,
				"payment_mode_code":     model.PaymentModeCode,
				"entity_accounting_ref": model.EntityAccountingRef,
				"currency":              model.Currency,
				"total_excl_tax":        model.TotalExclTax,
				"total_incl_tax":        model.TotalInclTax,
				"total_paid":            model.TotalPaid,
				"correction":            model.Correction,
				"shipping_excl_tax":     model.ShippingExclTax,
				"discount_percent":      model.DiscountPercent,
				"discount_value":        model.DiscountValue,
				"early_payment_percent": model.EarlyPaymentPercent,
				"early_payment_value":   model.EarlyPaymentValue,
				"history":               model.History,
				"is_removed":            model.IsRemoved,
				"updated_at":            now,
				"version":               gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("document %s: %w", doc.Ref, shared.ErrAlreadyExists)
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missingOrConflict(tx, doc.ID)
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}

		if events := doc.GetDomainEvents(); r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if r.outboxSaver != nil {
		doc.ClearDomainEvents()
	}
	doc.Version++
	doc.UpdatedAt = now
	return nil
}

func (r *GormDocumentRepository) missingOrConflict(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.DocumentModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}

// FindReconciliationSnapshot loads the columns reconciliation needs
func (r *GormDocumentRepository) FindReconciliationSnapshot(ctx context.Context, id uuid.UUID) (*invoicing.ReconciliationSnapshot, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Select("id", "status", "total_incl_tax", "total_paid", "is_removed", "version").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToSnapshot(), nil
}

// UpdatePaymentStatus writes the reconciled status and total paid in one
// conditional statement
func (r *GormDocumentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status invoicing.Status, totalPaid decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":     status,
			"total_paid": totalPaid,
			"updated_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// ResetRemovedTotals zeroes the totals of a removed document
func (r *GormDocumentRepository) ResetRemovedTotals(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ? AND is_removed = ?", id, true).
		Updates(map[string]interface{}{
			"total_incl_tax": decimal.Zero,
			"total_paid":     decimal.Zero,
			"total_excl_tax": decimal.Zero,
			"updated_at":     time.Now(),
			"version":        gorm.Expr("version + 1"),
		}).Error
}

var _ invoicing.DocumentRepository = (*GormDocumentRepository)(nil)
