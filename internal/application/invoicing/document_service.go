package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DocumentService handles document writes. Every save runs the numbering
// service first, so a document is never persisted without a reference.
type DocumentService struct {
	repo        invoicing.DocumentRepository
	numbering   *invoicing.NumberingService
	logger      *zap.Logger
	metrics     *telemetry.InvoicingMetrics
	gracePeriod time.Duration
	now         func() time.Time
}

// DocumentServiceOption configures a DocumentService
type DocumentServiceOption func(*DocumentService)

// WithDocumentMetrics records sequence allocations
func WithDocumentMetrics(m *telemetry.InvoicingMetrics) DocumentServiceOption {
	return func(s *DocumentService) {
		s.metrics = m
	}
}

// WithGracePeriod sets the window during which an unpaid document is shown
// as validated
func WithGracePeriod(d time.Duration) DocumentServiceOption {
	return func(s *DocumentService) {
		s.gracePeriod = d
	}
}

// WithClock replaces time.Now for status presentation
func WithClock(now func() time.Time) DocumentServiceOption {
	return func(s *DocumentService) {
		s.now = now
	}
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	repo invoicing.DocumentRepository,
	numbering *invoicing.NumberingService,
	logger *zap.Logger,
	opts ...DocumentServiceOption,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DocumentService{
		repo:        repo,
		numbering:   numbering,
		logger:      logger,
		gracePeriod: invoicing.DefaultGracePeriod,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a document and assigns its provisional or supplier
// reference
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "create",
		attribute.Bool("for_sales", req.ForSales))
	defer span.End()

	doc := invoicing.NewDocument(req.ForSales, req.IssueDate, invoicing.PaymentTermsCode(req.PaymentTermsCode))
	if req.PaymentModeCode != "" {
		doc.PaymentModeCode = req.PaymentModeCode
	}
	if req.Currency != "" {
		doc.Currency = valueobject.Currency(req.Currency)
	}
	doc.EntityAccountingRef = req.EntityAccountingRef
	doc.TotalExclTax = req.TotalExclTax
	doc.TotalInclTax = req.TotalInclTax
	doc.Correction = req.Correction
	doc.ShippingExclTax = req.ShippingExclTax
	doc.Discount = req.Discount.toDomain()
	doc.EarlyPaymentDiscount = req.EarlyPaymentDiscount.toDomain()
	doc.ReplaceLines(toDomainLines(req.Lines))

	if err := s.prepare(ctx, doc, true); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	doc.AddHistory(invoicing.HistoryModeCreated, doc.Ref)

	if err := s.repo.Create(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("document_ref", doc.Ref))

	s.logger.Info("document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("ref", doc.Ref),
		zap.Bool("for_sales", doc.ForSales),
	)
	return s.toResponse(doc), nil
}

// Update applies a partial update. A provisional document that is no longer
// a draft is promoted to its final reference on this save.
func (s *DocumentService) Update(ctx context.Context, id uuid.UUID, req UpdateDocumentRequest) (*DocumentResponse, error) {
	return s.mutate(ctx, "update", id, func(doc *invoicing.Document) error {
		if req.Version != 0 && req.Version != doc.Version {
			return shared.ErrConcurrencyConflict
		}
		if req.IssueDate != nil {
			doc.IssueDate = *req.IssueDate
		}
		if req.PaymentTermsCode != nil {
			doc.PaymentTermsCode = invoicing.PaymentTermsCode(*req.PaymentTermsCode)
		}
		if req.PaymentModeCode != nil {
			doc.PaymentModeCode = *req.PaymentModeCode
		}
		if req.EntityAccountingRef != nil && doc.HasProvisionalRef() {
			doc.EntityAccountingRef = *req.EntityAccountingRef
		}
		if req.TotalExclTax != nil || req.TotalInclTax != nil {
			exclTax, inclTax := doc.TotalExclTax, doc.TotalInclTax
			if req.TotalExclTax != nil {
				exclTax = *req.TotalExclTax
			}
			if req.TotalInclTax != nil {
				inclTax = *req.TotalInclTax
			}
			doc.SetTotals(exclTax, inclTax)
		}
		if req.Correction != nil {
			doc.Correction = *req.Correction
		}
		if req.ShippingExclTax != nil {
			doc.ShippingExclTax = *req.ShippingExclTax
		}
		if req.Discount != nil {
			doc.Discount = req.Discount.toDomain()
		}
		if req.EarlyPaymentDiscount != nil {
			doc.EarlyPaymentDiscount = req.EarlyPaymentDiscount.toDomain()
		}
		if req.Lines != nil {
			doc.ReplaceLines(toDomainLines(*req.Lines))
		}
		doc.Touch()
		return nil
	})
}

// Validate moves a draft to NOT_PAID and promotes its provisional reference
func (s *DocumentService) Validate(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	return s.mutate(ctx, "validate", id, func(doc *invoicing.Document) error {
		return doc.Validate()
	})
}

// Cancel cancels a document
func (s *DocumentService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*DocumentResponse, error) {
	return s.mutate(ctx, "cancel", id, func(doc *invoicing.Document) error {
		return doc.Cancel(reason)
	})
}

// ConvertToReduction converts a credit note into a customer reduction
func (s *DocumentService) ConvertToReduction(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	return s.mutate(ctx, "convert_to_reduction", id, func(doc *invoicing.Document) error {
		return doc.ConvertToReduction()
	})
}

// Remove flags a document as removed. The PaymentChanged event that makes
// reconciliation zero its totals is written by the repository in the same
// transaction, so either both are stored or neither is.
func (s *DocumentService) Remove(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	return s.mutate(ctx, "remove", id, func(doc *invoicing.Document) error {
		doc.MarkRemoved()
		return nil
	})
}

// Get retrieves a document by id or, when idOrRef is not a uuid, by reference
func (s *DocumentService) Get(ctx context.Context, idOrRef string) (*DocumentResponse, error) {
	doc, err := s.find(ctx, idOrRef)
	if err != nil {
		return nil, err
	}
	return s.toResponse(doc), nil
}

// StatusView returns the display status of a document
func (s *DocumentService) StatusView(ctx context.Context, idOrRef string) (*StatusViewResponse, error) {
	doc, err := s.find(ctx, idOrRef)
	if err != nil {
		return nil, err
	}
	view := ToStatusViewResponse(s.present(doc))
	return &view, nil
}

// List retrieves documents with filtering and pagination
func (s *DocumentService) List(ctx context.Context, filter ListDocumentsFilter) (shared.Paginated[DocumentListResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}
	if filter.Status != "" && !invoicing.Status(filter.Status).IsValid() {
		return shared.Paginated[DocumentListResponse]{}, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown status %q", filter.Status))
	}

	docs, total, err := s.repo.FindAll(ctx, filter.toDomain())
	if err != nil {
		return shared.Paginated[DocumentListResponse]{}, err
	}
	items := make([]DocumentListResponse, len(docs))
	for i := range docs {
		items[i] = ToDocumentListResponse(&docs[i], s.present(&docs[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// mutate loads a document, applies fn, renumbers it and writes it back
// conditionally on the version it was loaded with
func (s *DocumentService) mutate(ctx context.Context, method string, id uuid.UUID, fn func(*invoicing.Document) error) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", method,
		attribute.String("document_id", id.String()))
	defer span.End()

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, doc, false); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.repo.Update(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("document saved",
		zap.String("operation", method),
		zap.String("document_id", doc.ID.String()),
		zap.String("ref", doc.Ref),
		zap.String("status", doc.Status.String()),
		zap.Int("version", doc.Version),
	)
	return s.toResponse(doc), nil
}

func (s *DocumentService) prepare(ctx context.Context, doc *invoicing.Document, isNew bool) error {
	doc.Normalize()

	res, err := s.numbering.Prepare(ctx, doc, isNew)
	if err != nil {
		s.logger.Error("numbering failed, document not saved",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return err
	}
	if res.UnknownPaymentTerms {
		s.logger.Warn("unknown payment terms, due date set to issue date",
			zap.String("document_id", doc.ID.String()),
			zap.String("payment_terms", string(doc.PaymentTermsCode)),
		)
	}
	if res.Allocated != nil {
		s.metrics.RecordAllocation(ctx, res.Counter)
	}
	if res.Promoted {
		s.logger.Info("document promoted",
			zap.String("document_id", doc.ID.String()),
			zap.String("ref", doc.Ref),
		)
	}
	return nil
}

func (s *DocumentService) find(ctx context.Context, idOrRef string) (*invoicing.Document, error) {
	if id, err := uuid.Parse(idOrRef); err == nil {
		doc, err := s.repo.FindByID(ctx, id)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return doc, err
		}
	}
	return s.repo.FindByRef(ctx, idOrRef)
}

func (s *DocumentService) present(doc *invoicing.Document) invoicing.StatusView {
	return invoicing.Present(doc.Status, doc.DueDate, s.now(), s.gracePeriod)
}

func (s *DocumentService) toResponse(doc *invoicing.Document) *DocumentResponse {
	resp := ToDocumentResponse(doc, s.present(doc))
	return &resp
}
