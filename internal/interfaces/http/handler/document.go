package handler

import (
	"context"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/i18n"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// LangQueryParam overrides Accept-Language when present
const LangQueryParam = "lang"

// DocumentUseCases is the document application service as seen by HTTP
type DocumentUseCases interface {
	Create(ctx context.Context, req appinvoicing.CreateDocumentRequest) (*appinvoicing.DocumentResponse, error)
	Update(ctx context.Context, id uuid.UUID, req appinvoicing.UpdateDocumentRequest) (*appinvoicing.DocumentResponse, error)
	Validate(ctx context.Context, id uuid.UUID) (*appinvoicing.DocumentResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*appinvoicing.DocumentResponse, error)
	ConvertToReduction(ctx context.Context, id uuid.UUID) (*appinvoicing.DocumentResponse, error)
	Remove(ctx context.Context, id uuid.UUID) (*appinvoicing.DocumentResponse, error)
	Get(ctx context.Context, idOrRef string) (*appinvoicing.DocumentResponse, error)
	StatusView(ctx context.Context, idOrRef string) (*appinvoicing.StatusViewResponse, error)
	List(ctx context.Context, filter appinvoicing.ListDocumentsFilter) (shared.Paginated[appinvoicing.DocumentListResponse], error)
}

// DocumentHandler handles billing document endpoints
type DocumentHandler struct {
	BaseHandler
	documents  DocumentUseCases
	translator *i18n.Translator
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents DocumentUseCases, translator *i18n.Translator) *DocumentHandler {
	return &DocumentHandler{
		documents:  documents,
		translator: translator,
	}
}

// Create creates a new document
func (h *DocumentHandler) Create(c *gin.Context) {
	var req appinvoicing.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, h.localizeDocument(c, doc))
}

// List lists documents with filtering and pagination
func (h *DocumentHandler) List(c *gin.Context) {
	var filter appinvoicing.ListDocumentsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.documents.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	tag := h.language(c)
	for i := range result.Items {
		h.localize(tag, &result.Items[i].Status)
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// Get returns a document by id or reference
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, h.localizeDocument(c, doc))
}

// Status returns the display status of a document with a localized label
func (h *DocumentHandler) Status(c *gin.Context) {
	view, err := h.documents.StatusView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.localize(h.language(c), view)
	h.Success(c, view)
}

// Update applies a partial update to a document
func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appinvoicing.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.documents.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, h.localizeDocument(c, doc))
}

// Validate promotes a draft to a definitive document
func (h *DocumentHandler) Validate(c *gin.Context) {
	h.transition(c, h.documents.Validate)
}

// ConvertToReduction converts a validated credit note into a reduction
func (h *DocumentHandler) ConvertToReduction(c *gin.Context) {
	h.transition(c, h.documents.ConvertToReduction)
}

// Remove soft-deletes a document
func (h *DocumentHandler) Remove(c *gin.Context) {
	h.transition(c, h.documents.Remove)
}

// Cancel cancels a document
func (h *DocumentHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req dto.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	doc, err := h.documents.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, h.localizeDocument(c, doc))
}

func (h *DocumentHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*appinvoicing.DocumentResponse, error)) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	doc, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, h.localizeDocument(c, doc))
}

// language picks the response language from ?lang, then Accept-Language
func (h *DocumentHandler) language(c *gin.Context) language.Tag {
	return h.translator.Match(c.Query(LangQueryParam), c.GetHeader("Accept-Language"))
}

func (h *DocumentHandler) localize(tag language.Tag, view *appinvoicing.StatusViewResponse) {
	view.Label = h.translator.Label(tag, view.Label)
}

func (h *DocumentHandler) localizeDocument(c *gin.Context, doc *appinvoicing.DocumentResponse) *appinvoicing.DocumentResponse {
	h.localize(h.language(c), &doc.Status)
	return doc
}
