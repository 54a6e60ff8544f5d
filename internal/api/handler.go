// Package api exposes templates and their field layouts over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/document"
	"github.com/a3tai/pdf-field-designer/internal/fields"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
	"github.com/a3tai/pdf-field-designer/internal/store"
)

// DocumentLoader opens a template document to read its page layout.
type DocumentLoader interface {
	Load(ctx context.Context, src string) (*document.Document, error)
}

type templateDTO struct {
	Name        string `json:"name"         binding:"required"`
	DocumentURL string `json:"document_url"`
	PageCount   int    `json:"page_count"   binding:"min=0"`
}

type fieldDTO struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Type        string          `json:"type"       binding:"required"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Page        int             `json:"page"       binding:"required,min=1"`
	Required    bool            `json:"required"`
	Placeholder string          `json:"placeholder"`
	Properties  json.RawMessage `json:"properties,omitempty"`
}

type saveFieldsDTO struct {
	Fields []fieldDTO `json:"fields" binding:"dive"`
}

func toFieldDTO(f fields.Field) (fieldDTO, error) {
	props, err := fields.MarshalProperties(f.Properties)
	if err != nil {
		return fieldDTO{}, err
	}
	return fieldDTO{
		ID:          f.ID,
		Name:        f.Name,
		Type:        string(f.Type),
		X:           f.Position.X,
		Y:           f.Position.Y,
		Width:       f.Size.Width,
		Height:      f.Size.Height,
		Page:        f.Page,
		Required:    f.Required,
		Placeholder: f.Placeholder,
		Properties:  props,
	}, nil
}

// toField converts a request field. Negative coordinates are clamped; other
// values are accepted as sent.
func (d fieldDTO) toField() (fields.Field, error) {
	t, err := fields.ParseType(d.Type)
	if err != nil {
		return fields.Field{}, err
	}
	props, err := fields.UnmarshalProperties(d.Properties, t)
	if err != nil {
		return fields.Field{}, err
	}
	if props.Kind() != t {
		return fields.Field{}, fmt.Errorf("%s properties on a %s field", props.Kind(), t)
	}
	return fields.Field{
		ID:          d.ID,
		Name:        d.Name,
		Type:        t,
		Position:    geometry.Point{X: d.X, Y: d.Y}.Clamp(),
		Size:        geometry.Size{Width: d.Width, Height: d.Height},
		Page:        d.Page,
		Required:    d.Required,
		Placeholder: d.Placeholder,
		Properties:  props,
	}, nil
}

type loadErrorResponse struct {
	OK         int    `json:"ok"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Kind       string `json:"kind"`
	DirectLink string `json:"direct_link,omitempty"`
}

// Handler serves template and field endpoints.
type Handler struct {
	repo   store.Repository
	loader DocumentLoader
	logger *zap.Logger
}

// NewHandler creates a handler. loader may be nil, in which case page
// counts are never derived from documents.
func NewHandler(repo store.Repository, loader DocumentLoader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, loader: loader, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/templates")

	g.GET("", h.listTemplates)
	g.POST("", h.createTemplate)
	g.GET("/:id", h.getTemplate)
	g.PUT("/:id", h.updateTemplate)
	g.GET("/:id/document", h.getDocument)
	g.GET("/:id/fields", h.listFields)
	g.PUT("/:id/fields", h.saveFields)
}

// GET /templates
func (h *Handler) listTemplates(c *gin.Context) {
	items, err := h.repo.ListTemplates(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	list(c, items)
}

// POST /templates
func (h *Handler) createTemplate(c *gin.Context) {
	var dto templateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.upsertTemplate(c, store.Template{Name: dto.Name, DocumentURL: dto.DocumentURL, PageCount: dto.PageCount}, true)
}

// PUT /templates/:id
func (h *Handler) updateTemplate(c *gin.Context) {
	var dto templateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}
	tpl := store.Template{ID: c.Param("id"), Name: dto.Name, DocumentURL: dto.DocumentURL, PageCount: dto.PageCount}
	h.upsertTemplate(c, tpl, false)
}

func (h *Handler) upsertTemplate(c *gin.Context, tpl store.Template, isNew bool) {
	if tpl.PageCount == 0 && tpl.DocumentURL != "" && h.loader != nil {
		doc, err := h.loader.Load(c.Request.Context(), tpl.DocumentURL)
		if err != nil {
			h.documentError(c, err)
			return
		}
		tpl.PageCount = doc.PageCount
	}

	saved, err := h.repo.UpsertTemplate(c.Request.Context(), tpl)
	if err != nil {
		internalError(c, err)
		return
	}
	if isNew {
		created(c, saved)
		return
	}
	ok(c, saved)
}

// GET /templates/:id
func (h *Handler) getTemplate(c *gin.Context) {
	tpl, found := h.template(c)
	if !found {
		return
	}
	ok(c, tpl)
}

// GET /templates/:id/document
func (h *Handler) getDocument(c *gin.Context) {
	tpl, found := h.template(c)
	if !found {
		return
	}
	if h.loader == nil || tpl.DocumentURL == "" {
		notFound(c, "template has no document")
		return
	}
	doc, err := h.loader.Load(c.Request.Context(), tpl.DocumentURL)
	if err != nil {
		h.documentError(c, err)
		return
	}
	ok(c, doc)
}

// GET /templates/:id/fields
func (h *Handler) listFields(c *gin.Context) {
	tpl, found := h.template(c)
	if !found {
		return
	}
	items, err := h.repo.LoadFields(c.Request.Context(), tpl.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	h.respondFields(c, items)
}

// PUT /templates/:id/fields replaces the whole field set.
func (h *Handler) saveFields(c *gin.Context) {
	tpl, found := h.template(c)
	if !found {
		return
	}

	var dto saveFieldsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		badRequest(c, err.Error())
		return
	}

	in := make([]fields.Field, len(dto.Fields))
	for i, d := range dto.Fields {
		f, err := d.toField()
		if err != nil {
			badRequest(c, fmt.Sprintf("fields[%d]: %v", i, err))
			return
		}
		if tpl.PageCount > 0 && f.Page > tpl.PageCount {
			badRequest(c, fmt.Sprintf("fields[%d]: page %d exceeds page count %d", i, f.Page, tpl.PageCount))
			return
		}
		in[i] = f
	}

	saved, err := h.repo.SaveFields(c.Request.Context(), tpl.ID, in)
	if err != nil {
		h.logger.Error("save fields failed", zap.String("template_id", tpl.ID), zap.Error(err))
		internalError(c, err)
		return
	}
	h.logger.Info("fields saved", zap.String("template_id", tpl.ID), zap.Int("count", len(saved)))
	h.respondFields(c, saved)
}

func (h *Handler) respondFields(c *gin.Context, items []fields.Field) {
	out := make([]fieldDTO, len(items))
	for i, f := range items {
		d, err := toFieldDTO(f)
		if err != nil {
			internalError(c, err)
			return
		}
		out[i] = d
	}
	list(c, out)
}

func (h *Handler) template(c *gin.Context) (*store.Template, bool) {
	tpl, err := h.repo.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrTemplateNotFound) {
			notFound(c, "template not found")
			return nil, false
		}
		internalError(c, err)
		return nil, false
	}
	return tpl, true
}

func (h *Handler) documentError(c *gin.Context, err error) {
	var lerr *document.LoadError
	if !errors.As(err, &lerr) {
		internalError(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, loadErrorResponse{
		OK:         0,
		Code:       http.StatusUnprocessableEntity,
		Message:    lerr.UserMessage(),
		Kind:       lerr.Kind.String(),
		DirectLink: lerr.DirectLink(),
	})
}
