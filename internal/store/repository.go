// Package store persists templates and their field layouts.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/a3tai/pdf-field-designer/internal/fields"
)

// ErrTemplateNotFound is returned when no template has the requested ID.
var ErrTemplateNotFound = errors.New("template not found")

// Template is the metadata of a source document that fields are placed on.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DocumentURL string    `json:"document_url"`
	PageCount   int       `json:"page_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FieldStore loads and replaces the field set of a template.
type FieldStore interface {
	// LoadFields returns the template's fields ordered by page number.
	// Fields on the same page keep the order they were saved in.
	LoadFields(ctx context.Context, templateID string) ([]fields.Field, error)

	// SaveFields replaces every stored field of the template with the given
	// list and returns the stored copies carrying their new IDs. Callers see
	// the replacement as atomic.
	SaveFields(ctx context.Context, templateID string, list []fields.Field) ([]fields.Field, error)
}

// Repository is the full persistence surface.
type Repository interface {
	FieldStore

	GetTemplate(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	UpsertTemplate(ctx context.Context, tpl Template) (*Template, error)
}

// sortByPage orders fields by page, keeping the relative order of fields
// that share a page.
func sortByPage(list []fields.Field) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Page < list[j].Page
	})
}
