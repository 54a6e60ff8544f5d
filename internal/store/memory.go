package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/pdf-field-designer/internal/fields"
)

// MemoryRepository keeps templates and fields in process memory. It backs
// the "memory" database driver and tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	templates map[string]Template
	fields    map[string][]fields.Field
	now       func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		templates: make(map[string]Template),
		fields:    make(map[string][]fields.Field),
		now:       time.Now,
	}
}

func (r *MemoryRepository) GetTemplate(_ context.Context, id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("get template %s: %w", id, ErrTemplateNotFound)
	}
	return &tpl, nil
}

func (r *MemoryRepository) ListTemplates(_ context.Context) ([]Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpsertTemplate(_ context.Context, tpl Template) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	if existing, ok := r.templates[tpl.ID]; ok {
		tpl.CreatedAt = existing.CreatedAt
	} else {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	r.templates[tpl.ID] = tpl
	return &tpl, nil
}

func (r *MemoryRepository) LoadFields(_ context.Context, templateID string) ([]fields.Field, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.fields[templateID]
	out := make([]fields.Field, len(stored))
	for i, f := range stored {
		out[i] = f.Clone()
	}
	sortByPage(out)
	return out, nil
}

func (r *MemoryRepository) SaveFields(_ context.Context, templateID string, list []fields.Field) ([]fields.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]fields.Field, len(list))
	for i, f := range list {
		f = f.Clone()
		f.Key = 0
		f.ID = uuid.New().String()
		stored[i] = f
	}
	r.fields[templateID] = stored

	out := make([]fields.Field, len(stored))
	for i, f := range stored {
		out[i] = f.Clone()
	}
	sortByPage(out)
	return out, nil
}
