// Package fields holds the in-memory list of placeable fields for the
// template open in a designer session.
package fields

import (
	"fmt"
	"time"

	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

// Model owns the ordered field list of one template. It is not safe for
// concurrent use; a designer session serializes all access.
type Model struct {
	fields  []Field
	nextKey int
	now     func() time.Time
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{nextKey: 1, now: time.Now}
}

// NewModelWithClock creates an empty model whose generated names use now.
func NewModelWithClock(now func() time.Time) *Model {
	m := NewModel()
	if now != nil {
		m.now = now
	}
	return m
}

// Create adds a field of type t at the given document-space point. Size,
// placeholder and properties come from the type defaults; the field is
// required and gets a generated name, suffixed with a sequence number when
// another field already has it.
func (m *Model) Create(t Type, at geometry.Point, page int) Field {
	f := Field{
		Name:        m.uniqueName(fmt.Sprintf("%s_field_%d", t, m.now().UnixMilli())),
		Type:        t,
		Position:    at.Clamp(),
		Size:        t.DefaultSize(),
		Page:        page,
		Required:    true,
		Placeholder: t.DefaultPlaceholder(),
		Properties:  DefaultProperties(t),
	}
	return m.insert(f)
}

// Move sets a field's position, clamping both coordinates to zero. It
// returns false when key does not name a field.
func (m *Model) Move(key int, to geometry.Point) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	m.fields[i].Position = to.Clamp()
	return true
}

// MoveTo sets a field's position and page. The position is clamped like Move.
func (m *Model) MoveTo(key int, to geometry.Point, page int) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	m.fields[i].Position = to.Clamp()
	m.fields[i].Page = page
	return true
}

// ClampPages moves fields whose page lies outside [1, last] onto the nearest
// valid page and returns how many moved.
func (m *Model) ClampPages(last int) int {
	if last < 1 {
		return 0
	}
	moved := 0
	for i := range m.fields {
		switch p := m.fields[i].Page; {
		case p < 1:
			m.fields[i].Page = 1
		case p > last:
			m.fields[i].Page = last
		default:
			continue
		}
		moved++
	}
	return moved
}

// Duplicate copies a field. The copy has no ID, its name is suffixed with
// "_copy" and it sits DuplicateOffset away from the original.
func (m *Model) Duplicate(key int) (Field, error) {
	i := m.index(key)
	if i < 0 {
		return Field{}, fmt.Errorf("duplicate field %d: %w", key, ErrFieldNotFound)
	}

	dup := m.fields[i].Clone()
	dup.ID = ""
	dup.Name += "_copy"
	dup.Position = dup.Position.Add(DuplicateOffset)
	return m.insert(dup), nil
}

// Delete removes a field from the list.
func (m *Model) Delete(key int) error {
	i := m.index(key)
	if i < 0 {
		return fmt.Errorf("delete field %d: %w", key, ErrFieldNotFound)
	}
	m.fields = append(m.fields[:i], m.fields[i+1:]...)
	return nil
}

// Apply performs a property-panel edit. Changing the type resets size,
// placeholder and properties to the new type's defaults before the other
// members of u are applied.
func (m *Model) Apply(key int, u Update) (Field, error) {
	i := m.index(key)
	if i < 0 {
		return Field{}, fmt.Errorf("update field %d: %w", key, ErrFieldNotFound)
	}
	f := &m.fields[i]

	if u.Type != nil && *u.Type != f.Type {
		if !u.Type.Valid() {
			return Field{}, fmt.Errorf("update field %d: unknown type %q", key, *u.Type)
		}
		f.Type = *u.Type
		f.Size = f.Type.DefaultSize()
		f.Placeholder = f.Type.DefaultPlaceholder()
		f.Properties = DefaultProperties(f.Type)
	}
	if u.Name != nil {
		f.Name = *u.Name
	}
	if u.Required != nil {
		f.Required = *u.Required
	}
	if u.Placeholder != nil {
		f.Placeholder = *u.Placeholder
	}
	if u.Properties != nil {
		if u.Properties.Kind() != f.Type {
			return Field{}, fmt.Errorf("update field %d: %s properties on a %s field", key, u.Properties.Kind(), f.Type)
		}
		f.Properties = u.Properties.clone()
	}
	return f.Clone(), nil
}

// ReplaceAll discards the current list and adopts fields, typically the
// canonical copy returned by storage after a save.
func (m *Model) ReplaceAll(fields []Field) {
	m.fields = m.fields[:0]
	for _, f := range fields {
		m.insert(f.Clone())
	}
}

// Get returns the field with the given key.
func (m *Model) Get(key int) (Field, bool) {
	i := m.index(key)
	if i < 0 {
		return Field{}, false
	}
	return m.fields[i].Clone(), true
}

// Fields returns a snapshot of every field in creation order.
func (m *Model) Fields() []Field {
	out := make([]Field, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Clone()
	}
	return out
}

// OnPage returns the fields placed on page, in creation order.
func (m *Model) OnPage(page int) []Field {
	var out []Field
	for _, f := range m.fields {
		if f.Page == page {
			out = append(out, f.Clone())
		}
	}
	return out
}

// Len returns the number of fields.
func (m *Model) Len() int {
	return len(m.fields)
}

func (m *Model) insert(f Field) Field {
	f.Key = m.nextKey
	m.nextKey++
	m.fields = append(m.fields, f)
	return f.Clone()
}

func (m *Model) uniqueName(base string) string {
	name := base
	for n := 2; m.hasName(name); n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	return name
}

func (m *Model) hasName(name string) bool {
	for i := range m.fields {
		if m.fields[i].Name == name {
			return true
		}
	}
	return false
}

func (m *Model) index(key int) int {
	for i := range m.fields {
		if m.fields[i].Key == key {
			return i
		}
	}
	return -1
}
