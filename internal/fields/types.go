package fields

import (
	"errors"
	"fmt"
	"strings"

	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

// Type identifies what a field captures from the signer.
type Type string

const (
	TypeText      Type = "text"
	TypeDate      Type = "date"
	TypeSignature Type = "signature"
	TypeCheckbox  Type = "checkbox"
)

// Types lists every field type in palette order.
var Types = []Type{TypeText, TypeDate, TypeSignature, TypeCheckbox}

// ErrFieldNotFound is returned when a key does not name a field in the model.
var ErrFieldNotFound = errors.New("field not found")

// DuplicateOffset is added to a field's position when it is duplicated.
var DuplicateOffset = geometry.Point{X: 20, Y: 20}

// ParseType converts a string such as "signature" into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown field type %q (must be one of: text, date, signature, checkbox)", s)
	}
	return t, nil
}

// Valid reports whether t is a known field type.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeDate, TypeSignature, TypeCheckbox:
		return true
	default:
		return false
	}
}

// DefaultSize returns the size, in document units, given to new fields of type t.
func (t Type) DefaultSize() geometry.Size {
	switch t {
	case TypeSignature:
		return geometry.Size{Width: 180, Height: 60}
	case TypeCheckbox:
		return geometry.Size{Width: 24, Height: 24}
	default:
		return geometry.Size{Width: 120, Height: 32}
	}
}

// DefaultPlaceholder returns the hint text shown inside new fields of type t.
func (t Type) DefaultPlaceholder() string {
	switch t {
	case TypeText:
		return "Enter text here"
	case TypeDate:
		return "Select date"
	case TypeSignature:
		return "Sign here"
	default:
		return ""
	}
}

// Field is a placeable region on a template page.
type Field struct {
	// Key identifies the field within one designer session. It is never
	// persisted.
	Key int `json:"-"`

	// ID is assigned by storage and is empty for unsaved fields.
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        Type           `json:"type"`
	Position    geometry.Point `json:"position"`
	Size        geometry.Size  `json:"size"`
	Page        int            `json:"page"`
	Required    bool           `json:"required"`
	Placeholder string         `json:"placeholder,omitempty"`
	Properties  Properties     `json:"-"`
}

// Bounds returns the field's rectangle in document space.
func (f Field) Bounds() geometry.Rect {
	return geometry.Rect{Origin: f.Position, Size: f.Size}
}

// Clone returns a copy of f that shares no mutable state with it.
func (f Field) Clone() Field {
	if f.Properties != nil {
		f.Properties = f.Properties.clone()
	}
	return f
}

// Update describes a property-panel edit. Nil members are left unchanged.
type Update struct {
	Name        *string
	Type        *Type
	Required    *bool
	Placeholder *string
	Properties  Properties
}
