// Package designer drives field placement on a template document: the
// interaction state machine, selection, the lock overlay and saving.
package designer

import (
	"github.com/a3tai/pdf-field-designer/internal/fields"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

// Mode names the interaction state.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlacementArmed
	ModeDragging
)

func (m Mode) String() string {
	switch m {
	case ModePlacementArmed:
		return "placement_armed"
	case ModeDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// State is one of Idle, PlacementArmed or Dragging. The lock is tracked
// separately because it overlays every state.
type State interface {
	Mode() Mode
	isState()
}

// Idle waits for a pointer gesture or a field type to be armed.
type Idle struct{}

// PlacementArmed places a field of Type at the next page click.
type PlacementArmed struct {
	Type fields.Type
}

// Dragging moves field Key while the pointer is down. Positions are derived
// from the start values so rounding never accumulates.
type Dragging struct {
	Key           int
	StartPointer  geometry.Point
	StartPosition geometry.Point
	StartPage     int
	Scale         float64
}

func (Idle) Mode() Mode           { return ModeIdle }
func (PlacementArmed) Mode() Mode { return ModePlacementArmed }
func (Dragging) Mode() Mode       { return ModeDragging }

func (Idle) isState()           {}
func (PlacementArmed) isState() {}
func (Dragging) isState()       {}

// target returns the unclamped field position on the start page for the
// current pointer.
func (d Dragging) target(pointer geometry.Point) geometry.Point {
	delta := geometry.DragDelta(pointer.Sub(d.StartPointer), d.Scale)
	return d.StartPosition.Add(delta)
}
