// Package geometry converts between document space (unscaled PDF points,
// page-local) and screen space (pixels after zoom and view-mode scaling).
package geometry

import "fmt"

// Point is a position in either document or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p offset by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Clamp returns p with negative coordinates raised to zero.
func (p Point) Clamp() Point {
	return Point{X: clampNonNegative(p.X), Y: clampNonNegative(p.Y)}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale returns the size multiplied by factor.
func (s Size) Scale(factor float64) Size {
	return Size{Width: s.Width * factor, Height: s.Height * factor}
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	Origin Point `json:"origin"`
	Size   Size  `json:"size"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Origin.X && p.X <= r.Origin.X+r.Size.Width &&
		p.Y >= r.Origin.Y && p.Y <= r.Origin.Y+r.Size.Height
}

// ToDocumentSpace converts a pointer position to page-local document
// coordinates. pageOrigin is the on-screen top-left of the rendered page and
// scale is the effective scale, which must be positive. The result never has
// negative coordinates.
func ToDocumentSpace(pointer, pageOrigin Point, scale float64) Point {
	return Point{
		X: (pointer.X - pageOrigin.X) / scale,
		Y: (pointer.Y - pageOrigin.Y) / scale,
	}.Clamp()
}

// ToScreenSpace scales a document-space point for rendering. It is relative
// to the page origin.
func ToScreenSpace(doc Point, scale float64) Point {
	return Point{X: doc.X * scale, Y: doc.Y * scale}
}

// RectToScreen scales a document-space rectangle and places it relative to
// the given page origin.
func RectToScreen(r Rect, pageOrigin Point, scale float64) Rect {
	return Rect{
		Origin: pageOrigin.Add(ToScreenSpace(r.Origin, scale)),
		Size:   r.Size.Scale(scale),
	}
}

// DragDelta converts a pointer movement in pixels to a document-space delta
// so a dragged field tracks the pointer 1:1 at any zoom.
func DragDelta(pointerDelta Point, scale float64) Point {
	return Point{X: pointerDelta.X / scale, Y: pointerDelta.Y / scale}
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
