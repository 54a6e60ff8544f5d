// Package viewer tracks page navigation, zoom and responsive view mode for
// an open multi-page document.
package viewer

import (
	"errors"
	"fmt"
	"math"

	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

// ViewMode selects the responsive scale multiplier applied on top of zoom.
type ViewMode string

const (
	ViewDesktop ViewMode = "desktop"
	ViewTablet  ViewMode = "tablet"
	ViewMobile  ViewMode = "mobile"
)

// Multiplier returns the scale factor for the view mode.
func (m ViewMode) Multiplier() float64 {
	switch m {
	case ViewTablet:
		return 0.8
	case ViewMobile:
		return 0.6
	default:
		return 1.0
	}
}

// ParseViewMode converts a string into a ViewMode.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewDesktop, ViewTablet, ViewMobile:
		return m, nil
	default:
		return "", fmt.Errorf("unknown view mode %q (must be one of: desktop, tablet, mobile)", s)
	}
}

// Layout is how pages are arranged on screen.
type Layout int

const (
	// LayoutPaginated shows one page at a time.
	LayoutPaginated Layout = iota
	// LayoutContinuous stacks every page vertically in one scroll area.
	LayoutContinuous
)

func (l Layout) String() string {
	if l == LayoutContinuous {
		return "continuous"
	}
	return "paginated"
}

// ZoomSteps are the discrete zoom levels, ascending.
var ZoomSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0, 3.0}

const (
	// DefaultZoom is the level ResetZoom returns to.
	DefaultZoom = 1.0

	// PageGap is the vertical space, in screen pixels, between pages in
	// continuous layout.
	PageGap = 16.0
)

// MinScale and MaxScale bound the zoom level.
var (
	MinScale = ZoomSteps[0]
	MaxScale = ZoomSteps[len(ZoomSteps)-1]
)

// ErrNoPages is returned when a viewer is opened on an empty document.
var ErrNoPages = errors.New("document has no pages")

// State is the navigation and zoom state of one open document.
type State struct {
	page        int
	totalPages  int
	zoomIndex   int
	defaultZoom int
	mode        ViewMode
	layout      Layout
	pageSizes   []geometry.Size
}

// Option configures a new State.
type Option func(*State) error

// WithDefaultZoom sets the level used initially and by ResetZoom. It must be
// one of ZoomSteps.
func WithDefaultZoom(zoom float64) Option {
	return func(s *State) error {
		i := stepIndex(zoom)
		if i < 0 {
			return fmt.Errorf("default zoom %.2f is not one of the zoom steps %v", zoom, ZoomSteps)
		}
		s.defaultZoom = i
		s.zoomIndex = i
		return nil
	}
}

// WithViewMode sets the initial view mode.
func WithViewMode(mode ViewMode) Option {
	return func(s *State) error {
		s.mode = mode
		return nil
	}
}

// WithLayout sets the page arrangement.
func WithLayout(layout Layout) Option {
	return func(s *State) error {
		s.layout = layout
		return nil
	}
}

// WithPageSizes records the unscaled size of every page; it is needed to
// stack pages in continuous layout.
func WithPageSizes(sizes []geometry.Size) Option {
	return func(s *State) error {
		s.pageSizes = append([]geometry.Size(nil), sizes...)
		return nil
	}
}

// NewState opens a viewer on page 1 of a document with totalPages pages.
func NewState(totalPages int, opts ...Option) (*State, error) {
	if totalPages < 1 {
		return nil, ErrNoPages
	}

	def := stepIndex(DefaultZoom)
	s := &State{
		page:        1,
		totalPages:  totalPages,
		zoomIndex:   def,
		defaultZoom: def,
		mode:        ViewDesktop,
		layout:      LayoutPaginated,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Page returns the current 1-based page.
func (s *State) Page() int { return s.page }

// TotalPages returns the number of pages in the document.
func (s *State) TotalPages() int { return s.totalPages }

// Zoom returns the current zoom level.
func (s *State) Zoom() float64 { return ZoomSteps[s.zoomIndex] }

// ViewMode returns the responsive view mode.
func (s *State) ViewMode() ViewMode { return s.mode }

// Layout returns the page arrangement.
func (s *State) Layout() Layout { return s.layout }

// EffectiveScale is zoom multiplied by the view-mode multiplier; it is the
// single factor between document space and screen space.
func (s *State) EffectiveScale() float64 {
	return s.Zoom() * s.mode.Multiplier()
}

// GoToPage moves to page n, clamped to the document's page range.
func (s *State) GoToPage(n int) int {
	s.page = clampInt(n, 1, s.totalPages)
	return s.page
}

// NextPage moves one page forward.
func (s *State) NextPage() int { return s.GoToPage(s.page + 1) }

// PrevPage moves one page back.
func (s *State) PrevPage() int { return s.GoToPage(s.page - 1) }

// FirstPage moves to page 1.
func (s *State) FirstPage() int { return s.GoToPage(1) }

// LastPage moves to the final page.
func (s *State) LastPage() int { return s.GoToPage(s.totalPages) }

// ZoomIn moves to the next higher zoom step, stopping at MaxScale.
func (s *State) ZoomIn() float64 {
	if s.zoomIndex < len(ZoomSteps)-1 {
		s.zoomIndex++
	}
	return s.Zoom()
}

// ZoomOut moves to the next lower zoom step, stopping at MinScale.
func (s *State) ZoomOut() float64 {
	if s.zoomIndex > 0 {
		s.zoomIndex--
	}
	return s.Zoom()
}

// ResetZoom returns to the default zoom level.
func (s *State) ResetZoom() float64 {
	s.zoomIndex = s.defaultZoom
	return s.Zoom()
}

// SetZoom snaps zoom to the nearest step.
func (s *State) SetZoom(zoom float64) float64 {
	best := 0
	for i, step := range ZoomSteps {
		if math.Abs(step-zoom) < math.Abs(ZoomSteps[best]-zoom) {
			best = i
		}
	}
	s.zoomIndex = best
	return s.Zoom()
}

// SetViewMode changes the multiplier; the stored zoom level is unchanged.
func (s *State) SetViewMode(mode ViewMode) {
	s.mode = mode
}

// SetLayout changes the page arrangement.
func (s *State) SetLayout(layout Layout) {
	s.layout = layout
}

// PageSize returns the unscaled size of page n, or the zero size when page
// sizes are unknown.
func (s *State) PageSize(n int) geometry.Size {
	if n < 1 || n > len(s.pageSizes) {
		return geometry.Size{}
	}
	return s.pageSizes[n-1]
}

// PageOrigin is the on-screen top-left of page n relative to the scroll
// area. In paginated layout only one page is shown, so it is always the
// origin.
func (s *State) PageOrigin(n int) geometry.Point {
	if s.layout != LayoutContinuous {
		return geometry.Point{}
	}

	scale := s.EffectiveScale()
	y := 0.0
	for p := 1; p < clampInt(n, 1, s.totalPages); p++ {
		y += s.PageSize(p).Height*scale + PageGap
	}
	return geometry.Point{X: 0, Y: y}
}

// PageAtOffset maps a vertical scroll offset to the page occupying it in
// continuous layout. Paginated layout always reports the current page.
func (s *State) PageAtOffset(y float64) int {
	if s.layout != LayoutContinuous {
		return s.page
	}

	scale := s.EffectiveScale()
	top := 0.0
	for p := 1; p <= s.totalPages; p++ {
		bottom := top + s.PageSize(p).Height*scale
		if y < bottom+PageGap {
			return p
		}
		top = bottom + PageGap
	}
	return s.totalPages
}

func stepIndex(zoom float64) int {
	for i, step := range ZoomSteps {
		if step == zoom {
			return i
		}
	}
	return -1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
