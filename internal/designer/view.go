package designer

import (
	"github.com/a3tai/pdf-field-designer/internal/viewer"
)

// withView runs fn on the viewer under the session lock.
func (s *Session) withView(fn func(v *viewer.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == nil {
		return ErrNoDocument
	}
	fn(s.view)
	return nil
}

// GoToPage moves to page n, clamped to the document.
func (s *Session) GoToPage(n int) (int, error) {
	var page int
	err := s.withView(func(v *viewer.State) { page = v.GoToPage(n) })
	return page, err
}

func (s *Session) NextPage() (int, error) {
	var page int
	err := s.withView(func(v *viewer.State) { page = v.NextPage() })
	return page, err
}

func (s *Session) PrevPage() (int, error) {
	var page int
	err := s.withView(func(v *viewer.State) { page = v.PrevPage() })
	return page, err
}

func (s *Session) FirstPage() (int, error) {
	var page int
	err := s.withView(func(v *viewer.State) { page = v.FirstPage() })
	return page, err
}

func (s *Session) LastPage() (int, error) {
	var page int
	err := s.withView(func(v *viewer.State) { page = v.LastPage() })
	return page, err
}

func (s *Session) ZoomIn() (float64, error) {
	var zoom float64
	err := s.withView(func(v *viewer.State) { zoom = v.ZoomIn() })
	return zoom, err
}

func (s *Session) ZoomOut() (float64, error) {
	var zoom float64
	err := s.withView(func(v *viewer.State) { zoom = v.ZoomOut() })
	return zoom, err
}

func (s *Session) ResetZoom() (float64, error) {
	var zoom float64
	err := s.withView(func(v *viewer.State) { zoom = v.ResetZoom() })
	return zoom, err
}

// SetZoom snaps zoom to the nearest step.
func (s *Session) SetZoom(zoom float64) (float64, error) {
	var got float64
	err := s.withView(func(v *viewer.State) { got = v.SetZoom(zoom) })
	return got, err
}

// SetViewMode changes the multiplier applied on top of the zoom level.
func (s *Session) SetViewMode(mode viewer.ViewMode) error {
	return s.withView(func(v *viewer.State) { v.SetViewMode(mode) })
}

// SetLayout switches between paginated and continuous page arrangement.
func (s *Session) SetLayout(layout viewer.Layout) error {
	return s.withView(func(v *viewer.State) { v.SetLayout(layout) })
}

// HandleKey applies a keyboard shortcut. It reports whether the key was
// acted upon; without a document nothing is.
func (s *Session) HandleKey(ev viewer.KeyEvent) bool {
	var handled bool
	_ = s.withView(func(v *viewer.State) { handled = v.HandleKey(ev) })
	return handled
}
