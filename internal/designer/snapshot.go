package designer

import (
	"encoding/json"
	"errors"

	"github.com/a3tai/pdf-field-designer/internal/document"
	"github.com/a3tai/pdf-field-designer/internal/fields"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
	"github.com/a3tai/pdf-field-designer/internal/viewer"
)

// Snapshot is a point-in-time view of a session for display.
type Snapshot struct {
	TemplateID  string          `json:"template_id"`
	Mode        string          `json:"mode"`
	ArmedType   fields.Type     `json:"armed_type,omitempty"`
	DraggingKey int             `json:"dragging_key,omitempty"`
	Locked      bool            `json:"locked"`
	SelectedKey int             `json:"selected_key,omitempty"`
	Saving      bool            `json:"saving"`
	Notice      *Notice         `json:"notice,omitempty"`
	Document    *DocumentStatus `json:"document"`
	Viewer      *ViewerStatus   `json:"viewer,omitempty"`
	Fields      []FieldView     `json:"fields"`
}

// DocumentStatus describes the loaded document or the reason it is missing.
type DocumentStatus struct {
	Loaded      bool   `json:"loaded"`
	PageCount   int    `json:"page_count,omitempty"`
	Library     string `json:"library,omitempty"`
	ViaFallback bool   `json:"via_fallback,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	DirectLink  string `json:"direct_link,omitempty"`
}

// ViewerStatus is the navigation state.
type ViewerStatus struct {
	Page           int     `json:"page"`
	TotalPages     int     `json:"total_pages"`
	Zoom           float64 `json:"zoom"`
	ViewMode       string  `json:"view_mode"`
	Layout         string  `json:"layout"`
	EffectiveScale float64 `json:"effective_scale"`
}

// FieldView is a field with its session key, encoded properties and
// on-screen rectangle. Screen is nil for fields on pages not shown.
type FieldView struct {
	Key int `json:"key"`
	fields.Field
	Properties json.RawMessage `json:"properties,omitempty"`
	Screen     *geometry.Rect  `json:"screen,omitempty"`
}

// Snapshot captures the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TemplateID:  s.templateID,
		Mode:        s.state.Mode().String(),
		Locked:      s.locked,
		SelectedKey: s.selected,
		Saving:      s.saving,
		Document:    s.documentStatus(),
	}
	switch st := s.state.(type) {
	case PlacementArmed:
		snap.ArmedType = st.Type
	case Dragging:
		snap.DraggingKey = st.Key
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}

	list := s.model.Fields()
	snap.Fields = make([]FieldView, len(list))
	for i, f := range list {
		snap.Fields[i] = FieldView{Key: f.Key, Field: f}
		if props, err := fields.MarshalProperties(f.Properties); err == nil {
			snap.Fields[i].Properties = props
		}
	}

	if s.view != nil {
		scale := s.view.EffectiveScale()
		snap.Viewer = &ViewerStatus{
			Page:           s.view.Page(),
			TotalPages:     s.view.TotalPages(),
			Zoom:           s.view.Zoom(),
			ViewMode:       string(s.view.ViewMode()),
			Layout:         s.view.Layout().String(),
			EffectiveScale: scale,
		}
		for i, f := range list {
			// Paginated layout shows only the current page.
			if s.view.Layout() != viewer.LayoutContinuous && f.Page != s.view.Page() {
				continue
			}
			r := geometry.RectToScreen(f.Bounds(), s.view.PageOrigin(f.Page), scale)
			snap.Fields[i].Screen = &r
		}
	}
	return snap
}

func (s *Session) documentStatus() *DocumentStatus {
	if s.doc != nil {
		return &DocumentStatus{
			Loaded:      true,
			PageCount:   s.doc.PageCount,
			Library:     string(s.doc.Library),
			ViaFallback: s.doc.ViaFallback,
		}
	}
	status := &DocumentStatus{}
	if s.docErr == nil {
		return status
	}

	var lerr *document.LoadError
	if errors.As(s.docErr, &lerr) {
		status.Error = lerr.UserMessage()
		status.ErrorKind = lerr.Kind.String()
		status.DirectLink = lerr.DirectLink()
	} else {
		status.Error = s.docErr.Error()
	}
	return status
}
