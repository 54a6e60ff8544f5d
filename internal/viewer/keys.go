package viewer

// Target is the kind of element that had focus when a key was pressed.
type Target int

const (
	TargetDocument Target = iota
	TargetInput
	TargetTextArea
	TargetContentEditable
)

// Editable reports whether typing in the target should be left alone.
func (t Target) Editable() bool {
	return t == TargetInput || t == TargetTextArea || t == TargetContentEditable
}

// KeyEvent is a key press delivered to the viewer.
type KeyEvent struct {
	Key    string
	Ctrl   bool
	Meta   bool
	Alt    bool
	Shift  bool
	Target Target
}

// Action is a viewer command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionNextPage
	ActionPrevPage
	ActionFirstPage
	ActionLastPage
	ActionZoomIn
	ActionZoomOut
	ActionResetZoom
)

func (a Action) String() string {
	switch a {
	case ActionNextPage:
		return "next_page"
	case ActionPrevPage:
		return "prev_page"
	case ActionFirstPage:
		return "first_page"
	case ActionLastPage:
		return "last_page"
	case ActionZoomIn:
		return "zoom_in"
	case ActionZoomOut:
		return "zoom_out"
	case ActionResetZoom:
		return "reset_zoom"
	default:
		return "none"
	}
}

var keyBindings = map[string]Action{
	"ArrowRight": ActionNextPage,
	"PageDown":   ActionNextPage,
	"ArrowLeft":  ActionPrevPage,
	"PageUp":     ActionPrevPage,
	"Home":       ActionFirstPage,
	"End":        ActionLastPage,
	"+":          ActionZoomIn,
	"=":          ActionZoomIn,
	"-":          ActionZoomOut,
	"0":          ActionResetZoom,
}

// ResolveKey maps a key event to an action. Events typed into editable
// targets or combined with Ctrl, Meta or Alt resolve to ActionNone so the
// host keeps its own handling (browser zoom, copy, ...).
func ResolveKey(ev KeyEvent) Action {
	if ev.Target.Editable() || ev.Ctrl || ev.Meta || ev.Alt {
		return ActionNone
	}
	return keyBindings[ev.Key]
}

// HandleKey applies the action bound to ev. The result is true only when an
// action ran, which is the caller's cue to prevent the default behavior.
func (s *State) HandleKey(ev KeyEvent) bool {
	action := ResolveKey(ev)
	switch action {
	case ActionNextPage:
		s.NextPage()
	case ActionPrevPage:
		s.PrevPage()
	case ActionFirstPage:
		s.FirstPage()
	case ActionLastPage:
		s.LastPage()
	case ActionZoomIn:
		s.ZoomIn()
	case ActionZoomOut:
		s.ZoomOut()
	case ActionResetZoom:
		s.ResetZoom()
	default:
		return false
	}
	return true
}
