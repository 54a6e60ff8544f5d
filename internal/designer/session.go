package designer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/document"
	"github.com/a3tai/pdf-field-designer/internal/fields"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
	"github.com/a3tai/pdf-field-designer/internal/store"
	"github.com/a3tai/pdf-field-designer/internal/viewer"
)

var (
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrLocked         = errors.New("layout is locked")
	ErrNoSelection    = errors.New("no field selected")
	ErrNoDocument     = errors.New("document is not loaded")
)

// DocumentLoader opens the template document.
type DocumentLoader interface {
	Load(ctx context.Context, src string) (*document.Document, error)
}

// NoticeKind tells a success notice from an error notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a dismissable message about the last save or load.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Session is one open designer for one template. Its methods are safe for
// concurrent use; all of them serialize on an internal lock except the
// blocking part of Save, Load and document loading.
type Session struct {
	templateID string
	source     string
	repo       store.FieldStore
	loader     DocumentLoader
	logger     *zap.Logger
	viewerOpts []viewer.Option

	mu       sync.Mutex
	model    *fields.Model
	doc      *document.Document
	docErr   error
	view     *viewer.State
	state    State
	locked   bool
	selected int
	saving   bool
	revision int
	notice   *Notice
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for generated field names.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.model = fields.NewModelWithClock(now)
	}
}

// WithViewerOptions is applied every time the document is (re)loaded.
func WithViewerOptions(opts ...viewer.Option) Option {
	return func(s *Session) {
		s.viewerOpts = append(s.viewerOpts, opts...)
	}
}

// NewSession creates a designer for templateID whose document lives at
// source. Nothing is loaded until Open.
func NewSession(templateID, source string, repo store.FieldStore, loader DocumentLoader, opts ...Option) *Session {
	s := &Session{
		templateID: templateID,
		source:     source,
		repo:       repo,
		loader:     loader,
		logger:     zap.NewNop(),
		model:      fields.NewModel(),
		state:      Idle{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("template_id", templateID))
	return s
}

// TemplateID returns the template being designed.
func (s *Session) TemplateID() string {
	return s.templateID
}

// Open loads the stored fields and the document. A document failure is kept
// on the session and reported by DocumentError; it does not fail Open.
func (s *Session) Open(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}
	if err := s.RetryDocument(ctx); err != nil {
		s.logger.Warn("designer opened without a document", zap.Error(err))
	}
	return nil
}

// RetryDocument loads the document again. On success the viewer starts on
// page 1; on failure the previous viewer is discarded.
func (s *Session) RetryDocument(ctx context.Context) error {
	doc, err := s.loader.Load(ctx, s.source)

	var view *viewer.State
	if err == nil {
		opts := append([]viewer.Option{viewer.WithPageSizes(doc.PageSizes)}, s.viewerOpts...)
		view, err = viewer.NewState(doc.PageCount, opts...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.doc, s.view, s.docErr = nil, nil, err
		s.state = Idle{}
		return err
	}
	s.doc, s.view, s.docErr = doc, view, nil
	s.state = Idle{}
	s.logger.Info("document loaded",
		zap.Int("pages", doc.PageCount),
		zap.String("library", string(doc.Library)),
		zap.Bool("fallback", doc.ViaFallback),
	)
	s.fitFieldsToDocument()
	return nil
}

// fitFieldsToDocument moves fields stored on pages the document does not
// have onto its nearest page, so every field stays reachable.
func (s *Session) fitFieldsToDocument() {
	if s.doc == nil {
		return
	}
	moved := s.model.ClampPages(s.doc.PageCount)
	if moved == 0 {
		return
	}
	s.revision++
	s.notice = &Notice{
		Kind:    NoticeError,
		Message: fmt.Sprintf("%d fields were outside the document's %d pages and were moved onto the nearest page", moved, s.doc.PageCount),
	}
	s.logger.Warn("fields outside the document moved", zap.Int("count", moved), zap.Int("pages", s.doc.PageCount))
}

// DocumentError returns the last document load failure, or nil.
func (s *Session) DocumentError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docErr
}

// Document returns the loaded document, or nil.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Load replaces the field list with the stored one. Selection and any
// gesture in progress are dropped.
func (s *Session) Load(ctx context.Context) error {
	list, err := s.repo.LoadFields(ctx, s.templateID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.notice = &Notice{Kind: NoticeError, Message: "Failed to load template fields"}
		return fmt.Errorf("load fields: %w", err)
	}
	s.model.ReplaceAll(list)
	s.selected = 0
	s.state = Idle{}
	s.revision++
	s.logger.Debug("fields loaded", zap.Int("count", len(list)))
	s.fitFieldsToDocument()
	return nil
}

// State returns the current interaction state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Locked reports whether geometric edits are blocked.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// SetLocked toggles the lock. Locking ends a drag in progress; an armed
// placement stays armed but clicks are ignored until unlocked.
func (s *Session) SetLocked(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locked = locked
	if _, ok := s.state.(Dragging); ok && locked {
		s.state = Idle{}
	}
	s.logger.Debug("lock toggled", zap.Bool("locked", locked))
}

// ArmPlacement arms placement of type t. Arming the type that is already
// armed cancels placement instead, even while locked; only entering
// placement is refused by the lock.
func (s *Session) ArmPlacement(t fields.Type) (State, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown field type %q", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if armed, ok := s.state.(PlacementArmed); ok && armed.Type == t {
		s.state = Idle{}
		return s.state, nil
	}
	if s.locked {
		return s.state, ErrLocked
	}
	s.state = PlacementArmed{Type: t}
	return s.state, nil
}

// CancelPlacement returns an armed session to Idle.
func (s *Session) CancelPlacement() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.(PlacementArmed); ok {
		s.state = Idle{}
	}
}

// PointerResult reports what a pointer event did.
type PointerResult struct {
	State   State
	Placed  *fields.Field
	Field   *fields.Field
	Changed bool
}

// PointerDown handles a press at a screen point relative to the scroll area.
// An armed placement takes precedence over selecting the field underneath.
func (s *Session) PointerDown(pointer geometry.Point) (PointerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == nil {
		return PointerResult{State: s.state}, ErrNoDocument
	}

	page := s.view.PageAtOffset(pointer.Y)
	origin := s.view.PageOrigin(page)
	scale := s.view.EffectiveScale()

	switch st := s.state.(type) {
	case PlacementArmed:
		if s.locked {
			return PointerResult{State: s.state}, nil
		}
		f := s.model.Create(st.Type, geometry.ToDocumentSpace(pointer, origin, scale), page)
		s.selected = f.Key
		s.state = Idle{}
		s.revision++
		s.logger.Debug("field placed", zap.String("name", f.Name), zap.Int("page", page))
		return PointerResult{State: s.state, Placed: &f, Field: &f, Changed: true}, nil

	case Dragging:
		// A press without a release; restart from here.
		s.state = Idle{}
	}

	hit, ok := s.fieldAt(page, pointer)
	if !ok {
		s.selected = 0
		return PointerResult{State: s.state}, nil
	}
	s.selected = hit.Key
	if !s.locked {
		s.state = Dragging{
			Key:           hit.Key,
			StartPointer:  pointer,
			StartPosition: hit.Position,
			StartPage:     hit.Page,
			Scale:         scale,
		}
	}
	return PointerResult{State: s.state, Field: &hit}, nil
}

// PointerMove updates the dragged field. Outside a drag it does nothing.
func (s *Session) PointerMove(pointer geometry.Point) PointerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag(pointer)
}

// PointerUp ends a drag. The dragged field stays selected.
func (s *Session) PointerUp(pointer geometry.Point) PointerResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.drag(pointer)
	if _, ok := s.state.(Dragging); ok {
		s.state = Idle{}
	}
	res.State = s.state
	return res
}

// drag moves the dragged field to follow pointer. A pointer that has not
// moved the field leaves the list, and its revision, untouched.
func (s *Session) drag(pointer geometry.Point) PointerResult {
	drag, ok := s.state.(Dragging)
	if !ok || s.locked {
		return PointerResult{State: s.state}
	}
	cur, ok := s.model.Get(drag.Key)
	if !ok {
		s.state = Idle{}
		return PointerResult{State: s.state}
	}

	page, pos := s.dragTarget(drag, pointer)
	if page == cur.Page && pos == cur.Position {
		return PointerResult{State: s.state, Field: &cur}
	}
	s.model.MoveTo(drag.Key, pos, page)
	s.revision++
	f, _ := s.model.Get(drag.Key)
	return PointerResult{State: s.state, Field: &f, Changed: true}
}

// dragTarget returns the page and page-local position of the dragged field.
// In continuous layout a field whose top edge leaves its page lands on the
// page under that edge.
func (s *Session) dragTarget(drag Dragging, pointer geometry.Point) (int, geometry.Point) {
	raw := drag.target(pointer)
	if s.view == nil || s.view.Layout() != viewer.LayoutContinuous {
		return drag.StartPage, raw.Clamp()
	}
	if h := s.view.PageSize(drag.StartPage).Height; h == 0 || (raw.Y >= 0 && raw.Y < h) {
		return drag.StartPage, raw.Clamp()
	}

	screen := s.view.PageOrigin(drag.StartPage).Add(geometry.ToScreenSpace(raw, drag.Scale))
	page := s.view.PageAtOffset(screen.Y)
	return page, geometry.ToDocumentSpace(screen, s.view.PageOrigin(page), drag.Scale)
}

// Click is a press and release at the same point.
func (s *Session) Click(pointer geometry.Point) (PointerResult, error) {
	res, err := s.PointerDown(pointer)
	if err != nil {
		return res, err
	}
	up := s.PointerUp(pointer)
	res.State = up.State
	return res, nil
}

// FieldAt returns the topmost field rendered under a screen point.
func (s *Session) FieldAt(pointer geometry.Point) (fields.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == nil {
		return fields.Field{}, false
	}
	return s.fieldAt(s.view.PageAtOffset(pointer.Y), pointer)
}

func (s *Session) fieldAt(page int, pointer geometry.Point) (fields.Field, bool) {
	origin := s.view.PageOrigin(page)
	scale := s.view.EffectiveScale()

	onPage := s.model.OnPage(page)
	for i := len(onPage) - 1; i >= 0; i-- {
		if geometry.RectToScreen(onPage[i].Bounds(), origin, scale).Contains(pointer) {
			return onPage[i], true
		}
	}
	return fields.Field{}, false
}

// Select makes key the selected field.
func (s *Session) Select(key int) (fields.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.model.Get(key)
	if !ok {
		return fields.Field{}, fmt.Errorf("select field %d: %w", key, fields.ErrFieldNotFound)
	}
	s.selected = key
	return f, nil
}

// ClearSelection deselects.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = 0
}

// Selected returns the selected field.
func (s *Session) Selected() (fields.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == 0 {
		return fields.Field{}, false
	}
	return s.model.Get(s.selected)
}

// DuplicateSelected copies the selected field and selects the copy.
func (s *Session) DuplicateSelected() (fields.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableSelection(); err != nil {
		return fields.Field{}, err
	}
	dup, err := s.model.Duplicate(s.selected)
	if err != nil {
		return fields.Field{}, err
	}
	s.selected = dup.Key
	s.revision++
	return dup, nil
}

// DeleteSelected removes the selected field and clears the selection.
func (s *Session) DeleteSelected() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableSelection(); err != nil {
		return err
	}
	if err := s.model.Delete(s.selected); err != nil {
		return err
	}
	if drag, ok := s.state.(Dragging); ok && drag.Key == s.selected {
		s.state = Idle{}
	}
	s.selected = 0
	s.revision++
	return nil
}

func (s *Session) editableSelection() error {
	if s.locked {
		return ErrLocked
	}
	if s.selected == 0 {
		return ErrNoSelection
	}
	return nil
}

// UpdateField edits a field's properties. Name, required flag, placeholder
// and type-specific properties may change while locked; a type change
// resets the size and is therefore refused while locked.
func (s *Session) UpdateField(key int, u fields.Update) (fields.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked && u.Type != nil {
		if cur, ok := s.model.Get(key); ok && cur.Type != *u.Type {
			return fields.Field{}, ErrLocked
		}
	}
	f, err := s.model.Apply(key, u)
	if err != nil {
		return fields.Field{}, err
	}
	s.revision++
	return f, nil
}

// Fields returns every field in creation order.
func (s *Session) Fields() []fields.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Fields()
}

// FieldsOnPage returns the fields rendered on page.
func (s *Session) FieldsOnPage(page int) []fields.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.OnPage(page)
}

// Save replaces the stored field list with the current one. Only one save
// runs at a time. On success the stored copy, with its new IDs, replaces the
// in-memory list unless the list was edited while the save was in flight.
// On failure the in-memory list is kept.
func (s *Session) Save(ctx context.Context) ([]fields.Field, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	s.saving = true
	snapshot := s.model.Fields()
	revision := s.revision
	selected := s.selected
	s.mu.Unlock()

	s.logger.Info("saving fields", zap.Int("count", len(snapshot)))
	saved, err := s.repo.SaveFields(ctx, s.templateID, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if err != nil {
		s.notice = &Notice{Kind: NoticeError, Message: "Failed to save template fields"}
		s.logger.Error("save failed", zap.Int("count", len(snapshot)), zap.Error(err))
		return nil, fmt.Errorf("save fields: %w", err)
	}

	s.notice = &Notice{Kind: NoticeSuccess, Message: fmt.Sprintf("Saved %d fields", len(saved))}
	s.logger.Info("fields saved", zap.Int("count", len(saved)))

	if s.revision != revision {
		s.logger.Warn("fields edited during save, keeping local edits")
		return saved, nil
	}

	s.model.ReplaceAll(saved)
	s.selected = remapSelection(snapshot, selected, s.model.Fields())
	s.state = Idle{}
	s.revision++
	return s.model.Fields(), nil
}

// remapSelection finds the key the selected field received after the stored
// copy, which is ordered by page, replaced the snapshot.
func remapSelection(snapshot []fields.Field, selected int, replaced []fields.Field) int {
	if selected == 0 || len(snapshot) != len(replaced) {
		return 0
	}
	at := -1
	for i, f := range snapshot {
		if f.Key == selected {
			at = i
			break
		}
	}
	if at < 0 {
		return 0
	}

	pos := 0
	for i, f := range snapshot {
		if f.Page < snapshot[at].Page || (f.Page == snapshot[at].Page && i < at) {
			pos++
		}
	}
	return replaced[pos].Key
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Notice returns the current notice, or nil.
func (s *Session) Notice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return nil
	}
	n := *s.notice
	return &n
}

// DismissNotice clears the notice.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
}
