package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/designer"
	"github.com/a3tai/pdf-field-designer/internal/fields"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
	"github.com/a3tai/pdf-field-designer/internal/viewer"
)

func (s *Server) handleListTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("No templates stored"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d templates:\n", len(items))
	for i, tpl := range items {
		fmt.Fprintf(&b, "%d. %s (%s), %d pages, document: %s\n",
			i+1, tpl.Name, tpl.ID, tpl.PageCount, tpl.DocumentURL)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleOpenTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session := designer.NewSession(tpl.ID, tpl.DocumentURL, s.repo, s.loader,
		designer.WithLogger(s.logger.With(zap.String("template_id", tpl.ID))),
		designer.WithViewerOptions(viewer.WithDefaultZoom(s.config.DefaultZoom)),
	)
	if err := session.Open(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	snap := session.Snapshot()
	text := fmt.Sprintf("Opened template %q (%s)\n", tpl.Name, tpl.ID)
	text += fmt.Sprintf("Fields: %d\n", len(snap.Fields))
	text += formatDocumentStatus(snap.Document)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body, err := json.MarshalIndent(session.Snapshot(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode state: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleArmPlacement(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := fields.ParseType(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := session.ArmPlacement(t)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, armed := state.(designer.PlacementArmed); armed {
		return mcp.NewToolResultText(fmt.Sprintf("Placement armed: click a page to place a %s field", t)), nil
	}
	return mcp.NewToolResultText("Placement cancelled"), nil
}

func (s *Server) handleCancelPlacement(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session.CancelPlacement()
	return mcp.NewToolResultText("Placement cancelled"), nil
}

func (s *Server) handleClick(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pointer, err := pointArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := session.Click(pointer)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPointerResult(pointer, res)), nil
}

func (s *Server) handlePointer(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	phase, err := request.RequireString("phase")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pointer, err := pointArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var res designer.PointerResult
	switch phase {
	case "down":
		res, err = session.PointerDown(pointer)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	case "move":
		res = session.PointerMove(pointer)
	case "up":
		res = session.PointerUp(pointer)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown pointer phase %q (must be one of: down, move, up)", phase)), nil
	}
	return mcp.NewToolResultText(formatPointerResult(pointer, res)), nil
}

func (s *Server) handleSetLocked(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	locked, ok, err := boolArg(request, "locked")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(`required argument "locked" not found`), nil
	}

	session.SetLocked(locked)
	if locked {
		return mcp.NewToolResultText("Layout locked"), nil
	}
	return mcp.NewToolResultText("Layout unlocked"), nil
}

func (s *Server) handleSelectField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, ok, err := intArg(request, "key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(`required argument "key" not found`), nil
	}

	if key <= 0 {
		session.ClearSelection()
		return mcp.NewToolResultText("Selection cleared"), nil
	}
	f, err := session.Select(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Selected " + formatField(f)), nil
}

func (s *Server) handleDuplicateField(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dup, err := session.DuplicateSelected()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Duplicated as " + formatField(dup)), nil
}

func (s *Server) handleDeleteField(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := session.DeleteSelected(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Field deleted"), nil
}

func (s *Server) handleUpdateField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	key, ok, err := intArg(request, "key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	current, found := session.Selected()
	if ok {
		current, found = fieldByKey(session.Fields(), key)
	}
	if !found {
		return mcp.NewToolResultError(designer.ErrNoSelection.Error()), nil
	}

	u, err := updateArg(request, current.Type)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := session.UpdateField(current.Key, u)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Updated " + formatField(f)), nil
}

func (s *Server) handleSave(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	saved, err := session.Save(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved %d fields", len(saved))), nil
}

func (s *Server) handleDismissNotice(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session.DismissNotice()
	return mcp.NewToolResultText("Notice dismissed"), nil
}

func (s *Server) handleNavigate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var page int
	switch action {
	case "next":
		page, err = session.NextPage()
	case "prev":
		page, err = session.PrevPage()
	case "first":
		page, err = session.FirstPage()
	case "last":
		page, err = session.LastPage()
	case "goto":
		target, ok, argErr := intArg(request, "page")
		if argErr != nil {
			return mcp.NewToolResultError(argErr.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultError(`goto requires "page"`), nil
		}
		page, err = session.GoToPage(target)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown navigation action %q", action)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Page %d", page)), nil
}

func (s *Server) handleZoom(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var zoom float64
	switch action {
	case "in":
		zoom, err = session.ZoomIn()
	case "out":
		zoom, err = session.ZoomOut()
	case "reset":
		zoom, err = session.ResetZoom()
	case "set":
		level, ok, argErr := floatArg(request, "zoom")
		if argErr != nil {
			return mcp.NewToolResultError(argErr.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultError(`set requires "zoom"`), nil
		}
		zoom, err = session.SetZoom(level)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown zoom action %q", action)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Zoom %d%%", int(zoom*100+0.5))), nil
}

func (s *Server) handleSetView(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var changed []string
	if name := stringArg(request, "view_mode"); name != "" {
		mode, err := viewer.ParseViewMode(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := session.SetViewMode(mode); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		changed = append(changed, "view mode "+name)
	}
	if name := stringArg(request, "layout"); name != "" {
		var layout viewer.Layout
		switch name {
		case "paginated":
			layout = viewer.LayoutPaginated
		case "continuous":
			layout = viewer.LayoutContinuous
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown layout %q (must be one of: paginated, continuous)", name)), nil
		}
		if err := session.SetLayout(layout); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		changed = append(changed, "layout "+name)
	}
	if len(changed) == 0 {
		return mcp.NewToolResultError("nothing to change: pass view_mode or layout"), nil
	}
	return mcp.NewToolResultText("Set " + strings.Join(changed, " and ")), nil
}

var keyTargets = map[string]viewer.Target{
	"":                viewer.TargetDocument,
	"document":        viewer.TargetDocument,
	"input":           viewer.TargetInput,
	"textarea":        viewer.TargetTextArea,
	"contenteditable": viewer.TargetContentEditable,
}

func (s *Server) handleKey(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, ok := keyTargets[stringArg(request, "target")]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown key target %q", stringArg(request, "target"))), nil
	}

	ev := viewer.KeyEvent{Key: key, Target: target}
	for name, dst := range map[string]*bool{"ctrl": &ev.Ctrl, "meta": &ev.Meta, "alt": &ev.Alt, "shift": &ev.Shift} {
		v, _, err := boolArg(request, name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		*dst = v
	}

	if session.HandleKey(ev) {
		return mcp.NewToolResultText(fmt.Sprintf("Handled %s (%s)", key, viewer.ResolveKey(ev))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Not handled: %s", key)), nil
}

func (s *Server) handleRetryDocument(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.activeSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_ = session.RetryDocument(ctx)

	snap := session.Snapshot()
	if !snap.Document.Loaded {
		return mcp.NewToolResultError(formatDocumentStatus(snap.Document)), nil
	}
	return mcp.NewToolResultText(formatDocumentStatus(snap.Document)), nil
}

func formatDocumentStatus(status *designer.DocumentStatus) string {
	if status.Loaded {
		text := fmt.Sprintf("Document: %d pages via %s", status.PageCount, status.Library)
		if status.ViaFallback {
			text += " (fallback)"
		}
		return text + "\n"
	}
	if status.Error == "" {
		return "Document: not loaded\n"
	}
	text := fmt.Sprintf("Document failed to load [%s]: %s\n", status.ErrorKind, status.Error)
	if status.DirectLink != "" {
		text += fmt.Sprintf("Open directly: %s\n", status.DirectLink)
	}
	return text
}

func formatField(f fields.Field) string {
	return fmt.Sprintf("%s field %q (key %d) on page %d at (%g, %g) size %gx%g",
		f.Type, f.Name, f.Key, f.Page, f.Position.X, f.Position.Y, f.Size.Width, f.Size.Height)
}

func formatPointerResult(pointer geometry.Point, res designer.PointerResult) string {
	var text string
	switch {
	case res.Placed != nil:
		text = "Placed " + formatField(*res.Placed)
	case res.Changed && res.Field != nil:
		text = "Moved " + formatField(*res.Field)
	case res.Field != nil:
		text = "Selected " + formatField(*res.Field)
	default:
		text = fmt.Sprintf("No field at (%g, %g)", pointer.X, pointer.Y)
	}
	if res.State != nil {
		text += fmt.Sprintf("\nMode: %s", res.State.Mode())
	}
	return text
}

func fieldByKey(list []fields.Field, key int) (fields.Field, bool) {
	for _, f := range list {
		if f.Key == key {
			return f, true
		}
	}
	return fields.Field{}, false
}

// updateArg builds a field update from the optional edit arguments.
// Properties without a "kind" key are read as the field's type after the edit.
func updateArg(request mcp.CallToolRequest, current fields.Type) (fields.Update, error) {
	args := request.GetArguments()
	var u fields.Update

	if v, ok := args["name"].(string); ok {
		u.Name = &v
	}
	if v, ok := args["placeholder"].(string); ok {
		u.Placeholder = &v
	}
	if v, ok := args["type"].(string); ok && v != "" {
		t, err := fields.ParseType(v)
		if err != nil {
			return u, err
		}
		u.Type = &t
		current = t
	}
	required, ok, err := boolArg(request, "required")
	if err != nil {
		return u, err
	}
	if ok {
		u.Required = &required
	}
	if raw, ok := args["properties"].(string); ok && raw != "" {
		props, err := fields.UnmarshalProperties([]byte(raw), current)
		if err != nil {
			return u, err
		}
		u.Properties = props
	}
	return u, nil
}

func pointArg(request mcp.CallToolRequest) (geometry.Point, error) {
	x, okX, err := floatArg(request, "x")
	if err != nil {
		return geometry.Point{}, err
	}
	y, okY, err := floatArg(request, "y")
	if err != nil {
		return geometry.Point{}, err
	}
	if !okX || !okY {
		return geometry.Point{}, fmt.Errorf(`required arguments "x" and "y" not found`)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func stringArg(request mcp.CallToolRequest, key string) string {
	v, _ := request.GetArguments()[key].(string)
	return v
}

// floatArg reads a numeric argument. JSON clients send float64; numeric
// strings are accepted too.
func floatArg(request mcp.CallToolRequest, key string) (float64, bool, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil, err
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false, fmt.Errorf("argument %q must be a number", key)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("argument %q must be a number", key)
	}
}

func intArg(request mcp.CallToolRequest, key string) (int, bool, error) {
	f, ok, err := floatArg(request, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != float64(int(f)) {
		return 0, false, fmt.Errorf("argument %q must be a whole number", key)
	}
	return int(f), true, nil
}

func boolArg(request mcp.CallToolRequest, key string) (bool, bool, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return false, false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, true, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false, fmt.Errorf("argument %q must be a boolean", key)
		}
		return parsed, true, nil
	default:
		return false, false, fmt.Errorf("argument %q must be a boolean", key)
	}
}
