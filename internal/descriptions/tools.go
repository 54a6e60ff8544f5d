package descriptions

import "sort"

// Tool descriptions with usage notes and examples

const (
	// Templates
	ListTemplatesDescription = `List the stored form templates.

**When to use:** Find the template ID to open, or check which templates already have fields.

**Examples:**
• "Which templates exist?" → designer_list_templates
• Open the statement template: designer_list_templates → pick its id → designer_open_template

**Best practices:** Templates are created and updated through the HTTP API; this tool only reads them.`

	OpenTemplateDescription = `Open a template in the designer.

**When to use:** Before any other designer tool. Loads the template's stored fields and its PDF document.

**Behavior:** Opening a template replaces the active session. Field keys are reassigned from 1. A document that fails to load is reported with its failure kind and a direct link; fields remain editable and designer_retry_document reloads it.

**Examples:**
• "Open template 6f1c..." → designer_open_template template_id=6f1c...`

	StateDescription = `Return the designer state as JSON.

**When to use:** Inspect the current mode, selection, lock state, viewer position, document status and the complete field list.

**Best practices:** Call after a batch of edits to confirm positions before designer_save.`

	// Placement and selection
	ArmPlacementDescription = `Arm placement of a field type.

**When to use:** Add a new field. The next designer_click on a page places a field of the armed type with its default size, its top-left corner at the click.

**Behavior:** Arming the type that is already armed cancels placement. The placed field becomes the selection and the designer returns to select mode. Arming is refused while the layout is locked; re-arming the armed type still cancels.

**Examples:**
• Add a signature box: designer_arm_placement type=signature → designer_click x=300 y=640`

	CancelPlacementDescription = `Cancel an armed placement and return to select mode.`

	ClickDescription = `Click at a screen point.

**Behavior:** With a placement armed, places a field at the point. Otherwise selects the topmost field under the point, or clears the selection over empty page area.

**Coordinates:** x is measured from the page area's left edge, y from the top of the scroll area, both in screen pixels at the current zoom.`

	PointerDescription = `Send a pointer event.

**Behavior:** phase=down selects the field under the point and starts dragging it. phase=move drags the field; it may cross onto another page. phase=up ends the drag. Dragging is refused while the layout is locked.

**Examples:**
• Move a field: designer_pointer phase=down x=100 y=120 → phase=move x=180 y=200 → phase=up x=180 y=200`

	SetLockedDescription = `Lock or unlock the layout.

**Behavior:** A locked layout refuses placement, dragging, duplication, deletion and type changes. Names, required flags and properties stay editable.`

	SelectFieldDescription = `Select a field by key. Key 0 clears the selection.`

	DuplicateFieldDescription = `Duplicate the selected field.

**Behavior:** The copy gets a new key and a "_copy" name suffix, sits 20 points below and right of the original on the same page, and becomes the selection.`

	DeleteFieldDescription = `Delete the selected field and clear the selection.`

	UpdateFieldDescription = `Edit a field's properties.

**Behavior:** Edits the selected field, or the field with the given key. Omitted arguments are left unchanged. properties is a JSON object that replaces the field's properties.

**Examples:**
• Rename and require: designer_update_field name=customer_name required=true
• Set a date format: designer_update_field key=3 properties={"format":"2006-01-02"}`

	SaveDescription = `Save the field list, replacing the stored one.

**Behavior:** Fields are written in page order, keeping creation order within a page. The outcome is shown as a notice until dismissed. Edits made while a save is in flight are kept.`

	DismissNoticeDescription = `Dismiss the last save or load notice.`

	// Viewer
	NavigateDescription = `Change the current page.

**Examples:**
• designer_navigate action=next
• designer_navigate action=goto page=3

**Behavior:** Page numbers are 1-based and clamped to the document.`

	ZoomDescription = `Change the zoom level.

**Behavior:** in and out step through the fixed zoom steps, reset returns to the default, set snaps the given level to the nearest step. Field positions are stored in page points and do not change with zoom.`

	SetViewDescription = `Change the view mode and page layout.

**Options:** view_mode is desktop, tablet or mobile and scales the rendered pages; layout is paginated or continuous.`

	KeyDescription = `Deliver a key press to the viewer.

**Behavior:** ArrowLeft, ArrowRight, PageUp and PageDown turn pages; Home and End jump to the first and last page; +, - and 0 zoom. Keys typed into a text input and keys combined with Ctrl, Meta or Alt are left to the host. The result reports whether the key was handled.`

	RetryDocumentDescription = `Reload the template document after a load failure.

**Behavior:** The field list is kept. The primary renderer is tried first and the fallback renderer second.`

	ServerInfoDescription = `Describe this server: version, document source settings, storage driver and the available tools.

**When to use:** Discover the tools and how the designer is configured before starting a session.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"designer_list_templates":   ListTemplatesDescription,
	"designer_open_template":    OpenTemplateDescription,
	"designer_state":            StateDescription,
	"designer_arm_placement":    ArmPlacementDescription,
	"designer_cancel_placement": CancelPlacementDescription,
	"designer_click":            ClickDescription,
	"designer_pointer":          PointerDescription,
	"designer_set_locked":       SetLockedDescription,
	"designer_select_field":     SelectFieldDescription,
	"designer_duplicate_field":  DuplicateFieldDescription,
	"designer_delete_field":     DeleteFieldDescription,
	"designer_update_field":     UpdateFieldDescription,
	"designer_save":             SaveDescription,
	"designer_dismiss_notice":   DismissNoticeDescription,
	"designer_navigate":         NavigateDescription,
	"designer_zoom":             ZoomDescription,
	"designer_set_view":         SetViewDescription,
	"designer_key":              KeyDescription,
	"designer_retry_document":   RetryDocumentDescription,
	"designer_server_info":      ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary returns the first line of a tool's description.
func Summary(toolName string) string {
	desc := GetToolDescription(toolName)
	for i, r := range desc {
		if r == '\n' {
			return desc[:i]
		}
	}
	return desc
}
