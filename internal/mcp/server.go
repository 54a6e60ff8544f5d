// Package mcp exposes a designer session as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/config"
	"github.com/a3tai/pdf-field-designer/internal/descriptions"
	"github.com/a3tai/pdf-field-designer/internal/designer"
	"github.com/a3tai/pdf-field-designer/internal/store"
)

// Server represents the MCP server instance. It drives one active designer
// session at a time; opening a template replaces it.
type Server struct {
	config    *config.Config
	repo      store.Repository
	loader    designer.DocumentLoader
	logger    *zap.Logger
	mcpServer *server.MCPServer

	mu      sync.Mutex
	session *designer.Session
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, repo store.Repository, loader designer.DocumentLoader, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("document loader cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		repo:      repo,
		loader:    loader,
		logger:    logger,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"designer_list_templates",
		mcp.WithDescription(descriptions.GetToolDescription("designer_list_templates")),
	), s.handleListTemplates)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_open_template",
		mcp.WithDescription(descriptions.GetToolDescription("designer_open_template")),
		mcp.WithString("template_id",
			mcp.Required(),
			mcp.Description("Template identifier"),
		),
	), s.handleOpenTemplate)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_state",
		mcp.WithDescription(descriptions.GetToolDescription("designer_state")),
	), s.handleState)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_arm_placement",
		mcp.WithDescription(descriptions.GetToolDescription("designer_arm_placement")),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Enum("text", "date", "signature", "checkbox"),
			mcp.Description("Field type to place"),
		),
	), s.handleArmPlacement)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_cancel_placement",
		mcp.WithDescription(descriptions.GetToolDescription("designer_cancel_placement")),
	), s.handleCancelPlacement)

	clickOpts := append([]mcp.ToolOption{
		mcp.WithDescription(descriptions.GetToolDescription("designer_click")),
	}, withPoint()...)
	s.mcpServer.AddTool(mcp.NewTool("designer_click", clickOpts...), s.handleClick)

	pointerOpts := append([]mcp.ToolOption{
		mcp.WithDescription(descriptions.GetToolDescription("designer_pointer")),
		mcp.WithString("phase",
			mcp.Required(),
			mcp.Enum("down", "move", "up"),
			mcp.Description("Pointer phase"),
		),
	}, withPoint()...)
	s.mcpServer.AddTool(mcp.NewTool("designer_pointer", pointerOpts...), s.handlePointer)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_set_locked",
		mcp.WithDescription(descriptions.GetToolDescription("designer_set_locked")),
		mcp.WithBoolean("locked",
			mcp.Required(),
			mcp.Description("true to lock"),
		),
	), s.handleSetLocked)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_select_field",
		mcp.WithDescription(descriptions.GetToolDescription("designer_select_field")),
		mcp.WithNumber("key",
			mcp.Required(),
			mcp.Description("Field key from designer_state"),
		),
	), s.handleSelectField)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_duplicate_field",
		mcp.WithDescription(descriptions.GetToolDescription("designer_duplicate_field")),
	), s.handleDuplicateField)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_delete_field",
		mcp.WithDescription(descriptions.GetToolDescription("designer_delete_field")),
	), s.handleDeleteField)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_update_field",
		mcp.WithDescription(descriptions.GetToolDescription("designer_update_field")),
		mcp.WithNumber("key",
			mcp.Description("Field key (defaults to the selected field)"),
		),
		mcp.WithString("name", mcp.Description("Field name")),
		mcp.WithString("type",
			mcp.Enum("text", "date", "signature", "checkbox"),
			mcp.Description("New field type; resets size and placeholder"),
		),
		mcp.WithBoolean("required", mcp.Description("Whether the signer must fill the field")),
		mcp.WithString("placeholder", mcp.Description("Placeholder text")),
		mcp.WithString("properties",
			mcp.Description(`Type-specific properties as JSON, e.g. {"max_length": 40, "multiline": true}`),
		),
	), s.handleUpdateField)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_save",
		mcp.WithDescription(descriptions.GetToolDescription("designer_save")),
	), s.handleSave)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_dismiss_notice",
		mcp.WithDescription(descriptions.GetToolDescription("designer_dismiss_notice")),
	), s.handleDismissNotice)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_navigate",
		mcp.WithDescription(descriptions.GetToolDescription("designer_navigate")),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Enum("next", "prev", "first", "last", "goto"),
			mcp.Description("Navigation action"),
		),
		mcp.WithNumber("page", mcp.Description("Target page for goto (1-based)")),
	), s.handleNavigate)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_zoom",
		mcp.WithDescription(descriptions.GetToolDescription("designer_zoom")),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Enum("in", "out", "reset", "set"),
			mcp.Description("Zoom action"),
		),
		mcp.WithNumber("zoom", mcp.Description("Zoom level for set")),
	), s.handleZoom)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_set_view",
		mcp.WithDescription(descriptions.GetToolDescription("designer_set_view")),
		mcp.WithString("view_mode",
			mcp.Enum("desktop", "tablet", "mobile"),
			mcp.Description("Device view mode"),
		),
		mcp.WithString("layout",
			mcp.Enum("paginated", "continuous"),
			mcp.Description("Page arrangement"),
		),
	), s.handleSetView)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_key",
		mcp.WithDescription(descriptions.GetToolDescription("designer_key")),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Key name, e.g. ArrowRight, PageDown, Home, +, -, 0"),
		),
		mcp.WithBoolean("ctrl", mcp.Description("Ctrl held")),
		mcp.WithBoolean("meta", mcp.Description("Meta held")),
		mcp.WithBoolean("alt", mcp.Description("Alt held")),
		mcp.WithBoolean("shift", mcp.Description("Shift held")),
		mcp.WithString("target",
			mcp.Enum("document", "input", "textarea", "contenteditable"),
			mcp.Description("Element that had focus"),
		),
	), s.handleKey)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_retry_document",
		mcp.WithDescription(descriptions.GetToolDescription("designer_retry_document")),
	), s.handleRetryDocument)

	s.mcpServer.AddTool(mcp.NewTool(
		"designer_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("designer_server_info")),
	), s.handleServerInfo)
}

func withPoint() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("x",
			mcp.Required(),
			mcp.Description("Horizontal screen offset in pixels from the page area's left edge"),
		),
		mcp.WithNumber("y",
			mcp.Required(),
			mcp.Description("Vertical screen offset in pixels from the top of the scroll area"),
		),
	}
}

// activeSession returns the open session or an error telling the caller to
// open a template first.
func (s *Server) activeSession() (*designer.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("no template is open; call designer_open_template first")
	}
	return s.session, nil
}

// Run serves the tools over standard I/O until ctx is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.serveStdio(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving designer tools over stdio",
		zap.String("documents", s.config.DocumentDirectory),
		zap.String("storage", s.config.DBDriver),
	)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// SSEHandler serves the same tools over server-sent events for HTTP mode.
func (s *Server) SSEHandler() http.Handler {
	return server.NewSSEServer(s.mcpServer)
}
