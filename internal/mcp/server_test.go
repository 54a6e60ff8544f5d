package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/config"
	"github.com/a3tai/pdf-field-designer/internal/designer"
	"github.com/a3tai/pdf-field-designer/internal/document"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
	"github.com/a3tai/pdf-field-designer/internal/store"
)

const statementSource = "templates/statement.pdf"

type stubLoader struct {
	docs map[string]*document.Document
}

func (l *stubLoader) Load(_ context.Context, src string) (*document.Document, error) {
	if doc, ok := l.docs[src]; ok {
		return doc, nil
	}
	return nil, &document.LoadError{Kind: document.KindNetwork, Source: src, Err: errors.New("connection refused")}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DocumentDirectory = t.TempDir()
	cfg.ServerName = "test-designer"
	return cfg
}

func statementDocument() *document.Document {
	return &document.Document{
		Source:    statementSource,
		PageCount: 3,
		PageSizes: []geometry.Size{{Width: 612, Height: 792}, {Width: 612, Height: 792}, {Width: 612, Height: 792}},
		Library:   document.LibraryPDFCPU,
	}
}

func newTestServer(t *testing.T) (*Server, *store.MemoryRepository, *stubLoader) {
	t.Helper()
	repo := store.NewMemoryRepository()
	loader := &stubLoader{docs: map[string]*document.Document{statementSource: statementDocument()}}
	s, err := NewServer(testConfig(t), repo, loader, zap.NewNop())
	require.NoError(t, err)
	return s, repo, loader
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	repo := store.NewMemoryRepository()
	loader := &stubLoader{}

	tests := []struct {
		name    string
		cfg     *config.Config
		repo    store.Repository
		loader  designer.DocumentLoader
		wantErr string
	}{
		{name: "valid", cfg: cfg, repo: repo, loader: loader},
		{name: "nil config", repo: repo, loader: loader, wantErr: "config cannot be nil"},
		{name: "nil repository", cfg: cfg, loader: loader, wantErr: "repository cannot be nil"},
		{name: "nil loader", cfg: cfg, repo: repo, wantErr: "document loader cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewServer(tt.cfg, tt.repo, tt.loader, nil)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.cfg, s.config)
			assert.NotNil(t, s.mcpServer)
			assert.NotNil(t, s.logger, "a nil logger is replaced")
		})
	}
}

func TestServer_ToolsList(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	body, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{
		"designer_list_templates",
		"designer_open_template",
		"designer_state",
		"designer_arm_placement",
		"designer_cancel_placement",
		"designer_click",
		"designer_pointer",
		"designer_set_locked",
		"designer_select_field",
		"designer_duplicate_field",
		"designer_delete_field",
		"designer_update_field",
		"designer_save",
		"designer_dismiss_notice",
		"designer_navigate",
		"designer_zoom",
		"designer_set_view",
		"designer_key",
		"designer_retry_document",
		"designer_server_info",
	} {
		assert.Contains(t, string(body), `"`+name+`"`)
	}
}

func TestServer_ServeStdioStopsOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)

	in, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.serveStdio(ctx, in, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("stdio server did not stop after cancellation")
	}
}

func TestServer_ServerInfo(t *testing.T) {
	s, _, _ := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.config.DocumentDirectory, "statement.pdf"), []byte("%PDF-1.7"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.config.DocumentDirectory, "notes.txt"), []byte("notes"), 0o644))

	result, err := s.handleServerInfo(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "test-designer v")
	assert.Contains(t, text, "Storage: memory")
	assert.Contains(t, text, "S3 Sources: disabled")
	assert.Contains(t, text, "Field Types: text, date, signature, checkbox")
	assert.Contains(t, text, "Documents (1 PDF files found):")
	assert.Contains(t, text, "1. statement.pdf")
	assert.NotContains(t, text, "notes.txt")
	assert.Contains(t, text, "• designer_click: Click at a screen point.")
}

func TestFormatServerInfo_TruncatesDocuments(t *testing.T) {
	docs := make([]string, maxListedDocuments+3)
	for i := range docs {
		docs[i] = fmt.Sprintf("form-%02d.pdf", i)
	}
	text := formatServerInfo(ServerInfo{ServerName: "designer", Version: "1.0.0", Documents: docs})
	assert.Contains(t, text, "... and 3 more files")
	assert.NotContains(t, text, "form-10.pdf")
}

func TestServer_SSEHandler(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.NotNil(t, s.SSEHandler())
}

// extractTextFromResult returns the first text content of a tool result.
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
