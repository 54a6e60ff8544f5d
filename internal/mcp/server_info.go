package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/descriptions"
	"github.com/a3tai/pdf-field-designer/internal/fields"
)

const maxListedDocuments = 10

// ServerInfo describes the running designer.
type ServerInfo struct {
	ServerName        string
	Version           string
	DocumentDirectory string
	Documents         []string
	MaxFileSize       int64
	Storage           string
	S3Enabled         bool
	FieldTypes        []fields.Type
	Tools             []string
}

func (s *Server) serverInfo() ServerInfo {
	docs, err := listDocuments(s.config.DocumentDirectory)
	if err != nil {
		s.logger.Warn("failed to list documents", zap.String("dir", s.config.DocumentDirectory), zap.Error(err))
	}
	return ServerInfo{
		ServerName:        s.config.ServerName,
		Version:           s.config.Version,
		DocumentDirectory: s.config.DocumentDirectory,
		Documents:         docs,
		MaxFileSize:       s.config.MaxFileSize,
		Storage:           s.config.DBDriver,
		S3Enabled:         s.config.UsesS3(),
		FieldTypes:        fields.Types,
		Tools:             descriptions.GetAllToolNames(),
	}
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatServerInfo(s.serverInfo())), nil
}

// listDocuments returns the PDF file names directly inside dir.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var docs []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		docs = append(docs, e.Name())
	}
	return docs, nil
}

func formatServerInfo(info ServerInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s - Server Information\n", info.ServerName, info.Version)
	fmt.Fprintf(&b, "Document Directory: %s\n", info.DocumentDirectory)
	fmt.Fprintf(&b, "Max File Size: %d MB\n", info.MaxFileSize/(1024*1024))
	fmt.Fprintf(&b, "Storage: %s\n", info.Storage)
	if info.S3Enabled {
		b.WriteString("S3 Sources: enabled\n")
	} else {
		b.WriteString("S3 Sources: disabled\n")
	}

	types := make([]string, len(info.FieldTypes))
	for i, t := range info.FieldTypes {
		types[i] = string(t)
	}
	fmt.Fprintf(&b, "Field Types: %s\n\n", strings.Join(types, ", "))

	if len(info.Documents) > 0 {
		fmt.Fprintf(&b, "Documents (%d PDF files found):\n", len(info.Documents))
		for i, name := range info.Documents {
			if i >= maxListedDocuments {
				fmt.Fprintf(&b, "   ... and %d more files\n", len(info.Documents)-maxListedDocuments)
				break
			}
			fmt.Fprintf(&b, "   %d. %s\n", i+1, name)
		}
	} else {
		b.WriteString("Documents: No PDF files found in the document directory\n")
	}

	b.WriteString("\nAvailable Tools:\n")
	for _, name := range info.Tools {
		fmt.Fprintf(&b, "• %s: %s\n", name, descriptions.Summary(name))
	}
	return b.String()
}
