package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-field-designer/internal/document"
)

// onePagePDF is a minimal letter-size document with a valid xref table.
func onePagePDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func documentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statement.pdf"), onePagePDF(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("%PDF-1.4\ngarbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o644))
	return dir
}

func runInspect(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_TextOutput(t *testing.T) {
	dir := documentDir(t)

	code, out, _ := runInspect(t, "--dir", dir, "statement.pdf")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Source: statement.pdf")
	assert.Contains(t, out, "Status: OK, 1 pages via pdfcpu")
	assert.Contains(t, out, "Page 1: 612x792 pt, 612x792 px at 100%")
	assert.NotContains(t, out, "Diagnostics:")
}

func TestRun_JSONOutputWithZoom(t *testing.T) {
	dir := documentDir(t)

	code, out, _ := runInspect(t, "--dir", dir, "--format", "json", "--zoom", "1.5", "statement.pdf")
	require.Equal(t, exitOK, code)

	var results []Inspection
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	require.NotNil(t, results[0].Document)
	assert.Equal(t, 1, results[0].Document.PageCount)
	assert.Equal(t, document.LibraryPDFCPU, results[0].Document.Library)
	require.Len(t, results[0].Surfaces, 1)
	assert.InDelta(t, 918, results[0].Surfaces[0].Width, 0.001)
	assert.InDelta(t, 1188, results[0].Surfaces[0].Height, 0.001)
}

func TestRun_Failures(t *testing.T) {
	dir := documentDir(t)

	tests := []struct {
		source string
		kind   string
	}{
		{"broken.pdf", "RENDER"},
		{"empty.pdf", "EMPTY"},
		{"missing.pdf", "NETWORK"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			code, out, _ := runInspect(t, "--dir", dir, tt.source)
			assert.Equal(t, exitFailed, code)
			assert.Contains(t, out, "Status: FAILED ["+tt.kind+"]")
			assert.Contains(t, out, "Error: ")
			assert.NotContains(t, out, "Open directly:")
		})
	}
}

func TestRun_MixedSourcesFail(t *testing.T) {
	dir := documentDir(t)

	code, out, _ := runInspect(t, "--dir", dir, "--format", "json", "statement.pdf", "broken.pdf")
	assert.Equal(t, exitFailed, code)

	var results []Inspection
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "RENDER", results[1].Kind)
	assert.NotEmpty(t, results[1].Message)
}

func TestRun_Diagnostic(t *testing.T) {
	dir := documentDir(t)

	code, out, _ := runInspect(t, "--dir", dir, "--diagnostic", "statement.pdf")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Diagnostics:")
	assert.Contains(t, out, "pdfcpu: 1 pages")
	assert.Contains(t, out, "ledongthuc: 1 pages")

	code, out, _ = runInspect(t, "--dir", dir, "--diagnostic", "--format", "json", "broken.pdf")
	assert.Equal(t, exitFailed, code)
	var results []Inspection
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results[0].Diagnostics, 2)
	for _, a := range results[0].Diagnostics {
		assert.False(t, a.Success, a.Library)
		assert.NotEmpty(t, a.Error, a.Library)
	}
}

func TestRun_Usage(t *testing.T) {
	dir := documentDir(t)

	code, _, errOut := runInspect(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "at least one document source is required")
	assert.Contains(t, errOut, "Usage: pdf-inspect")

	code, _, errOut = runInspect(t, "--dir", dir, "--format", "xml", "statement.pdf")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, `invalid format "xml"`)

	code, _, errOut = runInspect(t, "--dir", dir, "--zoom", "0", "statement.pdf")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "zoom must be positive")

	code, _, _ = runInspect(t, "--dir", "", "statement.pdf")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runInspect(t, "--no-such-flag")
	assert.Equal(t, exitUsage, code)

	code, _, errOut = runInspect(t, "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "--diagnostic")
}
