package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/document"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
	"github.com/a3tai/pdf-field-designer/internal/store"
)

type stubLoader struct {
	docs map[string]*document.Document
}

func (l stubLoader) Load(_ context.Context, src string) (*document.Document, error) {
	if doc, ok := l.docs[src]; ok {
		return doc, nil
	}
	return nil, &document.LoadError{Kind: document.KindEmpty, Source: src, Err: errors.New("document is empty")}
}

func newTestRouter(t *testing.T) (http.Handler, *store.MemoryRepository) {
	t.Helper()
	repo := store.NewMemoryRepository()
	loader := stubLoader{docs: map[string]*document.Document{
		"https://files.example.com/statement.pdf": {
			Source:    "https://files.example.com/statement.pdf",
			PageCount: 2,
			PageSizes: []geometry.Size{{Width: 612, Height: 792}, {Width: 612, Height: 792}},
			Library:   document.LibraryPDFCPU,
		},
	}}
	return NewRouter(NewHandler(repo, loader, zap.NewNop()), zap.NewNop(), false), repo
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func createTemplate(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, body := doJSON(t, h, http.MethodPost, "/api/v1/templates", map[string]interface{}{
		"name":         "Care worker statement",
		"document_url": "https://files.example.com/statement.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["id"].(string)
}

func TestTemplates_CreateDerivesPageCount(t *testing.T) {
	h, _ := newTestRouter(t)
	id := createTemplate(t, h)

	rec, body := doJSON(t, h, http.MethodGet, "/api/v1/templates/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["page_count"])
	assert.Equal(t, "Care worker statement", body["name"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/v1/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)
}

func TestTemplates_Errors(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, body := doJSON(t, h, http.MethodGet, "/api/v1/templates/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(0), body["ok"])
	assert.Equal(t, float64(404), body["code"])

	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/templates", map[string]interface{}{"document_url": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doJSON(t, h, http.MethodPost, "/api/v1/templates", map[string]interface{}{
		"name":         "Broken",
		"document_url": "https://files.example.com/empty.pdf",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EMPTY", body["kind"])
	assert.Equal(t, "https://files.example.com/empty.pdf", body["direct_link"])
	assert.NotEmpty(t, body["message"])
}

func TestTemplates_UpdateKeepsExplicitPageCount(t *testing.T) {
	h, _ := newTestRouter(t)
	id := createTemplate(t, h)

	rec, body := doJSON(t, h, http.MethodPut, "/api/v1/templates/"+id, map[string]interface{}{
		"name":         "Renamed",
		"document_url": "https://files.example.com/statement.pdf",
		"page_count":   5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, id, body["id"])
	assert.Equal(t, float64(5), body["page_count"])
	assert.Equal(t, "Renamed", body["name"])
}

func TestTemplates_Document(t *testing.T) {
	h, _ := newTestRouter(t)
	id := createTemplate(t, h)

	rec, body := doJSON(t, h, http.MethodGet, "/api/v1/templates/"+id+"/document", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["page_count"])
	assert.Equal(t, "pdfcpu", body["library"])
}

func TestFields_SaveAndList(t *testing.T) {
	h, _ := newTestRouter(t)
	id := createTemplate(t, h)

	rec, body := doJSON(t, h, http.MethodPut, "/api/v1/templates/"+id+"/fields", map[string]interface{}{
		"fields": []map[string]interface{}{
			{"name": "sig", "type": "signature", "x": 72, "y": 600, "width": 180, "height": 60, "page": 2, "required": true},
			{"name": "agree", "type": "checkbox", "x": -4, "y": 10, "width": 24, "height": 24, "page": 1,
				"properties": map[string]interface{}{"checked": true}},
			{"name": "", "type": "text", "page": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := body["data"].([]interface{})
	require.Len(t, data, 3)

	first := data[0].(map[string]interface{})
	assert.Equal(t, "agree", first["name"])
	assert.Equal(t, float64(0), first["x"], "negative coordinates are clamped")
	assert.NotEmpty(t, first["id"])
	props := first["properties"].(map[string]interface{})
	assert.Equal(t, true, props["checked"])
	assert.Equal(t, "checkbox", props["kind"])

	assert.Equal(t, "", data[1].(map[string]interface{})["name"], "empty names are accepted")
	assert.Equal(t, "sig", data[2].(map[string]interface{})["name"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/v1/templates/"+id+"/fields", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 3)
}

func TestFields_Validation(t *testing.T) {
	h, repo := newTestRouter(t)
	id := createTemplate(t, h)

	tests := []struct {
		name  string
		field map[string]interface{}
	}{
		{"unknown type", map[string]interface{}{"type": "radio", "page": 1}},
		{"missing page", map[string]interface{}{"type": "text"}},
		{"page beyond document", map[string]interface{}{"type": "text", "page": 3}},
		{"mismatched properties", map[string]interface{}{"type": "text", "page": 1, "properties": map[string]interface{}{"kind": "date"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, h, http.MethodPut, "/api/v1/templates/"+id+"/fields", map[string]interface{}{
				"fields": []map[string]interface{}{tt.field},
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, float64(400), body["code"])
		})
	}

	stored, err := repo.LoadFields(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, stored, "rejected requests store nothing")

	rec, _ := doJSON(t, h, http.MethodPut, "/api/v1/templates/missing/fields", map[string]interface{}{"fields": []interface{}{}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HealthAndNoRoute(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, body := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = doJSON(t, h, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
