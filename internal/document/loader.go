// Package document opens template documents and reports their page layout.
//
// A load runs the primary renderer first. If that fails, the raw bytes are
// fetched once more, checked for an acceptable content type and a non-empty
// body, and handed to the secondary renderer. Only when both attempts fail
// does the caller see a single classified LoadError.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

// Document is an opened template document.
type Document struct {
	Source      string          `json:"source"`
	PageCount   int             `json:"page_count"`
	PageSizes   []geometry.Size `json:"page_sizes"`
	Library     LibraryType     `json:"library"`
	ViaFallback bool            `json:"via_fallback"`
}

// Surface is the on-screen rendering area of one page at a given scale.
type Surface struct {
	Page   int     `json:"page"`
	Scale  float64 `json:"scale"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageSize returns the document-space size of a 1-based page.
func (d *Document) PageSize(page int) (geometry.Size, error) {
	if page < 1 || page > len(d.PageSizes) {
		return geometry.Size{}, fmt.Errorf("page %d out of range 1..%d", page, len(d.PageSizes))
	}
	return d.PageSizes[page-1], nil
}

// Surface returns the render surface of page at scale.
func (d *Document) Surface(page int, scale float64) (Surface, error) {
	if scale <= 0 {
		return Surface{}, fmt.Errorf("scale must be positive, got %v", scale)
	}
	size, err := d.PageSize(page)
	if err != nil {
		return Surface{}, err
	}
	scaled := size.Scale(scale)
	return Surface{Page: page, Scale: scale, Width: scaled.Width, Height: scaled.Height}, nil
}

// Loader opens documents through a primary renderer with a single fallback.
type Loader struct {
	fetcher   Fetcher
	primary   Renderer
	secondary Renderer
	logger    *zap.Logger
}

// NewLoader creates a loader. primary is tried first; secondary receives the
// re-fetched raw bytes when primary fails.
func NewLoader(fetcher Fetcher, primary, secondary Renderer, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher:   fetcher,
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Load opens src. Failures are returned as *LoadError.
func (l *Loader) Load(ctx context.Context, src string) (*Document, error) {
	doc, err := l.loadPrimary(ctx, src)
	if err == nil {
		return doc, nil
	}

	l.logger.Warn("primary document load failed, fetching raw bytes",
		zap.String("source", src),
		zap.String("library", string(l.primary.Library())),
		zap.Error(err),
	)

	doc, lerr := l.loadFallback(ctx, src)
	if lerr != nil {
		l.logger.Error("document load failed",
			zap.String("source", src),
			zap.Stringer("kind", lerr.Kind),
			zap.Error(lerr.Err),
		)
		return nil, lerr
	}
	return doc, nil
}

func (l *Loader) loadPrimary(ctx context.Context, src string) (*Document, error) {
	payload, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	layout, err := l.primary.Render(payload.Data)
	if err != nil {
		return nil, err
	}
	return newDocument(src, layout, l.primary.Library(), false), nil
}

func (l *Loader) loadFallback(ctx context.Context, src string) (*Document, *LoadError) {
	payload, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, newLoadError(KindTooLarge, src, err)
		}
		return nil, newLoadError(KindNetwork, src, err)
	}

	if len(payload.Data) == 0 {
		return nil, newLoadError(KindEmpty, src, errors.New("document is empty"))
	}
	if !acceptableContentType(payload.ContentType) {
		return nil, newLoadError(KindContentType, src, fmt.Errorf("unexpected content type %q", payload.ContentType))
	}
	if !bytes.HasPrefix(bytes.TrimLeft(payload.Data[:min(len(payload.Data), 1024)], "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, newLoadError(KindContentType, src, errors.New("missing PDF header"))
	}

	layout, err := l.secondary.Render(payload.Data)
	if err != nil {
		return nil, newLoadError(KindRender, src, err)
	}
	return newDocument(src, layout, l.secondary.Library(), true), nil
}

func newDocument(src string, layout *Layout, lib LibraryType, viaFallback bool) *Document {
	return &Document{
		Source:      src,
		PageCount:   layout.PageCount,
		PageSizes:   layout.PageSizes,
		Library:     lib,
		ViaFallback: viaFallback,
	}
}

// acceptableContentType accepts PDF and generic binary types. Object stores
// often serve PDFs as octet-stream, and local files may have no type at all.
func acceptableContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch strings.ToLower(mediaType) {
	case "application/pdf", "application/x-pdf", "application/octet-stream", "binary/octet-stream":
		return true
	default:
		return false
	}
}
