package document

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

// LibraryType names the PDF library behind a renderer.
type LibraryType string

const (
	LibraryPDFCPU     LibraryType = "pdfcpu"
	LibraryLedongthuc LibraryType = "ledongthuc"
)

// letter is used for pages that carry no usable MediaBox.
var letter = geometry.Size{Width: 612, Height: 792}

// Layout is what a renderer reports about a parsed document.
type Layout struct {
	PageCount int
	PageSizes []geometry.Size
}

// Renderer parses PDF bytes into a page layout.
type Renderer interface {
	Render(data []byte) (*Layout, error)
	Library() LibraryType
}

// RendererError wraps a failure inside one PDF library.
type RendererError struct {
	Library LibraryType
	Op      string
	Err     error
}

func (e *RendererError) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *RendererError) Unwrap() error {
	return e.Err
}

// NewRenderer creates a renderer for the given library.
func NewRenderer(lib LibraryType) (Renderer, error) {
	switch lib {
	case LibraryPDFCPU:
		return PDFCPURenderer{}, nil
	case LibraryLedongthuc:
		return LedongthucRenderer{}, nil
	default:
		return nil, &RendererError{Library: lib, Op: "create", Err: fmt.Errorf("unknown library type: %s", lib)}
	}
}

// PDFCPURenderer reads documents with pdfcpu in relaxed validation mode.
type PDFCPURenderer struct{}

func (PDFCPURenderer) Library() LibraryType {
	return LibraryPDFCPU
}

func (r PDFCPURenderer) Render(data []byte) (*Layout, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &RendererError{Library: LibraryPDFCPU, Op: "read", Err: fmt.Errorf("failed to read PDF context: %w", err)}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &RendererError{Library: LibraryPDFCPU, Op: "read", Err: fmt.Errorf("failed to ensure page count: %w", err)}
	}
	if ctx.PageCount < 1 {
		return nil, &RendererError{Library: LibraryPDFCPU, Op: "read", Err: fmt.Errorf("document has no pages")}
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, &RendererError{Library: LibraryPDFCPU, Op: "page_dims", Err: err}
	}

	sizes := make([]geometry.Size, ctx.PageCount)
	for i := range sizes {
		sizes[i] = letter
		if i < len(dims) && dims[i].Width > 0 && dims[i].Height > 0 {
			sizes[i] = geometry.Size{Width: dims[i].Width, Height: dims[i].Height}
		}
	}
	return &Layout{PageCount: ctx.PageCount, PageSizes: sizes}, nil
}

// LedongthucRenderer reads documents with ledongthuc/pdf. It tolerates
// files pdfcpu rejects and is used for the fallback attempt.
type LedongthucRenderer struct{}

func (LedongthucRenderer) Library() LibraryType {
	return LibraryLedongthuc
}

func (r LedongthucRenderer) Render(data []byte) (layout *Layout, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			layout = nil
			err = &RendererError{Library: LibraryLedongthuc, Op: "read", Err: fmt.Errorf("parser panic: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &RendererError{Library: LibraryLedongthuc, Op: "read", Err: err}
	}

	count := reader.NumPage()
	if count < 1 {
		return nil, &RendererError{Library: LibraryLedongthuc, Op: "read", Err: fmt.Errorf("document has no pages")}
	}

	sizes := make([]geometry.Size, count)
	for i := range sizes {
		sizes[i] = mediaBox(reader.Page(i + 1).V)
	}
	return &Layout{PageCount: count, PageSizes: sizes}, nil
}

// mediaBox walks up the page tree until it finds an inherited MediaBox.
func mediaBox(v pdf.Value) geometry.Size {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w < 0 {
				w = -w
			}
			if h < 0 {
				h = -h
			}
			if w > 0 && h > 0 {
				return geometry.Size{Width: w, Height: h}
			}
		}
		v = v.Key("Parent")
	}
	return letter
}
