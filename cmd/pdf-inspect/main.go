// Command pdf-inspect opens template documents the way the designer does and
// reports their page layout, or why they could not be opened.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-field-designer/internal/config"
	"github.com/a3tai/pdf-field-designer/internal/document"
	"github.com/a3tai/pdf-field-designer/internal/viewer"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	formatText  = "text"
	formatJSON  = "json"
	programName = "pdf-inspect"
)

type options struct {
	dir         string
	format      string
	diagnostic  bool
	verbose     bool
	zoom        float64
	maxFileSize int64
	timeout     time.Duration
}

// Inspection is the result for one source.
type Inspection struct {
	Source      string             `json:"source"`
	Success     bool               `json:"success"`
	Document    *document.Document `json:"document,omitempty"`
	Surfaces    []document.Surface `json:"surfaces,omitempty"`
	Kind        string             `json:"kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	Message     string             `json:"message,omitempty"`
	DirectLink  string             `json:"direct_link,omitempty"`
	Diagnostics []RendererAttempt  `json:"diagnostics,omitempty"`
	Elapsed     string             `json:"elapsed"`
}

// RendererAttempt records one library reading the raw bytes on its own.
type RendererAttempt struct {
	Library   document.LibraryType `json:"library"`
	Success   bool                 `json:"success"`
	PageCount int                  `json:"page_count,omitempty"`
	Error     string               `json:"error,omitempty"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.dir, "dir", ".", "Directory relative sources are read from")
	fs.StringVar(&opts.format, "format", formatText, "Output format: text, json")
	fs.BoolVar(&opts.diagnostic, "diagnostic", false, "Read each source with every PDF library separately")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log loader activity to stderr")
	fs.Float64Var(&opts.zoom, "zoom", viewer.DefaultZoom, "Zoom level used to report page surfaces")
	fs.Int64Var(&opts.maxFileSize, "max-file-size", config.DefaultMaxFileSize, "Maximum document size in bytes")
	fs.DurationVar(&opts.timeout, "timeout", config.DefaultFetchTimeout, "Timeout for remote fetches")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [OPTIONS] <source>...\n\n", programName)
		fmt.Fprintln(stderr, "Sources are paths under --dir, http(s):// URLs or s3:// URLs.")
		fmt.Fprintln(stderr, "S3 credentials are read from PDF_DESIGNER_S3_ACCESS_KEY and PDF_DESIGNER_S3_SECRET_KEY.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: at least one document source is required")
		fs.Usage()
		return exitUsage
	}
	if opts.format != formatText && opts.format != formatJSON {
		fmt.Fprintf(stderr, "Error: invalid format %q (must be text or json)\n", opts.format)
		return exitUsage
	}
	if opts.zoom <= 0 {
		fmt.Fprintln(stderr, "Error: zoom must be positive")
		return exitUsage
	}

	logger := zap.NewNop()
	if opts.verbose {
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{"stderr"}
		if l, err := zc.Build(); err == nil {
			logger = l
		}
	}
	defer func() { _ = logger.Sync() }()

	router, err := newRouter(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	loader := document.NewLoader(router, document.PDFCPURenderer{}, document.LedongthucRenderer{}, logger)

	results := make([]Inspection, 0, fs.NArg())
	for _, src := range fs.Args() {
		res := inspect(ctx, loader, src, opts.zoom)
		if opts.diagnostic {
			res.Diagnostics = diagnose(ctx, router, src)
		}
		results = append(results, res)
	}

	if err := writeResults(stdout, opts.format, results); err != nil {
		fmt.Fprintf(stderr, "Error writing results: %v\n", err)
		return exitFailed
	}
	for _, r := range results {
		if !r.Success {
			return exitFailed
		}
	}
	return exitOK
}

func newRouter(opts options) (*document.Router, error) {
	files, err := document.NewFileFetcher(opts.dir, opts.maxFileSize)
	if err != nil {
		return nil, err
	}
	router := &document.Router{
		File: files,
		HTTP: document.NewHTTPFetcher(opts.timeout, opts.maxFileSize),
	}

	accessKey, secretKey := os.Getenv("PDF_DESIGNER_S3_ACCESS_KEY"), os.Getenv("PDF_DESIGNER_S3_SECRET_KEY")
	if accessKey != "" && secretKey != "" {
		region := os.Getenv("PDF_DESIGNER_S3_REGION")
		if region == "" {
			region = config.DefaultS3Region
		}
		client := document.NewS3Client(document.S3Options{
			Region:       region,
			Endpoint:     os.Getenv("PDF_DESIGNER_S3_ENDPOINT"),
			AccessKey:    accessKey,
			SecretKey:    secretKey,
			UsePathStyle: os.Getenv("PDF_DESIGNER_S3_PATH_STYLE") == "true",
		})
		router.S3 = document.NewS3Fetcher(client, opts.maxFileSize)
	}
	return router, nil
}

func inspect(ctx context.Context, loader *document.Loader, src string, zoom float64) Inspection {
	start := time.Now()
	res := Inspection{Source: src}

	doc, err := loader.Load(ctx, src)
	res.Elapsed = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		res.Error = err.Error()
		var lerr *document.LoadError
		if errors.As(err, &lerr) {
			res.Kind = lerr.Kind.String()
			res.Message = lerr.UserMessage()
			res.DirectLink = lerr.DirectLink()
		}
		return res
	}

	res.Success = true
	res.Document = doc
	for page := 1; page <= doc.PageCount; page++ {
		if surface, err := doc.Surface(page, zoom); err == nil {
			res.Surfaces = append(res.Surfaces, surface)
		}
	}
	return res
}

// diagnose fetches src once and hands the bytes to every library.
func diagnose(ctx context.Context, fetcher document.Fetcher, src string) []RendererAttempt {
	payload, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return nil
	}

	libs := []document.LibraryType{document.LibraryPDFCPU, document.LibraryLedongthuc}
	attempts := make([]RendererAttempt, 0, len(libs))
	for _, lib := range libs {
		attempt := RendererAttempt{Library: lib}
		r, err := document.NewRenderer(lib)
		if err == nil {
			var layout *document.Layout
			if layout, err = r.Render(payload.Data); err == nil {
				attempt.Success = true
				attempt.PageCount = layout.PageCount
			}
		}
		if err != nil {
			attempt.Error = err.Error()
		}
		attempts = append(attempts, attempt)
	}
	return attempts
}

func writeResults(w io.Writer, format string, results []Inspection) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		writeText(&b, r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeText(b *strings.Builder, r Inspection) {
	fmt.Fprintf(b, "Source: %s\n", r.Source)
	if r.Success {
		via := ""
		if r.Document.ViaFallback {
			via = " (fallback)"
		}
		fmt.Fprintf(b, "Status: OK, %d pages via %s%s in %s\n", r.Document.PageCount, r.Document.Library, via, r.Elapsed)
		for i, size := range r.Document.PageSizes {
			line := fmt.Sprintf("  Page %d: %gx%g pt", i+1, size.Width, size.Height)
			if i < len(r.Surfaces) {
				s := r.Surfaces[i]
				line += fmt.Sprintf(", %gx%g px at %g%%", s.Width, s.Height, s.Scale*100)
			}
			b.WriteString(line + "\n")
		}
	} else {
		fmt.Fprintf(b, "Status: FAILED [%s] in %s\n", r.Kind, r.Elapsed)
		fmt.Fprintf(b, "  %s\n", r.Message)
		fmt.Fprintf(b, "  Error: %s\n", r.Error)
		if r.DirectLink != "" {
			fmt.Fprintf(b, "  Open directly: %s\n", r.DirectLink)
		}
	}

	if len(r.Diagnostics) > 0 {
		b.WriteString("Diagnostics:\n")
		for _, a := range r.Diagnostics {
			if a.Success {
				fmt.Fprintf(b, "  %s: %d pages\n", a.Library, a.PageCount)
			} else {
				fmt.Fprintf(b, "  %s: %s\n", a.Library, a.Error)
			}
		}
	}
}
