package document

import (
	"fmt"
	"strings"
)

// LoadKind classifies why a document could not be opened.
type LoadKind int

const (
	// KindRender means the bytes arrived but no renderer could parse them.
	KindRender LoadKind = iota
	// KindContentType means the source served something other than a PDF.
	KindContentType
	// KindEmpty means the source served zero bytes.
	KindEmpty
	// KindTooLarge means the payload exceeded the configured size limit.
	KindTooLarge
	// KindNetwork covers transport failures and error statuses.
	KindNetwork
)

func (k LoadKind) String() string {
	switch k {
	case KindContentType:
		return "CONTENT_TYPE"
	case KindEmpty:
		return "EMPTY"
	case KindTooLarge:
		return "TOO_LARGE"
	case KindNetwork:
		return "NETWORK"
	default:
		return "RENDER"
	}
}

// LoadError is the single error surfaced after a document failed to load
// through both the primary path and the fallback fetch.
type LoadError struct {
	Kind   LoadKind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] failed to load document %s: %v", e.Kind, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown next to the retry and direct-link actions.
func (e *LoadError) UserMessage() string {
	switch e.Kind {
	case KindContentType:
		return "The file is not a PDF. Check that the template points to a PDF document."
	case KindEmpty:
		return "The file is empty. Upload the template document again."
	case KindTooLarge:
		return "The file is too large to open in the designer."
	case KindNetwork:
		return "The document could not be downloaded. Check your connection and try again."
	default:
		return "The document could not be displayed. Try again or open it directly."
	}
}

// DirectLink returns the source when it can be opened outside the designer,
// or the empty string.
func (e *LoadError) DirectLink() string {
	if strings.HasPrefix(e.Source, "http://") || strings.HasPrefix(e.Source, "https://") {
		return e.Source
	}
	return ""
}

func newLoadError(kind LoadKind, source string, err error) *LoadError {
	return &LoadError{Kind: kind, Source: source, Err: err}
}
