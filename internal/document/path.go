package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator keeps local document paths inside one directory.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator for the given directory.
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		return nil, fmt.Errorf("document directory cannot be empty")
	}
	return &PathValidator{root: root}, nil
}

// Root returns the configured directory.
func (v *PathValidator) Root() string {
	return v.root
}

// NormalizePath resolves path against the root and rejects anything that
// escapes it. Null bytes are stripped first.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	within, err := v.Within(abs)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return "", fmt.Errorf("path is outside document directory: %s", path)
	}
	return abs, nil
}

// Within reports whether path, after cleaning and symlink resolution, lies
// inside the root directory.
func (v *PathValidator) Within(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	root, err := filepath.Abs(v.root)
	if err != nil {
		return false, fmt.Errorf("failed to resolve document directory: %w", err)
	}

	cleanPath := filepath.Clean(abs)
	cleanRoot := filepath.Clean(root)

	realPath := cleanPath
	if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
		realPath = resolved
	}
	realRoot := cleanRoot
	if resolved, err := filepath.EvalSymlinks(cleanRoot); err == nil {
		realRoot = resolved
	}

	inside := func(p string) bool {
		for _, dir := range []string{cleanRoot, realRoot} {
			if p == dir || strings.HasPrefix(p, withSeparator(dir)) {
				return true
			}
		}
		return false
	}
	return inside(cleanPath) && inside(realPath), nil
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(os.PathSeparator)) {
		return dir
	}
	return dir + string(os.PathSeparator)
}
