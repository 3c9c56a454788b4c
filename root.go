package puizcloud

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ServedRoot is the directory exposed over HTTP. It is fixed once built and
// shared read-only between requests.
type ServedRoot struct {
	path      string
	canonical string
}

// NewServedRoot anchors a relative data path at the working directory and
// checks that it names an existing directory.
func NewServedRoot(data string) (*ServedRoot, error) {
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("served root: empty path")
	}
	abs, err := filepath.Abs(data)
	if err != nil {
		return nil, fmt.Errorf("served root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("served root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("served root: %s is not a directory", abs)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("served root: %w", err)
	}
	return &ServedRoot{path: abs, canonical: canonical}, nil
}

func (r *ServedRoot) Path() string {
	return r.path
}

func (r *ServedRoot) Canonical() string {
	return r.canonical
}

// contains reports whether p, a canonical path, lies at or below the
// canonical root.
func (r *ServedRoot) contains(p string) bool {
	if p == r.canonical {
		return true
	}
	prefix := r.canonical
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}
