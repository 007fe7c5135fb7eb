// Package tempfile allocates temporary files whose lifetime is owned by the
// caller: everything created through a Scope is removed by Cleanup.
package tempfile

import (
	"fmt"
	"os"
	"sync"
)

// Scope is a temporary directory plus the files created inside it.
type Scope struct {
	mu  sync.Mutex
	dir string
}

// NewScope creates a scope under parent (os.TempDir when empty).
func NewScope(parent string) (*Scope, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("tempfile: create parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "folio-render-*")
	if err != nil {
		return nil, fmt.Errorf("tempfile: create scope: %w", err)
	}
	return &Scope{dir: dir}, nil
}

// Dir returns the scope directory, or "" after Cleanup.
func (s *Scope) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// Create writes content to a new file named after pattern (see os.CreateTemp)
// and returns its path.
func (s *Scope) Create(pattern string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return "", fmt.Errorf("tempfile: scope already cleaned up")
	}
	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return "", fmt.Errorf("tempfile: create: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("tempfile: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("tempfile: close: %w", err)
	}
	return f.Name(), nil
}

// Cleanup removes the scope and everything in it. It is safe to call twice.
func (s *Scope) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}
