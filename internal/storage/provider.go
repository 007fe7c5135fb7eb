// Package storage defines the project file-system abstraction.
package storage

import "time"

// FileInfo is the metadata returned by list operations.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for project file operations. All paths are
// relative to the project root and use the host separator.
type Provider interface {
	// Root returns the absolute project root.
	Root() string
	// List returns metadata for every file under dir whose extension is in
	// exts (all files when exts is empty). Hidden and "_"-prefixed entries
	// are skipped.
	List(dir string, exts ...string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether path names a regular file.
	Exists(path string) bool
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
