// Package storage manages the on-disk data area: the import inbox, processed
// imports, generated exports and the legacy data file.
package storage

import "time"

// Well-known directories under the data root.
const (
	InboxDir     = "inbox"
	ProcessedDir = "inbox/processed"
	ExportsDir   = "exports"
)

// FileInfo describes one file in the data area.
type FileInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Checksum string    `json:"checksum"`
	ModTime  time.Time `json:"modTime"`
}

// Provider is the interface for data-area file operations. All paths are
// relative to the data root.
type Provider interface {
	// Root returns the absolute data root.
	Root() string
	// Abs resolves a relative path, rejecting traversal outside the root.
	Abs(path string) (string, error)
	// List returns the regular files directly inside dir whose extension is
	// one of exts (all files when exts is empty).
	List(dir string, exts ...string) ([]FileInfo, error)
	// Exists reports whether path names an existing file.
	Exists(path string) bool
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	Delete(path string) error
	Move(oldPath, newPath string) error
}
