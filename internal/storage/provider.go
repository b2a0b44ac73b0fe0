// Package storage defines the workspace file-system abstraction.
package storage

import "github.com/starford/scrivano/internal/models"

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root (e.g. "intake/idea.txt",
// "notebook/models/whisper.md").
type Provider interface {
	// List walks dir and returns metadata for every file whose extension
	// is in exts (all files when exts is empty), sorted by path.
	List(dir string, exts ...string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// WriteUnique writes content to path, or to the first free
	// numerically-suffixed variant if path is taken. It never overwrites
	// and returns the path actually written.
	WriteUnique(path string, content []byte) (string, error)
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
}
