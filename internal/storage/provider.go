// Package storage reads and writes markdown files in an export directory.
package storage

import "github.com/starford/noted/internal/models"

// Provider is the interface for export directory file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
}
