// Package storage defines the project file-system abstraction.
package storage

import "github.com/starford/nomenclature/internal/models"

// Provider is the read-only interface for project files. Outputs are
// written with WriteFile.
type Provider interface {
	// List returns metadata for every YAML file under dir (relative to the project root).
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the project root).
	Read(path string) ([]byte, error)
	// Exists reports whether path names an existing directory or file.
	Exists(path string) bool
}
