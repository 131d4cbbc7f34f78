// Package models defines the shared transfer types of the nomenclature service.
package models

import "time"

// FileMetadata describes a definition or mapping file inside the project.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunSummary is the persisted record of one region processing run.
type RunSummary struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Checksum    string    `json:"checksum"`
	Models      []string  `json:"models"`
	InputRows   int       `json:"input_rows"`
	OutputRows  int       `json:"output_rows"`
	Differences int       `json:"differences"`
	RTol        float64   `json:"rtol"`
	ATol        float64   `json:"atol"`
	CreatedAt   time.Time `json:"created_at"`
}
