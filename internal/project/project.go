// Package project loads a nomenclature project (definitions and model
// mappings) from storage and keeps it cached until explicitly invalidated.
package project

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/nomenclature/internal/checksum"
	"github.com/starford/nomenclature/internal/definition"
	"github.com/starford/nomenclature/internal/mapping"
	"github.com/starford/nomenclature/internal/region"
	"github.com/starford/nomenclature/internal/storage"
)

// Layout names the project directories, relative to the storage root.
type Layout struct {
	Definitions          string
	Mappings             string
	Dimensions           []string
	AllowMappingOverride bool
}

// DefaultLayout is the conventional project layout.
func DefaultLayout() Layout {
	return Layout{
		Definitions: "definitions",
		Mappings:    "mappings",
		Dimensions:  definition.DefaultDimensions,
	}
}

// Project is a loaded, validated project.
type Project struct {
	Definition *definition.Definition
	// Mappings is nil when the project has no mappings directory.
	Mappings *mapping.Set
	// Fingerprint identifies the file contents the project was loaded from.
	Fingerprint string
}

// Load reads the definitions and, if present, the model mappings of a
// project. Mappings are validated against the region codelist.
func Load(p storage.Provider, layout Layout, logger *slog.Logger) (*Project, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fp, err := Fingerprint(p, layout)
	if err != nil {
		return nil, err
	}
	def, err := definition.Load(p, layout.Definitions, layout.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	proj := &Project{Definition: def, Fingerprint: fp}

	if layout.Mappings == "" || !p.Exists(layout.Mappings) {
		logger.Debug("project: no model mappings", slog.String("dir", layout.Mappings))
		return proj, nil
	}
	if def.Variable == nil {
		return nil, errors.New("project: model mappings require a variable codelist")
	}
	opts := []mapping.SetOption{mapping.WithLogger(logger)}
	if layout.AllowMappingOverride {
		opts = append(opts, mapping.WithOverride())
	}
	set, err := mapping.LoadSet(p, layout.Mappings, opts...)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if def.Region != nil {
		if err := set.ValidateRegions(def.Region); err != nil {
			return nil, fmt.Errorf("project: %w", err)
		}
	}
	proj.Mappings = set
	logger.Info("project: loaded",
		slog.String("definitions", layout.Definitions),
		slog.String("mappings", layout.Mappings),
		slog.Int("models", set.Len()))
	return proj, nil
}

// Processor returns a region processor over the project's mappings, or nil
// when the project has none.
func (p *Project) Processor(opts ...region.Option) *region.Processor {
	if p.Mappings == nil {
		return nil
	}
	if p.Definition.Region != nil {
		opts = append([]region.Option{region.WithRegions(p.Definition.Region)}, opts...)
	}
	return region.NewProcessor(p.Mappings, p.Definition.Variable, opts...)
}

// Fingerprint digests the paths and checksums of every project file.
func Fingerprint(p storage.Provider, layout Layout) (string, error) {
	entries := make(map[string]string)
	for _, dir := range []string{layout.Definitions, layout.Mappings} {
		if dir == "" || !p.Exists(dir) {
			continue
		}
		files, err := p.List(dir)
		if err != nil {
			return "", fmt.Errorf("project: fingerprint: %w", err)
		}
		for _, f := range files {
			entries[f.Path] = f.Checksum
		}
	}
	return checksum.Manifest(entries), nil
}
