// Package mapping describes, per model, how native regions are selected and
// renamed and how common regions are built from them.
package mapping

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nomenclature/internal/apperr"
)

// NativeRegion selects a model native region, optionally renaming it.
type NativeRegion struct {
	Name   string `json:"name"`
	Rename string `json:"rename,omitempty"`
}

// Target returns the name the region is reported under after processing.
func (n NativeRegion) Target() string {
	if n.Rename != "" {
		return n.Rename
	}
	return n.Name
}

// Validate validates the native region.
func (n NativeRegion) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required),
	)
}

// CommonRegion is aggregated from the listed native region originals.
type CommonRegion struct {
	Name         string   `json:"name"`
	Constituents []string `json:"constituents"`
}

// IsSingleConstituent reports whether the region is a plain rename of one
// native region.
func (c CommonRegion) IsSingleConstituent() bool { return len(c.Constituents) == 1 }

// Validate validates the common region.
func (c CommonRegion) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Constituents, validation.Required, validation.Each(validation.Required)),
	)
}

// ModelMapping is the region processing configuration of one or more models.
type ModelMapping struct {
	Models         []string       `json:"models"`
	File           string         `json:"file,omitempty"`
	NativeRegions  []NativeRegion `json:"native_regions,omitempty"`
	CommonRegions  []CommonRegion `json:"common_regions,omitempty"`
	ExcludeRegions []string       `json:"exclude_regions,omitempty"`
}

// New validates m and returns it.
func New(m ModelMapping) (*ModelMapping, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the structure of the mapping and its naming invariants.
// Every violation is reported; the result is a joined error of
// *apperr.MappingError values, or a structural validation error.
// Constituents must be native regions only when native_regions is given;
// a common-regions-only mapping may aggregate any region name.
func (m *ModelMapping) Validate() error {
	if len(m.NativeRegions) == 0 && len(m.CommonRegions) == 0 {
		return &apperr.MappingError{
			Kind: apperr.KindEmptyMapping, Model: m.label(), File: m.File,
			Detail: "at least one of 'native_regions' and 'common_regions' must be given",
		}
	}
	if err := validation.ValidateStruct(m,
		validation.Field(&m.Models, validation.Required, validation.Each(validation.Required)),
		validation.Field(&m.NativeRegions),
		validation.Field(&m.CommonRegions),
	); err != nil {
		return fmt.Errorf("mapping: %s: %w", m.File, err)
	}

	var errs []error
	collision := func(detail string, names []string) {
		errs = append(errs, &apperr.MappingError{
			Kind: apperr.KindRegionNameCollision, Model: m.label(), File: m.File,
			Regions: names, Detail: detail,
		})
	}

	originals := make([]string, len(m.NativeRegions))
	targets := make([]string, len(m.NativeRegions))
	for i, n := range m.NativeRegions {
		originals[i] = n.Name
		targets[i] = n.Target()
	}
	if d := duplicates(originals); len(d) > 0 {
		collision("duplicate native region names", d)
	}
	if d := duplicates(targets); len(d) > 0 {
		collision("duplicate names in native regions", d)
	}
	commons := m.CommonRegionNames()
	if d := duplicates(commons); len(d) > 0 {
		collision("duplicate names in common regions", d)
	}
	if o := overlap(targets, commons); len(o) > 0 {
		collision("names used by both native and common regions", o)
	}

	if len(m.NativeRegions) > 0 {
		selected := toSet(originals)
		var undefined []string
		for _, c := range m.CommonRegions {
			for _, r := range c.Constituents {
				if _, ok := selected[r]; !ok {
					undefined = append(undefined, r)
				}
			}
		}
		if len(undefined) > 0 {
			errs = append(errs, &apperr.MappingError{
				Kind: apperr.KindUndefinedConstituent, Model: m.label(), File: m.File,
				Regions: dedupe(undefined), Detail: "constituent regions are not native regions",
			})
		}
	}

	if o := overlap(m.ExcludeRegions, originals); len(o) > 0 {
		errs = append(errs, &apperr.MappingError{
			Kind: apperr.KindExcludeOverlap, Model: m.label(), File: m.File,
			Regions: o, Detail: "excluded regions overlap with native regions",
		})
	}
	if o := overlap(m.ExcludeRegions, commons); len(o) > 0 {
		errs = append(errs, &apperr.MappingError{
			Kind: apperr.KindExcludeOverlap, Model: m.label(), File: m.File,
			Regions: o, Detail: "excluded regions overlap with common regions",
		})
	}
	return errors.Join(errs...)
}

func (m *ModelMapping) label() string {
	if len(m.Models) == 1 {
		return m.Models[0]
	}
	return fmt.Sprint(m.Models)
}

// RenameOf returns the display name of a native region original, or the
// name itself when no rename applies.
func (m *ModelMapping) RenameOf(original string) string {
	for _, n := range m.NativeRegions {
		if n.Name == original {
			return n.Target()
		}
	}
	return original
}

// RenameMapping maps native region originals to their display names.
func (m *ModelMapping) RenameMapping() map[string]string {
	out := make(map[string]string, len(m.NativeRegions))
	for _, n := range m.NativeRegions {
		out[n.Name] = n.Target()
	}
	return out
}

// SelectedNativeOriginals returns the original names of selected native regions.
func (m *ModelMapping) SelectedNativeOriginals() map[string]struct{} {
	out := make(map[string]struct{}, len(m.NativeRegions))
	for _, n := range m.NativeRegions {
		out[n.Name] = struct{}{}
	}
	return out
}

// NativeTargets returns the display names of the native regions, in order.
func (m *ModelMapping) NativeTargets() []string {
	out := make([]string, len(m.NativeRegions))
	for i, n := range m.NativeRegions {
		out[i] = n.Target()
	}
	return out
}

// CommonRegionDefinitions returns the common regions in mapping order.
func (m *ModelMapping) CommonRegionDefinitions() []CommonRegion {
	out := make([]CommonRegion, len(m.CommonRegions))
	copy(out, m.CommonRegions)
	return out
}

// CommonRegionNames returns the common region names in mapping order.
func (m *ModelMapping) CommonRegionNames() []string {
	out := make([]string, len(m.CommonRegions))
	for i, c := range m.CommonRegions {
		out[i] = c.Name
	}
	return out
}

// Constituents returns every region referenced by a common region.
func (m *ModelMapping) Constituents() map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range m.CommonRegions {
		for _, r := range c.Constituents {
			out[r] = struct{}{}
		}
	}
	return out
}

// Excluded returns the regions exempt from the completeness check.
func (m *ModelMapping) Excluded() map[string]struct{} {
	return toSet(m.ExcludeRegions)
}

// AllRegions returns every region name the mapping produces: native display
// names followed by common region names.
func (m *ModelMapping) AllRegions() []string {
	return append(m.NativeTargets(), m.CommonRegionNames()...)
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, i := range items {
		out[i] = struct{}{}
	}
	return out
}

func duplicates(items []string) []string {
	counts := make(map[string]int, len(items))
	var out []string
	for _, i := range items {
		counts[i]++
		if counts[i] == 2 {
			out = append(out, i)
		}
	}
	return out
}

func overlap(a, b []string) []string {
	set := toSet(b)
	var out []string
	for _, i := range dedupe(a) {
		if _, ok := set[i]; ok {
			out = append(out, i)
		}
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, i := range items {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
