package mapping

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/nomenclature/internal/apperr"
)

// RegionSet is the part of a region codelist needed to validate mappings.
type RegionSet interface {
	Contains(name string) bool
}

// Set indexes model mappings by model name.
type Set struct {
	byModel  map[string]*ModelMapping
	order    []*ModelMapping
	override bool
	logger   *slog.Logger
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithOverride lets a later mapping replace an earlier one for the same model
// instead of failing.
func WithOverride() SetOption {
	return func(s *Set) { s.override = true }
}

// WithLogger sets the logger used for override warnings.
func WithLogger(l *slog.Logger) SetOption {
	return func(s *Set) { s.logger = l }
}

// NewSet returns an empty set.
func NewSet(opts ...SetOption) *Set {
	s := &Set{byModel: make(map[string]*ModelMapping), logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add registers m for each of its models. A model already claimed by another
// mapping is a ModelMappingCollision unless the set allows overrides.
func (s *Set) Add(m *ModelMapping) error {
	var errs []error
	for _, model := range m.Models {
		prev, ok := s.byModel[model]
		if !ok || prev == m {
			continue
		}
		if !s.override {
			errs = append(errs, &apperr.MappingError{
				Kind: apperr.KindModelMappingConflict, Model: model, File: m.File,
				Detail: fmt.Sprintf("already defined in %s", prev.File),
			})
			continue
		}
		s.logger.Warn("model mapping overridden",
			slog.String("model", model),
			slog.String("previous", prev.File),
			slog.String("file", m.File))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	for _, model := range m.Models {
		s.byModel[model] = m
	}
	s.order = append(s.order, m)
	return nil
}

// MappingFor returns the mapping of model or a NoMappingForModel config error.
func (s *Set) MappingFor(model string) (*ModelMapping, error) {
	m, ok := s.byModel[model]
	if !ok {
		return nil, &apperr.ConfigError{Kind: apperr.KindNoMappingForModel, Model: model}
	}
	return m, nil
}

// Models returns all mapped model names, sorted.
func (s *Set) Models() []string {
	out := make([]string, 0, len(s.byModel))
	for m := range s.byModel {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Mappings returns the mappings still referenced by at least one model, in
// insertion order.
func (s *Set) Mappings() []*ModelMapping {
	var out []*ModelMapping
	for _, m := range s.order {
		for _, model := range m.Models {
			if s.byModel[model] == m {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Len returns the number of mapped models.
func (s *Set) Len() int { return len(s.byModel) }

// ValidateRegions checks that every region produced by every mapping is
// defined in regions. Problems of all mappings are joined.
func (s *Set) ValidateRegions(regions RegionSet) error {
	var errs []error
	for _, m := range s.Mappings() {
		if err := ValidateRegions(m, regions); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateRegions checks the regions produced by a single mapping.
func ValidateRegions(m *ModelMapping, regions RegionSet) error {
	var invalid []string
	for _, r := range m.AllRegions() {
		if !regions.Contains(r) {
			invalid = append(invalid, r)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return &apperr.ValidationError{Kind: apperr.KindUndefinedRegion, File: m.File, Regions: invalid}
}
