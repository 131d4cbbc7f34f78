// Package definition combines the codelists of a project into a data
// structure definition and validates scenario data against it.
package definition

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/codelist"
	"github.com/starford/nomenclature/internal/iamc"
	"github.com/starford/nomenclature/internal/storage"
)

// DefaultDimensions are loaded when no dimensions are configured.
var DefaultDimensions = []string{codelist.DimRegion, codelist.DimVariable}

// Definition holds one codelist per dimension.
type Definition struct {
	dimensions []string
	lists      map[string]*codelist.CodeList

	Variable *codelist.VariableCodeList
	Region   *codelist.RegionCodeList
}

// New assembles a definition from already built codelists. Either of
// variables and regions may be nil.
func New(variables *codelist.VariableCodeList, regions *codelist.RegionCodeList, others ...*codelist.CodeList) *Definition {
	d := &Definition{lists: make(map[string]*codelist.CodeList), Variable: variables, Region: regions}
	if regions != nil {
		d.add(regions.CodeList)
	}
	if variables != nil {
		d.add(variables.CodeList)
	}
	for _, o := range others {
		d.add(o)
	}
	return d
}

func (d *Definition) add(cl *codelist.CodeList) {
	if _, ok := d.lists[cl.Dimension()]; !ok {
		d.dimensions = append(d.dimensions, cl.Dimension())
	}
	d.lists[cl.Dimension()] = cl
}

// Load reads one codelist per dimension from sub-directories of dir.
func Load(p storage.Provider, dir string, dimensions []string) (*Definition, error) {
	if len(dimensions) == 0 {
		dimensions = DefaultDimensions
	}
	if !p.Exists(dir) {
		return nil, fmt.Errorf("definition: directory not found: %s", dir)
	}
	var (
		variables *codelist.VariableCodeList
		regions   *codelist.RegionCodeList
		others    []*codelist.CodeList
		empty     []string
	)
	for _, dim := range dimensions {
		sub := path.Join(dir, dim)
		if !p.Exists(sub) {
			empty = append(empty, dim)
			continue
		}
		var (
			n   int
			err error
		)
		switch dim {
		case codelist.DimVariable:
			variables, err = codelist.LoadVariables(p, sub)
			if err == nil {
				n = variables.Len()
			}
		case codelist.DimRegion:
			regions, err = codelist.LoadRegions(p, sub)
			if err == nil {
				n = regions.Len()
			}
		default:
			var cl *codelist.CodeList
			cl, err = codelist.Load(p, dim, sub)
			if err == nil {
				n = cl.Len()
				others = append(others, cl)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("definition: %w", err)
		}
		if n == 0 {
			empty = append(empty, dim)
		}
	}
	if len(empty) > 0 {
		return nil, fmt.Errorf("definition: empty codelist: %s", strings.Join(empty, ", "))
	}
	return New(variables, regions, others...), nil
}

// Dimensions returns the dimensions with a codelist, in load order.
func (d *Definition) Dimensions() []string {
	return slices.Clone(d.dimensions)
}

// CodeList returns the codelist of dimension, if any.
func (d *Definition) CodeList(dimension string) (*codelist.CodeList, bool) {
	cl, ok := d.lists[dimension]
	return cl, ok
}

// Lookup returns the code name of dimension.
func (d *Definition) Lookup(dimension, name string) (codelist.Code, error) {
	cl, ok := d.lists[dimension]
	if !ok {
		return codelist.Code{}, fmt.Errorf("definition: lookup: no codelist for dimension %q: %w", dimension, apperr.ErrNotFound)
	}
	return cl.Lookup(name)
}

// Contains reports whether name is a code of dimension.
func (d *Definition) Contains(dimension, name string) bool {
	cl, ok := d.lists[dimension]
	return ok && cl.Contains(name)
}

// Validate checks that every coordinate of f along the definition's
// dimensions is a known code and that variables are reported in one of their
// declared units. Each problem is logged and all are returned joined.
// When dimensions are given, only those codelists are checked.
func (d *Definition) Validate(f *iamc.Frame, logger *slog.Logger, dimensions ...string) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(dimensions) == 0 {
		dimensions = d.dimensions
	}
	var errs []error
	for _, dim := range dimensions {
		cl, ok := d.lists[dim]
		if !ok {
			continue
		}
		if err := cl.ValidateItems(f.Values(dim)); err != nil {
			logger.Error("items not defined in codelist",
				slog.String("dimension", dim),
				slog.Any("items", cl.Unknown(f.Values(dim))))
			errs = append(errs, err)
		}
	}
	if d.Variable != nil && slices.Contains(dimensions, codelist.DimVariable) {
		if err := d.validateUnits(f, logger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Definition) validateUnits(f *iamc.Frame, logger *slog.Logger) error {
	mapping := f.UnitMapping()
	variables := make([]string, 0, len(mapping))
	for v := range mapping {
		variables = append(variables, v)
	}
	sort.Strings(variables)

	var (
		invalid []string
		details []string
	)
	for _, v := range variables {
		code, err := d.Variable.Lookup(v)
		if err != nil {
			continue
		}
		for _, u := range mapping[v] {
			if code.AllowsUnit(u) {
				continue
			}
			invalid = append(invalid, v)
			details = append(details, fmt.Sprintf("'%s' - expected: %s, found: '%s'", v, expectedUnits(code.Unit), u))
			logger.Error("variable reported with wrong unit",
				slog.String("variable", v),
				slog.String("unit", u),
				slog.Any("expected", code.Unit))
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return &apperr.SchemaError{
		Kind: apperr.KindWrongUnit, Dimension: codelist.DimVariable,
		Codes: slices.Compact(invalid), Detail: strings.Join(details, "; "),
	}
}

func expectedUnits(units []string) string {
	if len(units) == 1 {
		return "'" + units[0] + "'"
	}
	quoted := make([]string, len(units))
	for i, u := range units {
		quoted[i] = "'" + u + "'"
	}
	return "one of " + strings.Join(quoted, ", ")
}
