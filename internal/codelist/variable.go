package codelist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/nomenclature/internal/apperr"
)

// DimVariable is the dimension name of variable codelists.
const DimVariable = "variable"

// VariableCodeList is a CodeList of variables with unit and aggregation
// attributes.
type VariableCodeList struct {
	*CodeList
}

// NewVariableCodeList builds a variable codelist. On top of the shared
// invariants every variable needs a unit, an aggregation method must be
// known, weights and region-aggregation targets must be defined variables and
// region-aggregation cannot be combined with method or weight.
func NewVariableCodeList(codes []Code) (*VariableCodeList, error) {
	cl, err := New(DimVariable, codes)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, c := range cl.Codes() {
		if !c.HasUnit() {
			errs = append(errs, schemaErr(apperr.KindInvalidCode, c, "missing 'unit' attribute"))
		}
		if !c.Method.Valid() {
			errs = append(errs, schemaErr(apperr.KindInvalidCode, c, fmt.Sprintf("unknown aggregation method %q", c.Method)))
		}
		if c.Weight != "" && !cl.Contains(c.Weight) {
			errs = append(errs, schemaErr(apperr.KindUnknownCode, c, fmt.Sprintf("weight variable %q is not defined", c.Weight)))
		}
		if len(c.RegionAggregation) == 0 {
			continue
		}
		if conflict := c.hasAggregationKwargs(); len(conflict) > 0 {
			errs = append(errs, schemaErr(apperr.KindInvalidCode, c,
				fmt.Sprintf("'region-aggregation' cannot be combined with %s", strings.Join(conflict, ", "))))
		}
		for _, t := range c.RegionAggregation {
			if !cl.Contains(t.Name) {
				errs = append(errs, schemaErr(apperr.KindUnknownCode, c, fmt.Sprintf("region-aggregation target %q is not defined", t.Name)))
			}
			if !t.Args.Method.Valid() {
				errs = append(errs, schemaErr(apperr.KindInvalidCode, c, fmt.Sprintf("unknown aggregation method %q for target %q", t.Args.Method, t.Name)))
			}
			if t.Args.Weight != "" && !cl.Contains(t.Args.Weight) {
				errs = append(errs, schemaErr(apperr.KindUnknownCode, c, fmt.Sprintf("weight variable %q is not defined", t.Args.Weight)))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &VariableCodeList{CodeList: cl}, nil
}

func schemaErr(kind apperr.Kind, c Code, detail string) error {
	if c.File != "" {
		detail += " in " + c.File
	}
	return &apperr.SchemaError{Kind: kind, Dimension: DimVariable, Codes: []string{c.Name}, Detail: detail}
}

// IsRegionAggregationSkipped reports whether name is flagged
// skip-region-aggregation.
func (v *VariableCodeList) IsRegionAggregationSkipped(name string) (bool, error) {
	c, err := v.Lookup(name)
	if err != nil {
		return false, err
	}
	return c.SkipRegionAggregation, nil
}

// AggregationArgs returns the aggregation options of variable name.
func (v *VariableCodeList) AggregationArgs(name string) (AggregationArgs, error) {
	c, err := v.Lookup(name)
	if err != nil {
		return AggregationArgs{}, err
	}
	return c.AggregationArgs(), nil
}

// RenameTargets returns the region-aggregation targets of variable name,
// empty when the variable aggregates under its own name.
func (v *VariableCodeList) RenameTargets(name string) ([]RenameTarget, error) {
	c, err := v.Lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]RenameTarget, len(c.RegionAggregation))
	copy(out, c.RegionAggregation)
	return out, nil
}

// Units returns the allowed units of variable name.
func (v *VariableCodeList) Units(name string) ([]string, error) {
	c, err := v.Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.Unit, nil
}
