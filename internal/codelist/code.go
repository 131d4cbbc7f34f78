// Package codelist holds the allowed values of each IAMC dimension together
// with their attributes.
//
// Codes carry a typed core (unit, aggregation behaviour, hierarchy) and a
// residual Extra bag for any other attribute found in the project files.
package codelist

import (
	"slices"
	"strings"
)

// Method is an aggregation method a variable may declare.
type Method string

const (
	MethodSum  Method = "sum"
	MethodMean Method = "mean"
	MethodMin  Method = "min"
	MethodMax  Method = "max"
)

// Valid reports whether m is empty or a known method.
func (m Method) Valid() bool {
	switch m {
	case "", MethodSum, MethodMean, MethodMin, MethodMax:
		return true
	}
	return false
}

// AggregationArgs are the per-variable options for region aggregation.
type AggregationArgs struct {
	Method              Method `json:"method,omitempty"`
	Weight              string `json:"weight,omitempty"`
	DropNegativeWeights bool   `json:"drop_negative_weights"`
}

// RenameTarget is one output variable produced from a source variable
// during region aggregation.
type RenameTarget struct {
	Name string          `json:"name"`
	Args AggregationArgs `json:"args"`
}

// Code is a single allowed value of a dimension.
type Code struct {
	Name        string `json:"name"`
	File        string `json:"file,omitempty"`
	Description string `json:"description,omitempty"`

	// Hierarchy is set for region codes.
	Hierarchy string `json:"hierarchy,omitempty"`

	// Unit is nil when the attribute is missing and [""] for a
	// dimensionless variable.
	Unit                  []string       `json:"unit,omitempty"`
	SkipRegionAggregation bool           `json:"skip_region_aggregation,omitempty"`
	Method                Method         `json:"method,omitempty"`
	Weight                string         `json:"weight,omitempty"`
	DropNegativeWeights   *bool          `json:"drop_negative_weights,omitempty"`
	RegionAggregation     []RenameTarget `json:"region_aggregation,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// HasUnit reports whether the code declares a unit attribute.
func (c Code) HasUnit() bool { return c.Unit != nil }

// AllowsUnit reports whether unit is one of the declared units.
// A missing unit and the empty string are treated alike.
func (c Code) AllowsUnit(unit string) bool {
	if len(c.Unit) == 0 {
		return unit == ""
	}
	return slices.Contains(c.Unit, unit)
}

// AggregationArgs returns the aggregation options declared on the code.
// Negative weights are dropped unless explicitly disabled.
func (c Code) AggregationArgs() AggregationArgs {
	drop := true
	if c.DropNegativeWeights != nil {
		drop = *c.DropNegativeWeights
	}
	return AggregationArgs{Method: c.Method, Weight: c.Weight, DropNegativeWeights: drop}
}

func (c Code) hasAggregationKwargs() []string {
	var out []string
	if c.Method != "" {
		out = append(out, "method")
	}
	if c.Weight != "" {
		out = append(out, "weight")
	}
	if c.DropNegativeWeights != nil {
		out = append(out, "drop-negative-weights")
	}
	return out
}

// normalizeKey maps attribute spellings like "skip_region_aggregation" and
// "Skip-Region-Aggregation" onto one canonical form.
func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "_", "-")
}
