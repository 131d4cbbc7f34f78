// Package iamc implements the long-form IAMC scenario dataset used throughout
// validation and region processing.
//
// A Frame is an immutable value. Every transformation (Filter, Rename, Concat)
// returns a new Frame and leaves its receiver untouched.
package iamc

import (
	"errors"
	"fmt"
)

// Dimension names of the IAMC index.
const (
	DimModel    = "model"
	DimScenario = "scenario"
	DimRegion   = "region"
	DimVariable = "variable"
	DimUnit     = "unit"
	DimYear     = "year"
)

// ErrDuplicateRow is returned when two rows share the same index key.
var ErrDuplicateRow = errors.New("iamc: duplicate row")

// Row is one datapoint of a timeseries.
type Row struct {
	Model    string  `json:"model"`
	Scenario string  `json:"scenario"`
	Region   string  `json:"region"`
	Variable string  `json:"variable"`
	Unit     string  `json:"unit"`
	Year     int     `json:"year"`
	Value    float64 `json:"value"`
}

// Key is the index of a Row.
type Key struct {
	Model, Scenario, Region, Variable, Unit string
	Year                                    int
}

// Key returns the index key of r.
func (r Row) Key() Key {
	return Key{r.Model, r.Scenario, r.Region, r.Variable, r.Unit, r.Year}
}

// Get returns the string value of a dimension, or "" for unknown dimensions.
func (r Row) Get(dim string) string {
	switch dim {
	case DimModel:
		return r.Model
	case DimScenario:
		return r.Scenario
	case DimRegion:
		return r.Region
	case DimVariable:
		return r.Variable
	case DimUnit:
		return r.Unit
	case DimYear:
		return fmt.Sprint(r.Year)
	}
	return ""
}

func (r Row) with(dim, value string) Row {
	switch dim {
	case DimModel:
		r.Model = value
	case DimScenario:
		r.Scenario = value
	case DimRegion:
		r.Region = value
	case DimVariable:
		r.Variable = value
	case DimUnit:
		r.Unit = value
	}
	return r
}

// Frame is an ordered, duplicate-free collection of rows.
type Frame struct {
	rows []Row
}

// NewFrame copies rows into a new Frame. It fails on duplicate index keys.
func NewFrame(rows []Row) (*Frame, error) {
	seen := make(map[Key]struct{}, len(rows))
	for _, r := range rows {
		k := r.Key()
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: %+v", ErrDuplicateRow, k)
		}
		seen[k] = struct{}{}
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	return &Frame{rows: out}, nil
}

// MustFrame is NewFrame for literals known to be valid; it panics on error.
func MustFrame(rows ...Row) *Frame {
	f, err := NewFrame(rows)
	if err != nil {
		panic(err)
	}
	return f
}

// Empty returns a frame without rows.
func Empty() *Frame { return &Frame{} }

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

// IsEmpty reports whether the frame has no rows.
func (f *Frame) IsEmpty() bool { return f.Len() == 0 }

// Rows returns a copy of the rows in order.
func (f *Frame) Rows() []Row {
	if f == nil {
		return nil
	}
	out := make([]Row, len(f.rows))
	copy(out, f.rows)
	return out
}

// Each calls fn for every row in order.
func (f *Frame) Each(fn func(Row)) {
	if f == nil {
		return
	}
	for _, r := range f.rows {
		fn(r)
	}
}

// Values returns the distinct values of dim in order of first appearance.
func (f *Frame) Values(dim string) []string {
	seen := make(map[string]struct{})
	var out []string
	f.Each(func(r Row) {
		v := r.Get(dim)
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	})
	return out
}

// Models is Values(DimModel).
func (f *Frame) Models() []string { return f.Values(DimModel) }

// Regions is Values(DimRegion).
func (f *Frame) Regions() []string { return f.Values(DimRegion) }

// Variables is Values(DimVariable).
func (f *Frame) Variables() []string { return f.Values(DimVariable) }

// Years returns the distinct years in order of first appearance.
func (f *Frame) Years() []int {
	seen := make(map[int]struct{})
	var out []int
	f.Each(func(r Row) {
		if _, ok := seen[r.Year]; ok {
			return
		}
		seen[r.Year] = struct{}{}
		out = append(out, r.Year)
	})
	return out
}

// UnitMapping returns, per variable, the units it is reported in.
func (f *Frame) UnitMapping() map[string][]string {
	out := make(map[string][]string)
	seen := make(map[[2]string]struct{})
	f.Each(func(r Row) {
		k := [2]string{r.Variable, r.Unit}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out[r.Variable] = append(out[r.Variable], r.Unit)
	})
	return out
}

// Filter returns the rows matching flt.
func (f *Frame) Filter(flt Filter) *Frame {
	m := flt.matcher()
	var out []Row
	f.Each(func(r Row) {
		if m.match(r) {
			out = append(out, r)
		}
	})
	return &Frame{rows: out}
}

// Where returns the rows for which keep returns true.
func (f *Frame) Where(keep func(Row) bool) *Frame {
	var out []Row
	f.Each(func(r Row) {
		if keep(r) {
			out = append(out, r)
		}
	})
	return &Frame{rows: out}
}

// Rename replaces values of dim according to mapping. Values missing from
// mapping are kept. Renaming that merges two rows onto the same key fails.
func (f *Frame) Rename(dim string, mapping map[string]string) (*Frame, error) {
	if dim == DimYear {
		return nil, fmt.Errorf("iamc: rename: dimension %q cannot be renamed", dim)
	}
	rows := make([]Row, 0, f.Len())
	f.Each(func(r Row) {
		if to, ok := mapping[r.Get(dim)]; ok {
			r = r.with(dim, to)
		}
		rows = append(rows, r)
	})
	out, err := NewFrame(rows)
	if err != nil {
		return nil, fmt.Errorf("iamc: rename %s: %w", dim, err)
	}
	return out, nil
}

// Concat joins frames in order. Overlapping keys are an error.
func Concat(frames ...*Frame) (*Frame, error) {
	n := 0
	for _, f := range frames {
		n += f.Len()
	}
	rows := make([]Row, 0, n)
	for _, f := range frames {
		if f != nil {
			rows = append(rows, f.rows...)
		}
	}
	out, err := NewFrame(rows)
	if err != nil {
		return nil, fmt.Errorf("iamc: concat: %w", err)
	}
	return out, nil
}

// Index returns a lookup from key to value.
func (f *Frame) Index() map[Key]float64 {
	out := make(map[Key]float64, f.Len())
	f.Each(func(r Row) { out[r.Key()] = r.Value })
	return out
}
