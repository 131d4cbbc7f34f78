package iamc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

var indexColumns = []string{DimModel, DimScenario, DimRegion, DimVariable, DimUnit}

// ErrMalformedCSV matches every error returned by ReadCSV.
var ErrMalformedCSV = errors.New("iamc: malformed csv")

type csvError struct{ err error }

func (e csvError) Error() string   { return e.err.Error() }
func (e csvError) Unwrap() []error { return []error{e.err, ErrMalformedCSV} }

// ReadCSV parses IAMC data in wide (one column per year) or long
// (year and value columns) layout. Header names are case-insensitive and
// empty value cells are skipped.
func ReadCSV(r io.Reader) (*Frame, error) {
	f, err := readCSV(r)
	if err != nil {
		return nil, csvError{err}
	}
	return f, nil
}

func readCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("iamc: read csv: missing header")
		}
		return nil, fmt.Errorf("iamc: read csv: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range indexColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("iamc: read csv: missing column %q", c)
		}
	}

	yi, hasYear := cols[DimYear]
	vi, hasValue := cols["value"]
	long := hasYear && hasValue

	// Wide layout: every non-index column must be a year.
	type yearCol struct {
		idx  int
		year int
	}
	var years []yearCol
	if !long {
		for i, h := range header {
			name := strings.ToLower(strings.TrimSpace(h))
			if slices.Contains(indexColumns, name) {
				continue
			}
			y, err := strconv.Atoi(strings.TrimSpace(h))
			if err != nil {
				return nil, fmt.Errorf("iamc: read csv: unexpected column %q", h)
			}
			years = append(years, yearCol{i, y})
		}
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("iamc: read csv: %w", err)
		}
		field := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		base := Row{
			Model:    field(cols[DimModel]),
			Scenario: field(cols[DimScenario]),
			Region:   field(cols[DimRegion]),
			Variable: field(cols[DimVariable]),
			Unit:     field(cols[DimUnit]),
		}
		if long {
			raw := field(vi)
			if raw == "" {
				continue
			}
			y, err := strconv.Atoi(field(yi))
			if err != nil {
				return nil, fmt.Errorf("iamc: read csv: line %d: year %q: %w", line, field(yi), err)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("iamc: read csv: line %d: value %q: %w", line, raw, err)
			}
			if !finite(v) {
				continue
			}
			base.Year, base.Value = y, v
			rows = append(rows, base)
			continue
		}
		for _, yc := range years {
			raw := field(yc.idx)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("iamc: read csv: line %d: value %q: %w", line, raw, err)
			}
			if !finite(v) {
				continue
			}
			r := base
			r.Year, r.Value = yc.year, v
			rows = append(rows, r)
		}
	}

	f, err := NewFrame(rows)
	if err != nil {
		return nil, fmt.Errorf("iamc: read csv: %w", err)
	}
	return f, nil
}

// finite reports whether v is a usable data value. NaN and infinite cells
// count as missing, like empty ones.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WriteCSV writes f in wide layout. Timeseries keep their order of first
// appearance; year columns are sorted ascending.
func WriteCSV(w io.Writer, f *Frame) error {
	years := f.Years()
	slices.Sort(years)
	col := make(map[int]int, len(years))
	header := []string{"Model", "Scenario", "Region", "Variable", "Unit"}
	for i, y := range years {
		col[y] = len(header) + i
	}
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}

	type series struct{ model, scenario, region, variable, unit string }
	var order []series
	cells := make(map[series][]string)
	f.Each(func(r Row) {
		s := series{r.Model, r.Scenario, r.Region, r.Variable, r.Unit}
		rec, ok := cells[s]
		if !ok {
			rec = make([]string, len(header))
			copy(rec, []string{r.Model, r.Scenario, r.Region, r.Variable, r.Unit})
			order = append(order, s)
		}
		rec[col[r.Year]] = strconv.FormatFloat(r.Value, 'g', -1, 64)
		cells[s] = rec
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("iamc: write csv: %w", err)
	}
	for _, s := range order {
		if err := cw.Write(cells[s]); err != nil {
			return fmt.Errorf("iamc: write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("iamc: write csv: %w", err)
	}
	return nil
}
