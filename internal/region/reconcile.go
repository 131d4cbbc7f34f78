package region

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/starford/nomenclature/internal/iamc"
)

// Difference records a common-region value reported by the model that does
// not match the value aggregated from its constituents.
type Difference struct {
	Model              string  `json:"model"`
	Scenario           string  `json:"scenario"`
	Region             string  `json:"region"`
	Variable           string  `json:"variable"`
	Unit               string  `json:"unit"`
	Year               int     `json:"year"`
	Provided           float64 `json:"provided"`
	Aggregated         float64 `json:"aggregated"`
	RelativeDifference float64 `json:"relative_difference"`
}

// MarshalJSON encodes non-finite numbers as null. An infinite relative
// difference means the provided value is zero.
func (d Difference) MarshalJSON() ([]byte, error) {
	type plain Difference
	out := struct {
		plain
		Provided           *float64 `json:"provided"`
		Aggregated         *float64 `json:"aggregated"`
		RelativeDifference *float64 `json:"relative_difference"`
	}{
		plain:              plain(d),
		Provided:           finitePtr(d.Provided),
		Aggregated:         finitePtr(d.Aggregated),
		RelativeDifference: finitePtr(d.RelativeDifference),
	}
	return json.Marshal(out)
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func finitePtr(f float64) *float64 {
	if !finite(f) {
		return nil
	}
	return &f
}

// relativeDifference is |aggregated - provided| / |provided|.
func relativeDifference(provided, aggregated float64) float64 {
	diff := math.Abs(aggregated - provided)
	if provided == 0 {
		if diff == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return diff / math.Abs(provided)
}

// within reports whether aggregated matches provided within tolerance.
func (p *Processor) within(provided, aggregated float64) bool {
	return math.Abs(aggregated-provided) <= p.atol+p.rtol*math.Abs(provided)
}

// reconcile merges computed common-region rows into the provided ones.
// Provided values always win; computed rows are added where nothing was
// provided, and mismatches beyond tolerance are reported. Non-finite values
// are never compared.
func (p *Processor) reconcile(model string, provided *iamc.Frame, computed []iamc.Row) ([]iamc.Row, []Difference) {
	idx := provided.Index()
	out := provided.Rows()
	var diffs []Difference
	for _, r := range computed {
		if !finite(r.Value) {
			p.logger.Warn("non-finite aggregate dropped",
				slog.String("model", model),
				slog.String("region", r.Region),
				slog.String("variable", r.Variable),
				slog.Int("year", r.Year))
			continue
		}
		prov, ok := idx[r.Key()]
		if !ok {
			out = append(out, r)
			continue
		}
		if !finite(prov) || p.within(prov, r.Value) {
			continue
		}
		d := Difference{
			Model: model, Scenario: r.Scenario, Region: r.Region, Variable: r.Variable,
			Unit: r.Unit, Year: r.Year, Provided: prov, Aggregated: r.Value,
			RelativeDifference: relativeDifference(prov, r.Value),
		}
		diffs = append(diffs, d)
		p.logger.Warn("difference between provided and aggregated data",
			slog.String("model", model),
			slog.String("scenario", d.Scenario),
			slog.String("region", d.Region),
			slog.String("variable", d.Variable),
			slog.Int("year", d.Year),
			slog.Float64("provided", d.Provided),
			slog.Float64("aggregated", d.Aggregated),
			slog.Float64("relative_difference", d.RelativeDifference))
	}
	return out, diffs
}
