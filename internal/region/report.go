package region

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var differenceHeader = []string{
	"Model", "Scenario", "Region", "Variable", "Unit", "Year",
	"Provided", "Aggregated", "Relative Difference",
}

// WriteDifferencesCSV exports reconciliation differences, one per line.
func WriteDifferencesCSV(w io.Writer, diffs []Difference) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(differenceHeader); err != nil {
		return fmt.Errorf("region: write differences: %w", err)
	}
	for _, d := range diffs {
		rec := []string{
			d.Model, d.Scenario, d.Region, d.Variable, d.Unit, strconv.Itoa(d.Year),
			formatFloat(d.Provided), formatFloat(d.Aggregated), formatFloat(d.RelativeDifference),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("region: write differences: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("region: write differences: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
