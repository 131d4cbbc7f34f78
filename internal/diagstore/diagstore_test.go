package diagstore

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/models"
	"github.com/starford/nomenclature/internal/region"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "nomenclature-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleDiffs() []region.Difference {
	return []region.Difference{
		{Model: "m", Scenario: "s", Region: "World", Variable: "Emissions", Unit: "Mt", Year: 2020,
			Provided: 28, Aggregated: 30, RelativeDifference: 2.0 / 28},
		{Model: "m", Scenario: "s", Region: "World", Variable: "Population", Unit: "million", Year: 2020,
			Provided: 0, Aggregated: 4, RelativeDifference: math.Inf(1)},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM differences`).Scan(&count); err != nil {
		t.Fatalf("differences table missing: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := testDB(t)
	saved, err := db.SaveRun(models.RunSummary{
		Source: "data.csv", Checksum: "abc", Models: []string{"m"},
		InputRows: 4, OutputRows: 3, RTol: 0.01,
	}, sampleDiffs())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated run ID")
	}
	if saved.Differences != 2 {
		t.Errorf("Differences = %d, want 2", saved.Differences)
	}

	got, err := db.GetRun(saved.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Source != "data.csv" || got.Checksum != "abc" || got.OutputRows != 3 {
		t.Errorf("unexpected run: %+v", got)
	}
	if len(got.Models) != 1 || got.Models[0] != "m" {
		t.Errorf("Models = %v, want [m]", got.Models)
	}
	if got.RTol != 0.01 {
		t.Errorf("RTol = %v, want 0.01", got.RTol)
	}
}

func TestGetRunNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetRun("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.Differences("missing", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDifferencesRoundTrip(t *testing.T) {
	db := testDB(t)
	run, err := db.SaveRun(models.RunSummary{Source: "x"}, sampleDiffs())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	diffs, err := db.Differences(run.ID, "")
	if err != nil {
		t.Fatalf("Differences: %v", err)
	}
	if len(diffs) != 2 {
		t.Fatalf("expected 2 differences, got %d", len(diffs))
	}
	if diffs[0].Variable != "Emissions" || diffs[0].Provided != 28 || diffs[0].Aggregated != 30 {
		t.Errorf("unexpected first difference: %+v", diffs[0])
	}
	if !math.IsInf(diffs[1].RelativeDifference, 1) {
		t.Errorf("relative difference = %v, want +Inf", diffs[1].RelativeDifference)
	}

	only, err := db.Differences(run.ID, "Population")
	if err != nil {
		t.Fatalf("Differences: %v", err)
	}
	if len(only) != 1 || only[0].Variable != "Population" {
		t.Errorf("filter by variable failed: %+v", only)
	}
}

func TestSaveRunNonFiniteValues(t *testing.T) {
	db := testDB(t)
	diffs := []region.Difference{
		{Model: "m", Scenario: "s", Region: "World", Variable: "Emissions", Unit: "Mt", Year: 2020,
			Provided: 7, Aggregated: math.NaN(), RelativeDifference: math.NaN()},
		{Model: "m", Scenario: "s", Region: "World", Variable: "Emissions", Unit: "Mt", Year: 2030,
			Provided: math.Inf(1), Aggregated: 3, RelativeDifference: math.Inf(1)},
	}
	run, err := db.SaveRun(models.RunSummary{Source: "x"}, diffs)
	if err != nil {
		t.Fatalf("SaveRun with non-finite values: %v", err)
	}

	got, err := db.Differences(run.ID, "")
	if err != nil {
		t.Fatalf("Differences: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 differences, got %d", len(got))
	}
	if got[0].Provided != 7 || !math.IsNaN(got[0].Aggregated) {
		t.Errorf("unexpected first difference: %+v", got[0])
	}
	if !math.IsNaN(got[1].Provided) || got[1].Aggregated != 3 {
		t.Errorf("unexpected second difference: %+v", got[1])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, src := range []string{"a.csv", "b.csv", "c.csv"} {
		_, err := db.SaveRun(models.RunSummary{Source: src, CreatedAt: base.Add(time.Duration(i) * time.Hour)}, nil)
		if err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, total, err := db.ListRuns(2, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 2 || runs[0].Source != "c.csv" || runs[1].Source != "b.csv" {
		t.Errorf("unexpected page: %+v", runs)
	}

	runs, _, err = db.ListRuns(2, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Source != "a.csv" {
		t.Errorf("unexpected second page: %+v", runs)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	db := testDB(t)
	run, err := db.SaveRun(models.RunSummary{Source: "x"}, sampleDiffs())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := db.DeleteRun(run.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM differences WHERE run_id = ?`, run.ID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("differences left after delete: %d", count)
	}
	if err := db.DeleteRun(run.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
