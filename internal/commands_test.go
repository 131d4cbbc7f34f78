package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/parser"
	"github.com/starford/nomenclature/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, files map[string]string) *Config {
	t.Helper()
	dir, _ := testutil.WriteFiles(t, files)
	cfg := NewDefaultConfig()
	cfg.Project.Path = dir
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func TestValidateYAML(t *testing.T) {
	dir, _ := testutil.TestProject(t)
	if err := ValidateYAML(dir, discardLogger()); err != nil {
		t.Fatalf("sample project should be valid: %v", err)
	}

	bad := filepath.Join(dir, "definitions", "variable", "bad.yaml")
	if err := os.WriteFile(bad, []byte("- Final\u202fEnergy:\n    unit: EJ/yr\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := ValidateYAML(dir, discardLogger())
	if !errors.Is(err, parser.ErrIllegalChar) {
		t.Fatalf("expected illegal character error, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad.yaml") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestValidateYAML_MissingPath(t *testing.T) {
	if err := ValidateYAML(filepath.Join(t.TempDir(), "missing"), discardLogger()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestValidateProject(t *testing.T) {
	cfg := testConfig(t, testutil.SampleFiles)
	if err := ValidateProject(cfg, discardLogger()); err != nil {
		t.Fatalf("validate project: %v", err)
	}

	files := maps.Clone(testutil.SampleFiles)
	files["mappings/model_b.yaml"] = "model: model_b\nnative_regions:\n  - east: Model B|East\n"
	cfg = testConfig(t, files)
	err := ValidateProject(cfg, discardLogger())
	if !errors.Is(err, apperr.ErrUndefinedRegion) {
		t.Fatalf("expected undefined region error, got %v", err)
	}
}

func TestProcessFile(t *testing.T) {
	cfg := testConfig(t, testutil.SampleFiles)
	out := t.TempDir()
	input := filepath.Join(out, "sample.csv")
	if err := os.WriteFile(input, []byte(testutil.SampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	req := ProcessRequest{
		Input:       input,
		Output:      filepath.Join(out, "result", "processed.csv"),
		Differences: filepath.Join(out, "result", "differences.csv"),
	}
	if err := ProcessFile(context.Background(), cfg, req, discardLogger()); err != nil {
		t.Fatalf("process file: %v", err)
	}

	processed, err := os.ReadFile(req.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(processed), "model_a,SSP2,Model A|North,Emissions|CO2,Mt CO2/yr,10,12") {
		t.Errorf("renamed row missing:\n%s", processed)
	}
	if strings.Contains(string(processed), ",north,") {
		t.Errorf("native names should be renamed:\n%s", processed)
	}

	diffs, err := os.ReadFile(req.Differences)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(diffs)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one difference, got:\n%s", diffs)
	}
}

func TestProcessFile_InvalidData(t *testing.T) {
	cfg := testConfig(t, testutil.SampleFiles)
	cfg.SQLite.Path = ""
	input := filepath.Join(t.TempDir(), "bad.csv")
	data := testutil.SampleCSV + "model_a,SSP2,north,Emissions|CO2,kt CO2/yr,1,1\n"
	if err := os.WriteFile(input, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	err := ProcessFile(context.Background(), cfg, ProcessRequest{Input: input}, discardLogger())
	if !errors.Is(err, apperr.ErrWrongUnit) {
		t.Fatalf("expected wrong unit error, got %v", err)
	}
}
