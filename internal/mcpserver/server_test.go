package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/nomenclature/internal/processing"
	"github.com/starford/nomenclature/internal/project"
	"github.com/starford/nomenclature/internal/testutil"
)

func testServer(t *testing.T, withStore bool) *Server {
	t.Helper()
	_, store := testutil.TestProject(t)
	var opts []processing.Option
	if withStore {
		opts = append(opts, processing.WithStore(testutil.TestStore(t)))
	}
	svc := processing.NewService(project.NewCache(store, project.DefaultLayout(), nil), opts...)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_codes":
		result, err = srv.listCodes(ctx, req)
	case "lookup_code":
		result, err = srv.lookupCode(ctx, req)
	case "list_models":
		result, err = srv.listModels(ctx, req)
	case "get_model_mapping":
		result, err = srv.getModelMapping(ctx, req)
	case "process_csv":
		result, err = srv.processCSV(ctx, req)
	case "list_runs":
		result, err = srv.listRuns(ctx, req)
	case "get_run_differences":
		result, err = srv.getRunDifferences(ctx, req)
	case "get_project_format":
		result, err = srv.getProjectFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListCodes(t *testing.T) {
	srv := testServer(t, false)
	r := callTool(t, srv, "list_codes", map[string]any{"dimension": "region"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if got := resultText(r); got != "World\nModel A|North\nModel A|South" {
		t.Errorf("list_codes = %q", got)
	}

	r = callTool(t, srv, "list_codes", map[string]any{"dimension": "scenario"})
	if !r.IsError {
		t.Error("expected error for dimension without codelist")
	}
}

func TestLookupCode(t *testing.T) {
	srv := testServer(t, false)
	r := callTool(t, srv, "lookup_code", map[string]any{"dimension": "variable", "name": "Price|Carbon"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var code struct {
		Name   string   `json:"name"`
		Unit   []string `json:"unit"`
		Weight string   `json:"weight"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &code); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if code.Name != "Price|Carbon" || code.Weight != "Population" || len(code.Unit) != 1 || code.Unit[0] != "USD/t CO2" {
		t.Errorf("unexpected code: %+v", code)
	}

	r = callTool(t, srv, "lookup_code", map[string]any{"dimension": "variable", "name": "Nope"})
	if !r.IsError {
		t.Error("expected error for unknown code")
	}
	r = callTool(t, srv, "lookup_code", map[string]any{"dimension": "variable"})
	if !r.IsError {
		t.Error("expected error for missing name")
	}
}

func TestModelMappingTools(t *testing.T) {
	srv := testServer(t, false)
	r := callTool(t, srv, "list_models", map[string]any{})
	if got := resultText(r); got != "model_a" {
		t.Errorf("list_models = %q", got)
	}

	r = callTool(t, srv, "get_model_mapping", map[string]any{"model": "model_a"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	text := resultText(r)
	for _, want := range []string{`"Model A|North"`, `"World"`, `"north"`} {
		if !strings.Contains(text, want) {
			t.Errorf("mapping output missing %s: %s", want, text)
		}
	}

	r = callTool(t, srv, "get_model_mapping", map[string]any{"model": "model_z"})
	if !r.IsError {
		t.Error("expected error for unmapped model")
	}
}

func TestProcessCSVAndRuns(t *testing.T) {
	srv := testServer(t, true)
	r := callTool(t, srv, "process_csv", map[string]any{"content": testutil.SampleCSV, "name": "sample.csv"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var rep struct {
		Run struct {
			ID         string `json:"id"`
			OutputRows int    `json:"output_rows"`
		} `json:"run"`
		Differences []struct {
			Region string `json:"region"`
			Year   int    `json:"year"`
		} `json:"differences"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Run.OutputRows != 12 {
		t.Errorf("output rows = %d, want 12", rep.Run.OutputRows)
	}
	if len(rep.Differences) != 1 || rep.Differences[0].Year != 2030 {
		t.Errorf("unexpected differences: %+v", rep.Differences)
	}

	r = callTool(t, srv, "list_runs", map[string]any{"limit": 5})
	if !strings.Contains(resultText(r), rep.Run.ID) {
		t.Errorf("list_runs missing run %s: %s", rep.Run.ID, resultText(r))
	}

	r = callTool(t, srv, "get_run_differences", map[string]any{"run_id": rep.Run.ID})
	if r.IsError || !strings.Contains(resultText(r), `"provided": 25`) {
		t.Errorf("get_run_differences = %s", resultText(r))
	}

	r = callTool(t, srv, "get_run_differences", map[string]any{"run_id": rep.Run.ID, "variable": "Population"})
	if got := resultText(r); got != "no differences" {
		t.Errorf("filtered differences = %q", got)
	}

	r = callTool(t, srv, "get_run_differences", map[string]any{"run_id": "missing"})
	if !r.IsError {
		t.Error("expected error for unknown run")
	}
}

func TestProcessCSVInvalid(t *testing.T) {
	srv := testServer(t, false)
	data := testutil.SampleCSV + "model_a,SSP2,north,Emissions|CH4,Mt CH4/yr,1,1\n"
	r := callTool(t, srv, "process_csv", map[string]any{"content": data})
	if !r.IsError {
		t.Fatal("expected error for unknown variable")
	}
	if !strings.Contains(resultText(r), "Emissions|CH4") {
		t.Errorf("error does not name the variable: %s", resultText(r))
	}
}

func TestRunsDisabledWithoutStore(t *testing.T) {
	srv := testServer(t, false)
	r := callTool(t, srv, "list_runs", map[string]any{})
	if !r.IsError {
		t.Error("expected error when run persistence is disabled")
	}
}

func TestProjectFormat(t *testing.T) {
	srv := testServer(t, false)
	r := callTool(t, srv, "get_project_format", map[string]any{})
	if !strings.Contains(resultText(r), "native_regions") {
		t.Error("format contract missing mapping section")
	}
}
