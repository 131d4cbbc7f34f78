// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes nomenclature tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/processing"
)

const formatURI = "nomenclature://project-format"

// Server wraps the MCP server with nomenclature tools.
type Server struct {
	mcp *server.MCPServer
	svc *processing.Service
}

// New creates a new MCP server with all nomenclature tools registered.
func New(svc *processing.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Nomenclature",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_codes",
		mcp.WithDescription("List all codes of a dimension codelist (e.g. region, variable)."),
		mcp.WithString("dimension", mcp.Required(), mcp.Description("Dimension name")),
	), s.listCodes)

	s.mcp.AddTool(mcp.NewTool("lookup_code",
		mcp.WithDescription("Return a code with all its attributes (unit, aggregation settings, hierarchy)."),
		mcp.WithString("dimension", mcp.Required(), mcp.Description("Dimension name")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Code name, e.g. Emissions|CO2")),
	), s.lookupCode)

	s.mcp.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the models that have a region mapping."),
	), s.listModels)

	s.mcp.AddTool(mcp.NewTool("get_model_mapping",
		mcp.WithDescription("Return the region mapping of a model: native regions, common regions and excluded regions."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name")),
	), s.getModelMapping)

	s.mcp.AddTool(mcp.NewTool("process_csv",
		mcp.WithDescription("Validate and region-process IAMC data in CSV form (wide or long layout). "+
			"Returns the run summary and the differences between provided and aggregated common-region values."),
		mcp.WithString("content", mcp.Required(), mcp.Description("CSV content with Model, Scenario, Region, Variable, Unit columns")),
		mcp.WithString("name", mcp.Description("Optional source name recorded with the run")),
	), s.processCSV)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recorded processing runs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
	), s.listRuns)

	s.mcp.AddTool(mcp.NewTool("get_run_differences",
		mcp.WithDescription("Return the reconciliation differences recorded for a run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithString("variable", mcp.Description("Optional variable filter")),
	), s.getRunDifferences)

	s.mcp.AddTool(mcp.NewTool("get_project_format",
		mcp.WithDescription("Returns the format of codelist and model mapping files. "+
			"Call this before editing project files."),
	), s.getProjectFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Project Format",
			mcp.WithResourceDescription("Layout and YAML format of codelists and model mappings."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProjectFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listCodes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dim, err := req.RequireString("dimension")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proj, err := s.svc.Project()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cl, ok := proj.Definition.CodeList(dim)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no codelist for dimension: %s", dim)), nil
	}
	return mcp.NewToolResultText(strings.Join(cl.Names(), "\n")), nil
}

func (s *Server) lookupCode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dim, err := req.RequireString("dimension")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proj, err := s.svc.Project()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	code, err := proj.Definition.Lookup(dim, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(code), nil
}

func (s *Server) listModels(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	proj, err := s.svc.Project()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if proj.Mappings == nil || proj.Mappings.Len() == 0 {
		return mcp.NewToolResultText("no model mappings"), nil
	}
	return mcp.NewToolResultText(strings.Join(proj.Mappings.Models(), "\n")), nil
}

func (s *Server) getModelMapping(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	model, err := req.RequireString("model")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proj, err := s.svc.Project()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if proj.Mappings == nil {
		return mcp.NewToolResultError("project has no model mappings"), nil
	}
	m, err := proj.Mappings.MappingFor(model)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m), nil
}

func (s *Server) processCSV(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("name", "mcp")
	rep, err := s.svc.ProcessCSV(ctx, name, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) listRuns(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := s.svc.Store()
	if store == nil {
		return mcp.NewToolResultError("run persistence is disabled"), nil
	}
	limit := req.GetInt("limit", 20)
	runs, total, err := store.ListRuns(limit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"runs": runs, "total": total}), nil
}

func (s *Server) getRunDifferences(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	store := s.svc.Store()
	if store == nil {
		return mcp.NewToolResultError("run persistence is disabled"), nil
	}
	diffs, err := store.Differences(id, req.GetString("variable", ""))
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("run not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(diffs) == 0 {
		return mcp.NewToolResultText("no differences"), nil
	}
	return jsonResult(diffs), nil
}

func (s *Server) getProjectFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProjectFormatContract), nil
}

func (s *Server) readProjectFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ProjectFormatContract,
		},
	}, nil
}
