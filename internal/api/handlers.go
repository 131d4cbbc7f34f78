package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/diagstore"
	"github.com/starford/nomenclature/internal/iamc"
	"github.com/starford/nomenclature/internal/processing"
	"github.com/starford/nomenclature/internal/region"
)

const maxUploadSize = 64 << 20

var errRunsDisabled = errors.New("run persistence is disabled")

// Handler holds API route handlers.
type Handler struct {
	svc *processing.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *processing.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a decoded URL parameter. Code names may contain encoded
// slashes and spaces (e.g. Emissions%7CCO2).
func urlParam(r *http.Request, key string) string {
	raw := strings.TrimPrefix(chi.URLParam(r, key), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (diagstore.RunStore, bool) {
	s := h.svc.Store()
	if s == nil {
		writeJSON(w, r, http.StatusNotFound, errorBody(errRunsDisabled.Error()))
		return nil, false
	}
	return s, true
}

// ListDimensions handles GET /api/dimensions.
//
//	@Summary		List the dimensions of the project definition
//	@Tags			codes
//	@Produce		json
//	@Success		200	{object}	DimensionListResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dimensions [get]
func (h *Handler) ListDimensions(w http.ResponseWriter, r *http.Request) {
	proj, err := h.svc.Project()
	if err != nil {
		writeError(w, r, err)
		return
	}
	dims := proj.Definition.Dimensions()
	out := make([]DimensionInfo, 0, len(dims))
	for _, d := range dims {
		cl, _ := proj.Definition.CodeList(d)
		out = append(out, DimensionInfo{Name: d, Codes: cl.Len()})
	}
	writeJSON(w, r, http.StatusOK, DimensionListResponse{Dimensions: out})
}

// ListCodes handles GET /api/codes/{dimension}.
//
//	@Summary		List the codes of a dimension
//	@Tags			codes
//	@Produce		json
//	@Param			dimension	path		string	true	"Dimension"
//	@Success		200			{object}	CodeListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/codes/{dimension} [get]
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	dim := urlParam(r, "dimension")
	proj, err := h.svc.Project()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cl, ok := proj.Definition.CodeList(dim)
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorBody("no codelist for dimension "+dim))
		return
	}
	writeJSON(w, r, http.StatusOK, CodeListResponse{Dimension: dim, Codes: cl.Names()})
}

// GetCode handles GET /api/codes/{dimension}/*.
//
//	@Summary		Get a code with its attributes
//	@Tags			codes
//	@Produce		json
//	@Param			dimension	path		string	true	"Dimension"
//	@Param			name		path		string	true	"Code name"
//	@Success		200			{object}	Code
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/codes/{dimension}/{name} [get]
func (h *Handler) GetCode(w http.ResponseWriter, r *http.Request) {
	dim := urlParam(r, "dimension")
	name := urlParam(r, "*")
	if name == "" {
		writeJSON(w, r, http.StatusBadRequest, errorBody("code name is required"))
		return
	}
	proj, err := h.svc.Project()
	if err != nil {
		writeError(w, r, err)
		return
	}
	code, err := proj.Definition.Lookup(dim, name)
	if err != nil {
		if errors.Is(err, apperr.ErrUnknownCode) || errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, r, http.StatusNotFound, errResponse{Error: err.Error(), Kind: apperr.KindUnknownCode})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, code)
}

// ListModels handles GET /api/models.
//
//	@Summary		List models with a region mapping
//	@Tags			mappings
//	@Produce		json
//	@Success		200	{object}	ModelListResponse
//	@Security		BearerAuth
//	@Router			/models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	proj, err := h.svc.Project()
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := []string{}
	if proj.Mappings != nil {
		out = proj.Mappings.Models()
	}
	writeJSON(w, r, http.StatusOK, ModelListResponse{Models: out})
}

// GetModelMapping handles GET /api/models/{model}/mapping.
//
//	@Summary		Get the region mapping of a model
//	@Tags			mappings
//	@Produce		json
//	@Param			model	path		string	true	"Model name"
//	@Success		200		{object}	mapping.ModelMapping
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/models/{model}/mapping [get]
func (h *Handler) GetModelMapping(w http.ResponseWriter, r *http.Request) {
	model := urlParam(r, "model")
	proj, err := h.svc.Project()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if proj.Mappings == nil {
		writeJSON(w, r, http.StatusNotFound, errorBody("project has no model mappings"))
		return
	}
	m, err := proj.Mappings.MappingFor(model)
	if err != nil {
		kind, _ := errorKind(err)
		writeJSON(w, r, http.StatusNotFound, errResponse{Error: err.Error(), Kind: kind})
		return
	}
	writeJSON(w, r, http.StatusOK, m)
}

// Process handles POST /api/process.
//
// The body is IAMC data in CSV form. With ?output=csv the processed data is
// returned as wide CSV and the run ID in the X-Run-ID header.
//
//	@Summary		Validate and region-process scenario data
//	@Tags			processing
//	@Accept			text/csv
//	@Produce		json
//	@Param			name	query		string	false	"Source name recorded with the run"
//	@Param			output	query		string	false	"Response format"	Enums(json, csv)
//	@Success		200		{object}	ProcessResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/process [post]
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(data) == 0 {
		writeJSON(w, r, http.StatusBadRequest, errorBody("request body is empty"))
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}

	rep, err := h.svc.ProcessCSV(r.Context(), name, data)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("output") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("X-Run-ID", rep.Run.ID)
		w.WriteHeader(http.StatusOK)
		if err := iamc.WriteCSV(w, rep.Frame); err != nil {
			slog.Error("write processed csv failed", slog.String("run_id", rep.Run.ID), slog.String("error", err.Error()))
		}
		return
	}
	writeJSON(w, r, http.StatusOK, ProcessResponse{Run: rep.Run, Differences: rep.Differences})
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List processing runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	runs, total, err := store.ListRuns(limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, RunListResponse{Runs: runs, Total: total})
}

// GetRun handles GET /api/runs/{id}.
//
//	@Summary		Get a processing run
//	@Tags			runs
//	@Produce		json
//	@Param			id	path		string	true	"Run ID"
//	@Success		200	{object}	RunSummary
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	run, err := store.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// GetRunDifferences handles GET /api/runs/{id}/differences.
//
//	@Summary		Get the reconciliation differences of a run
//	@Tags			runs
//	@Produce		json
//	@Param			id			path		string	true	"Run ID"
//	@Param			variable	query		string	false	"Filter by variable"
//	@Param			format		query		string	false	"Response format"	Enums(json, csv)
//	@Success		200			{object}	DifferenceListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id}/differences [get]
func (h *Handler) GetRunDifferences(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	diffs, err := store.Differences(id, r.URL.Query().Get("variable"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := region.WriteDifferencesCSV(w, diffs); err != nil {
			slog.Error("write differences csv failed", slog.String("run_id", id), slog.String("error", err.Error()))
		}
		return
	}
	writeJSON(w, r, http.StatusOK, DifferenceListResponse{RunID: id, Differences: diffs})
}

// DeleteRun handles DELETE /api/runs/{id}.
//
//	@Summary		Delete a processing run
//	@Tags			runs
//	@Param			id	path	string	true	"Run ID"
//	@Success		204	"Run deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id} [delete]
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteRun(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
