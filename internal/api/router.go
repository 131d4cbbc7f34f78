package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nomenclature/internal/processing"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *processing.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Definitions.
	r.Get("/dimensions", h.ListDimensions)
	r.Get("/codes/{dimension}", h.ListCodes)
	r.Get("/codes/{dimension}/*", h.GetCode)

	// Model mappings.
	r.Get("/models", h.ListModels)
	r.Get("/models/{model}/mapping", h.GetModelMapping)

	// Processing.
	r.Post("/process", h.Process)

	// Runs.
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)
	r.Get("/runs/{id}/differences", h.GetRunDifferences)
	r.Delete("/runs/{id}", h.DeleteRun)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
