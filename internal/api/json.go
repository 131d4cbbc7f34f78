package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/iamc"
	"github.com/starford/nomenclature/internal/processing"
	"github.com/starford/nomenclature/internal/region"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

type errResponse struct {
	Error string      `json:"error" validate:"required"`
	Kind  apperr.Kind `json:"kind,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorKind returns the kind of the first typed domain error in err.
func errorKind(err error) (apperr.Kind, bool) {
	var (
		se *apperr.SchemaError
		me *apperr.MappingError
		ce *apperr.ConfigError
		ve *apperr.ValidationError
	)
	switch {
	case errors.As(err, &se):
		return se.Kind, true
	case errors.As(err, &me):
		return me.Kind, true
	case errors.As(err, &ve):
		return ve.Kind, true
	case errors.As(err, &ce):
		return ce.Kind, true
	}
	return "", false
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, typed := errorKind(err)
	var status int
	switch {
	case errors.Is(err, processing.ErrProjectUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, iamc.ErrMalformedCSV):
		status = http.StatusBadRequest
	case typed, errors.Is(err, region.ErrEmptyResult):
		status = http.StatusUnprocessableEntity
	default:
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, r, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, r, status, errResponse{Error: err.Error(), Kind: kind})
}
