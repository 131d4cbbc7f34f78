package api

import (
	"github.com/starford/nomenclature/internal/codelist"
	"github.com/starford/nomenclature/internal/models"
	"github.com/starford/nomenclature/internal/region"
)

// DimensionInfo describes one codelist of the project definition.
type DimensionInfo struct {
	Name  string `json:"name" example:"variable" validate:"required"`
	Codes int    `json:"codes" example:"1200" validate:"required"`
}

// DimensionListResponse wraps the project dimensions.
type DimensionListResponse struct {
	Dimensions []DimensionInfo `json:"dimensions" validate:"required"`
}

// CodeListResponse lists the code names of one dimension.
type CodeListResponse struct {
	Dimension string   `json:"dimension" example:"region" validate:"required"`
	Codes     []string `json:"codes" validate:"required"`
}

// Code is a single code with its attributes (aliased from the domain layer).
type Code = codelist.Code

// ModelListResponse lists the models with a region mapping.
type ModelListResponse struct {
	Models []string `json:"models" validate:"required"`
}

// RunSummary is a persisted processing run (aliased from the shared models).
type RunSummary = models.RunSummary

// Difference is a reconciliation difference (aliased from the domain layer).
type Difference = region.Difference

// ProcessResponse is returned after processing uploaded data.
type ProcessResponse struct {
	Run         RunSummary   `json:"run" validate:"required"`
	Differences []Difference `json:"differences" validate:"required"`
}

// RunListResponse wraps paginated run listings.
type RunListResponse struct {
	Runs  []RunSummary `json:"runs" validate:"required"`
	Total int          `json:"total" example:"42" validate:"required"`
}

// DifferenceListResponse wraps the differences of a run.
type DifferenceListResponse struct {
	RunID       string       `json:"run_id" validate:"required"`
	Differences []Difference `json:"differences" validate:"required"`
}
