package diagstore

import (
	"github.com/starford/nomenclature/internal/models"
	"github.com/starford/nomenclature/internal/region"
)

// RunStore defines the persistence operations of processing runs.
// Consumers should depend on this interface rather than the concrete *DB type.
type RunStore interface {
	SaveRun(run models.RunSummary, diffs []region.Difference) (models.RunSummary, error)
	GetRun(id string) (*models.RunSummary, error)
	ListRuns(limit, offset int) ([]models.RunSummary, int, error)
	Differences(runID string, variable string) ([]region.Difference, error)
	DeleteRun(id string) error
	Close() error
}

// Verify *DB satisfies RunStore at compile time.
var _ RunStore = (*DB)(nil)
