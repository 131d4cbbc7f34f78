package diagstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/models"
	"github.com/starford/nomenclature/internal/region"
)

// SaveRun stores a run and its differences within a transaction. An empty
// ID is replaced by a fresh UUID and a zero CreatedAt by the current time.
// The stored summary is returned.
func (db *DB) SaveRun(run models.RunSummary, diffs []region.Difference) (models.RunSummary, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Models == nil {
		run.Models = []string{}
	}
	run.Differences = len(diffs)

	tx, err := db.conn.Begin()
	if err != nil {
		return run, fmt.Errorf("diagstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	modelsJSON, _ := json.Marshal(run.Models)
	_, err = tx.Exec(`
		INSERT INTO runs (id, source, checksum, models, input_rows, output_rows, differences, rtol, atol, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Checksum, string(modelsJSON), run.InputRows, run.OutputRows,
		run.Differences, run.RTol, run.ATol, run.CreatedAt)
	if err != nil {
		return run, fmt.Errorf("diagstore: insert run: %w", err)
	}

	if len(diffs) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO differences (run_id, seq, model, scenario, region, variable, unit, year, provided, aggregated, relative_difference)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return run, fmt.Errorf("diagstore: prepare difference insert: %w", err)
		}
		defer stmt.Close()
		for i, d := range diffs {
			if _, err := stmt.Exec(run.ID, i, d.Model, d.Scenario, d.Region, d.Variable, d.Unit,
				d.Year, nullFloat(d.Provided), nullFloat(d.Aggregated), nullFloat(d.RelativeDifference)); err != nil {
				return run, fmt.Errorf("diagstore: insert difference: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return run, fmt.Errorf("diagstore: commit: %w", err)
	}
	return run, nil
}

const runColumns = `id, source, checksum, models, input_rows, output_rows, differences, rtol, atol, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (models.RunSummary, error) {
	var (
		run        models.RunSummary
		modelsJSON string
	)
	err := s.Scan(&run.ID, &run.Source, &run.Checksum, &modelsJSON, &run.InputRows, &run.OutputRows,
		&run.Differences, &run.RTol, &run.ATol, &run.CreatedAt)
	if err != nil {
		return run, err
	}
	if err := json.Unmarshal([]byte(modelsJSON), &run.Models); err != nil {
		return run, fmt.Errorf("diagstore: decode models of run %s: %w", run.ID, err)
	}
	return run, nil
}

// GetRun returns the run with the given ID, or apperr.ErrNotFound.
func (db *DB) GetRun(id string) (*models.RunSummary, error) {
	run, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("diagstore: get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs newest first, paginated, along with the total count.
func (db *DB) ListRuns(limit, offset int) ([]models.RunSummary, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("diagstore: count runs: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("diagstore: list runs: %w", err)
	}
	defer rows.Close()

	out := []models.RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, run)
	}
	return out, total, rows.Err()
}

// Differences returns the differences recorded for a run in their original
// order, optionally restricted to one variable. Unknown runs yield
// apperr.ErrNotFound.
func (db *DB) Differences(runID string, variable string) ([]region.Difference, error) {
	if _, err := db.GetRun(runID); err != nil {
		return nil, err
	}
	query := `SELECT model, scenario, region, variable, unit, year, provided, aggregated, relative_difference
		FROM differences WHERE run_id = ?`
	args := []any{runID}
	if variable != "" {
		query += ` AND variable = ?`
		args = append(args, variable)
	}
	query += ` ORDER BY seq`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("diagstore: differences: %w", err)
	}
	defer rows.Close()

	out := []region.Difference{}
	for rows.Next() {
		var (
			d              region.Difference
			prov, agg, rel sql.NullFloat64
		)
		if err := rows.Scan(&d.Model, &d.Scenario, &d.Region, &d.Variable, &d.Unit, &d.Year,
			&prov, &agg, &rel); err != nil {
			return nil, err
		}
		d.Provided = floatOr(prov, math.NaN())
		d.Aggregated = floatOr(agg, math.NaN())
		d.RelativeDifference = floatOr(rel, math.Inf(1))
		out = append(out, d)
	}
	return out, rows.Err()
}

// nullFloat maps NaN and infinities to SQL NULL.
func nullFloat(f float64) sql.NullFloat64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

// floatOr returns n's value, or def when it is NULL.
func floatOr(n sql.NullFloat64, def float64) float64 {
	if n.Valid {
		return n.Float64
	}
	return def
}

// DeleteRun removes a run and its differences.
func (db *DB) DeleteRun(id string) error {
	res, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("diagstore: delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
