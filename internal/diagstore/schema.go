// Package diagstore provides SQLite-backed persistence of region processing
// runs and their reconciliation differences.
package diagstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	models      TEXT NOT NULL DEFAULT '[]',
	input_rows  INTEGER NOT NULL DEFAULT 0,
	output_rows INTEGER NOT NULL DEFAULT 0,
	differences INTEGER NOT NULL DEFAULT 0,
	rtol        REAL NOT NULL DEFAULT 0,
	atol        REAL NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS differences (
	run_id              TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq                 INTEGER NOT NULL,
	model               TEXT NOT NULL,
	scenario            TEXT NOT NULL,
	region              TEXT NOT NULL,
	variable            TEXT NOT NULL,
	unit                TEXT NOT NULL,
	year                INTEGER NOT NULL,
	provided            REAL,
	aggregated          REAL,
	relative_difference REAL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_differences_variable ON differences(run_id, variable);
`

// DB wraps a sql.DB with run-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("diagstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("diagstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("diagstore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
