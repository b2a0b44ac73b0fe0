// Package journal persists one record per processed prompt in SQLite.
// The filesystem remains the source of truth for pipeline state; the
// journal exists for history, stats, and duplicate detection.
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	prompt      TEXT NOT NULL,
	checksum    TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	note_path   TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_checksum ON runs(checksum);
`

// Recorder is the interface the pipeline depends on. Consumers should use
// this rather than the concrete *DB type to facilitate testing with mocks.
type Recorder interface {
	Record(r Run) (string, error)
	ListRuns(limit, offset int, status string) ([]Run, int, error)
	GetRun(id string) (*Run, error)
	HasSucceeded(checksum string) (bool, error)
	Stats() (*Stats, error)
	Close() error
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)

// DB wraps a sql.DB with journal-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite journal and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
