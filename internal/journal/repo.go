package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Run is one journal row: a single prompt's trip through the pipeline.
type Run struct {
	ID       string        `json:"id"`
	Prompt   string        `json:"prompt"`
	Checksum string        `json:"checksum"`
	Category string        `json:"category"`
	Source   string        `json:"source"`
	NotePath string        `json:"note_path"`
	Title    string        `json:"title"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ms"`
	Created  time.Time     `json:"created_at"`
}

// Stats summarizes the journal.
type Stats struct {
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	ByCategory map[string]int `json:"by_category"`
}

// Record inserts a run. A ULID is assigned when r.ID is empty; the id
// actually stored is returned.
func (db *DB) Record(r Run) (string, error) {
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	if r.Created.IsZero() {
		r.Created = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, prompt, checksum, category, source, note_path, title, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Prompt, r.Checksum, r.Category, r.Source, r.NotePath, r.Title,
		r.Status, r.Error, r.Duration.Milliseconds(), r.Created)
	if err != nil {
		return "", fmt.Errorf("journal: record run: %w", err)
	}
	return r.ID, nil
}

// ListRuns returns runs newest-first with the total row count. status
// filters when non-empty; limit defaults to 50 and caps at 500.
func (db *DB) ListRuns(limit, offset int, status string) ([]Run, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if status != "" {
		where = "WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM runs "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("journal: count runs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, prompt, checksum, category, source, note_path, title, status, error, duration_ms, created_at
		FROM runs %s ORDER BY id DESC LIMIT ? OFFSET ?`, where)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// GetRun returns a run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(`
		SELECT id, prompt, checksum, category, source, note_path, title, status, error, duration_ms, created_at
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// HasSucceeded reports whether any successful run carries this prompt
// checksum.
func (db *DB) HasSucceeded(checksum string) (bool, error) {
	if checksum == "" {
		return false, nil
	}
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM runs WHERE checksum = ? AND status = ?`,
		checksum, StatusOK).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("journal: checksum lookup: %w", err)
	}
	return n > 0, nil
}

// Stats aggregates run counts by status and by category of successful runs.
func (db *DB) Stats() (*Stats, error) {
	s := &Stats{ByCategory: make(map[string]int)}

	rows, err := db.conn.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("journal: stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		s.Total += n
		switch status {
		case StatusOK:
			s.Succeeded = n
		case StatusFailed:
			s.Failed = n
		case StatusSkipped:
			s.Skipped = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catRows, err := db.conn.Query(
		`SELECT category, COUNT(*) FROM runs WHERE status = ? GROUP BY category`, StatusOK)
	if err != nil {
		return nil, fmt.Errorf("journal: category stats: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var cat string
		var n int
		if err := catRows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		s.ByCategory[cat] = n
	}
	return s, catRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var durationMS int64
	if err := row.Scan(&r.ID, &r.Prompt, &r.Checksum, &r.Category, &r.Source,
		&r.NotePath, &r.Title, &r.Status, &r.Error, &durationMS, &r.Created); err != nil {
		return nil, err
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return &r, nil
}
