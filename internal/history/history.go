// Package history persists per-run analysis snapshots to a local sqlite
// database so graph growth can be tracked across runs.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Run struct {
	Timestamp   time.Time
	SessionID   string
	Path        string
	NodeCount   int
	EdgeCount   int
	ExportCount int
	ImportCount int
	Retained    int // nodes inside the requires-closure of the default roots
	Total       int // nodes referenced by the graph
	Duration    time.Duration
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(run Run) error {
	_, err := s.db.Exec(`
INSERT INTO runs (ts_utc, session_id, path, node_count, edge_count, export_count, import_count, retained, total, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Timestamp.UTC().Format(time.RFC3339Nano),
		run.SessionID,
		run.Path,
		run.NodeCount,
		run.EdgeCount,
		run.ExportCount,
		run.ImportCount,
		run.Retained,
		run.Total,
		float64(run.Duration)/float64(time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (s *Store) Recent(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
SELECT ts_utc, session_id, path, node_count, edge_count, export_count, import_count, retained, total, duration_ms
FROM runs ORDER BY ts_utc DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ts string
		var ms float64
		if err := rows.Scan(&ts, &r.SessionID, &r.Path, &r.NodeCount, &r.EdgeCount,
			&r.ExportCount, &r.ImportCount, &r.Retained, &r.Total, &ms); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		r.Duration = time.Duration(ms * float64(time.Millisecond))
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
