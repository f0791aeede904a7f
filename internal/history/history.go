// Package history persists finished jobs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Status of a finished job.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Entry is one finished job.
type Entry struct {
	JobID      string        `json:"job_id" yaml:"job_id"`
	URL        string        `json:"url" yaml:"url"`
	Format     string        `json:"format" yaml:"format"`
	Quality    string        `json:"quality,omitempty" yaml:"quality,omitempty"`
	Title      string        `json:"title,omitempty" yaml:"title,omitempty"`
	OutputPath string        `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Bytes      int64         `json:"bytes" yaml:"bytes"`
	Status     string        `json:"status" yaml:"status"`
	Category   string        `json:"category,omitempty" yaml:"category,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Started    time.Time     `json:"started" yaml:"started"`
	Finished   time.Time     `json:"finished" yaml:"finished"`
	Elapsed    time.Duration `json:"-" yaml:"-"`
}

// Store reads and writes job history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers; SQLite locks the file anyway.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			format TEXT NOT NULL,
			quality TEXT,
			title TEXT,
			output_path TEXT,
			bytes INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			category TEXT,
			error TEXT,
			started_ms INTEGER NOT NULL,
			finished_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_finished ON jobs(finished_ms);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or replaces e.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs
			(job_id, url, format, quality, title, output_path, bytes, status, category, error, started_ms, finished_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.JobID, e.URL, e.Format, e.Quality, e.Title, e.OutputPath, e.Bytes, e.Status, e.Category, e.Error,
		e.Started.UnixMilli(), e.Finished.UnixMilli())
	if err != nil {
		return fmt.Errorf("record job %s: %w", e.JobID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `
		SELECT job_id, url, format, quality, title, output_path, bytes, status, category, error, started_ms, finished_ms
		FROM jobs ORDER BY finished_ms DESC, job_id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                               Entry
			quality, title, output, cat, em sql.NullString
			startedMs, finishedMs           int64
		)
		if err := rows.Scan(&e.JobID, &e.URL, &e.Format, &quality, &title, &output, &e.Bytes, &e.Status, &cat, &em, &startedMs, &finishedMs); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Quality, e.Title, e.OutputPath = quality.String, title.String, output.String
		e.Category, e.Error = cat.String, em.String
		e.Started = time.UnixMilli(startedMs)
		e.Finished = time.UnixMilli(finishedMs)
		e.Elapsed = e.Finished.Sub(e.Started)
		out = append(out, e)
	}
	return out, rows.Err()
}
