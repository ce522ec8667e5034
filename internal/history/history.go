// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps an append-only ledger of processing attempts in
// SQLite. The ledger is for people reading it; the pipeline never consults
// it to decide what to process.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gitlab.com/tozd/go/errors"
)

// Attempt is one pipeline attempt on one file.
type Attempt struct {
	ID           int64         `json:"id" yaml:"id"`
	RunID        string        `json:"run_id" yaml:"run_id"`
	Filename     string        `json:"filename" yaml:"filename"`
	Subject      string        `json:"subject,omitempty" yaml:"subject,omitempty"`
	Stage        string        `json:"stage" yaml:"stage"`
	Success      bool          `json:"success" yaml:"success"`
	Skipped      bool          `json:"skipped" yaml:"skipped"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	MarkdownPath string        `json:"markdown_path,omitempty" yaml:"markdown_path,omitempty"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
}

// Ledger is an open history database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path and ensures the schema.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Errorf("opening history database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, errors.Errorf("creating history schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			subject TEXT,
			stage TEXT NOT NULL,
			success INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			error TEXT,
			markdown_path TEXT,
			duration_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_filename ON attempts(filename)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run_id ON attempts(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return errors.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends a. A zero CreatedAt is set to now.
func (l *Ledger) Record(ctx context.Context, a Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, filename, subject, stage, success, skipped, error, markdown_path, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Filename, a.Subject, a.Stage, a.Success, a.Skipped, a.Error, a.MarkdownPath,
		a.Duration.Milliseconds(), a.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Errorf("recording attempt for %s: %w", a.Filename, err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, filename, subject, stage, success, skipped, error, markdown_path, duration_ms, created_at
		 FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a          Attempt
			subject    sql.NullString
			errText    sql.NullString
			mdPath     sql.NullString
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&a.ID, &a.RunID, &a.Filename, &subject, &a.Stage, &a.Success, &a.Skipped,
			&errText, &mdPath, &durationMS, &createdAt); err != nil {
			return nil, errors.Errorf("scanning attempt: %w", err)
		}
		a.Subject = subject.String
		a.Error = errText.String
		a.MarkdownPath = mdPath.String
		a.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			a.CreatedAt = t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating attempts: %w", err)
	}
	return out, nil
}
