// Package history keeps a SQLite log of rendered documents.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	id          TEXT PRIMARY KEY,
	template    TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	document_id TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_renders_created_at ON renders(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_renders_template ON renders(template);
`

// Entry is one render attempt.
type Entry struct {
	ID         string    `json:"id"`
	Template   string    `json:"template"`
	Title      string    `json:"title,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("history entry not found")

// Store is a render history backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts or replaces an entry. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("history entry needs an id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO renders
			(id, template, title, document_id, url, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Template, e.Title, e.DocumentID, e.URL, e.Status, e.Error,
		e.DurationMs, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record render %s: %w", e.ID, err)
	}
	return nil
}

const selectColumns = `id, template, title, document_id, url, status, error, duration_ms, created_at`

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM renders WHERE id = ?`, id)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get render %s: %w", id, err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit of 0 or less
// means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM renders ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list renders: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Delete removes an entry. Deleting an unknown ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM renders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete render %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (*Entry, error) {
	var e Entry
	var createdAt int64
	if err := sc.Scan(&e.ID, &e.Template, &e.Title, &e.DocumentID, &e.URL, &e.Status, &e.Error, &e.DurationMs, &createdAt); err != nil {
		return nil, err
	}
	e.CreatedAt = time.Unix(0, createdAt)
	return &e, nil
}
