// Package history persists evaluation transcripts in a SQLite database so
// REPL history and server traces survive restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	lisp "github.com/Jedsek/lisp/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	source     TEXT NOT NULL,
	result     TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	error_kind TEXT NOT NULL DEFAULT '',
	binding    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
)`

// Entry is one stored evaluation.
type Entry struct {
	ID        int64
	Source    string
	Result    string
	Error     string
	ErrorKind string
	Binding   string
	CreatedAt time.Time
}

// Store is a transcript store. It implements lisp.Recorder.
type Store struct {
	db *sql.DB
}

var (
	_ lisp.Recorder       = (*Store)(nil)
	_ lisp.HistoryClearer = (*Store)(nil)
)

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one trace.
func (s *Store) Record(ctx context.Context, t lisp.Trace) error {
	createdAt := t.Timestamp
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (source, result, error, error_kind, binding, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Source, t.Result, t.Error, t.ErrorKind, t.Binding, createdAt)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest entries, oldest first. n <= 0 returns all.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	query := `SELECT id, source, result, error, error_kind, binding, created_at FROM entries ORDER BY id DESC`
	var args []any
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Source, &e.Result, &e.Error, &e.ErrorKind, &e.Binding, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Lines returns the sources of up to n recent entries, oldest first, for
// seeding a line editor's history.
func (s *Store) Lines(ctx context.Context, n int) ([]string, error) {
	entries, err := s.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Source
	}
	return lines, nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		tx.Rollback()
		return fmt.Errorf("history: delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'entries'`); err != nil {
		tx.Rollback()
		return fmt.Errorf("history: reset sequence: %w", err)
	}
	return tx.Commit()
}
