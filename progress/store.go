// Package progress is a SQLite-backed reading-session store: the reference
// implementation of the external progress collaborator the engine emits
// events to.
package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abiiranathan/readalong/book"
)

// Session is one recorded reading of a book.
type Session struct {
	ID          int64
	BookID      string
	BookTitle   string
	PagesRead   int
	TotalPages  int
	TimeSpentMs int64
	Completed   bool
	RecordedAt  time.Time
}

// Store records progress events.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	// Enable foreign key constraints and WAL mode.
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to set pragma: %w", err)
	}

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS reading_sessions(
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		book_id TEXT NOT NULL,
		book_title TEXT NOT NULL,
		pages_read INTEGER NOT NULL,
		total_pages INTEGER NOT NULL,
		time_spent_ms INTEGER NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores one progress event.
func (s *Store) Record(ctx context.Context, ev book.ProgressEvent) error {
	query := `INSERT INTO reading_sessions
		(book_id, book_title, pages_read, total_pages, time_spent_ms, completed)
		VALUES ($1, $2, $3, $4, $5, $6)`

	completed := 0
	if ev.Completed {
		completed = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		ev.BookID, ev.BookTitle, ev.PagesRead, ev.TotalPages, ev.TimeSpentMs, completed)
	if err != nil {
		return fmt.Errorf("error recording session for %s: %w", ev.BookTitle, err)
	}
	return nil
}

// Sessions returns recorded sessions, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	query := `SELECT id, book_id, book_title, pages_read, total_pages,
		time_spent_ms, completed, recorded_at
		FROM reading_sessions ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		var completed int
		err := rows.Scan(&sess.ID, &sess.BookID, &sess.BookTitle, &sess.PagesRead,
			&sess.TotalPages, &sess.TimeSpentMs, &completed, &sess.RecordedAt)
		if err != nil {
			return nil, err
		}
		sess.Completed = completed != 0
		sessions = append(sessions, sess)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return sessions, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
