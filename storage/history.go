// Package storage provides SQLite suggestion history storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record is one emitted suggestion as persisted in the history database.
type Record struct {
	ID        string
	SessionID string
	Category  string
	Title     string
	Body      string
	Rationale string
	CreatedAt int64
}

// History stores emitted suggestions for later inspection.
type History interface {
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// SqliteHistory implements History using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteHistory struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteHistory, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	h := &SqliteHistory{db: db}
	if err := h.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteHistory, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	h := &SqliteHistory{db: db}
	if err := h.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection.
func (h *SqliteHistory) Close() error {
	return h.db.Close()
}

func (h *SqliteHistory) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS suggestions (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			rationale TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_suggestions_created
		ON suggestions(created_at DESC);
	`

	_, err := h.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Append stores one suggestion record. A zero CreatedAt is filled with the
// current time.
func (h *SqliteHistory) Append(ctx context.Context, rec Record) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	// Convert empty strings to NULL for optional fields
	var sessionID, rationale interface{}
	if rec.SessionID != "" {
		sessionID = rec.SessionID
	}
	if rec.Rationale != "" {
		rationale = rec.Rationale
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO suggestions
		(id, session_id, category, title, body, rationale, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		sessionID,
		rec.Category,
		rec.Title,
		rec.Body,
		rationale,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store suggestion: %w", err)
	}

	return nil
}

// Recent returns the newest records, most recent first.
func (h *SqliteHistory) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, session_id, category, title, body, rationale, created_at
		FROM suggestions
		ORDER BY created_at DESC, id
		LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	records := []Record{} // Start with empty slice, not nil
	for rows.Next() {
		var rec Record
		var sessionID, rationale sql.NullString
		if err := rows.Scan(&rec.ID, &sessionID, &rec.Category, &rec.Title, &rec.Body, &rationale, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		if sessionID.Valid {
			rec.SessionID = sessionID.String
		}
		if rationale.Valid {
			rec.Rationale = rationale.String
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return records, nil
}

// Count returns the total number of stored suggestions.
func (h *SqliteHistory) Count(ctx context.Context) (int, error) {
	var count int
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM suggestions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count suggestions: %w", err)
	}

	return count, nil
}

// Verify SqliteHistory implements History
var _ History = (*SqliteHistory)(nil)
