package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS progress (
	symbol      TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);`

// OpenSQLite opens (or creates) a SQLite database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)
	return db, nil
}

// SQLBackend stores progress rows in a SQL table.
type SQLBackend struct {
	db *sql.DB
}

// NewSQLBackend creates the progress table if needed.
func NewSQLBackend(ctx context.Context, db *sql.DB) (*SQLBackend, error) {
	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		return nil, fmt.Errorf("create progress table: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

// Load reads every row.
func (b *SQLBackend) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT symbol, payload FROM progress`)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]json.RawMessage)
	for rows.Next() {
		var symbol, payload string
		if err := rows.Scan(&symbol, &payload); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		if !json.Valid([]byte(payload)) {
			return nil, &CorruptProgressError{
				Source: fmt.Sprintf("sqlite progress[%s]", symbol),
				Err:    errors.New("invalid JSON payload"),
			}
		}
		entries[symbol] = json.RawMessage(payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress rows: %w", err)
	}
	return entries, nil
}

// Save replaces the table contents in one transaction.
func (b *SQLBackend) Save(ctx context.Context, entries map[string]json.RawMessage) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin progress transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO progress (symbol, payload, recorded_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare progress insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for symbol, payload := range entries {
		if _, err = stmt.ExecContext(ctx, symbol, string(payload), now); err != nil {
			return fmt.Errorf("insert progress for %s: %w", symbol, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	return nil
}

// Put inserts one row, ignoring symbols that are already present.
func (b *SQLBackend) Put(ctx context.Context, key string, payload json.RawMessage) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO progress (symbol, payload, recorded_at) VALUES (?, ?, ?)`,
		key, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert progress for %s: %w", key, err)
	}
	return nil
}
