package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/notebase/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_items_collection ON items(collection);
`

// SQLite implements Backend on a single SQLite database file.
type SQLite struct {
	conn *sql.DB
}

// Verify *SQLite satisfies Backend at compile time.
var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Get returns the stored bytes of one item.
func (s *SQLite) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var data []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT data FROM items WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %s/%s: %w", collection, id, err)
	}
	return data, nil
}

// List returns every record of a collection ordered by first insertion.
func (s *SQLite) List(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, data FROM items WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Data); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Apply runs all ops in one transaction.
func (s *SQLite) Apply(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	put, err := tx.PrepareContext(ctx, `
		INSERT INTO items (collection, id, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, id) DO UPDATE SET
			data       = excluded.data,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("storage: prepare put: %w", err)
	}
	defer put.Close()

	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			if _, err := put.ExecContext(ctx, op.Collection, op.ID, op.Data); err != nil {
				return fmt.Errorf("storage: put %s/%s: %w", op.Collection, op.ID, err)
			}
		case OpDelete:
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM items WHERE collection = ? AND id = ?`, op.Collection, op.ID); err != nil {
				return fmt.Errorf("storage: delete %s/%s: %w", op.Collection, op.ID, err)
			}
		default:
			return fmt.Errorf("storage: unknown op kind %d", op.Kind)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}
