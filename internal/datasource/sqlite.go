package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/model"
)

// Schema is the table layout the SQLite reader expects.
const Schema = `
CREATE TABLE IF NOT EXISTS items (
	id       TEXT PRIMARY KEY,
	title    TEXT NOT NULL DEFAULT '',
	body     TEXT,
	position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_items_position ON items(position, id);
`

// SQLiteReader provides read access to an items database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source Source) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("datasource: %s: %v", pragma, err)
		}
	}

	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadItems reads every item ordered by position, then id.
func (r *SQLiteReader) LoadItems(ctx context.Context) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, body FROM items ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("querying items in %s: %w", r.path, err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var title, body sql.NullString
		if err := rows.Scan(&item.ID, &title, &body); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Title = title.String
		item.Body = body.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// WriteSQLite creates (or replaces the contents of) an items database at
// path. Positions follow slice order.
func WriteSQLite(ctx context.Context, path string, items []model.Item) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (id, title, body, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, it.ID, it.Title, it.Body, i); err != nil {
			return fmt.Errorf("inserting %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}
