// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite. Every collection is a table of
// JSON documents with extracted key and index columns.
type SQLiteStore struct {
	db    *sql.DB
	paths *keyPaths
}

// NewSQLiteStore opens (and on first use creates) the database at dbPath.
// Opening an existing database is idempotent.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == ":memory:" {
		dsn = "file::memory:?cache=shared&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)
	}

	paths, err := compileKeyPaths(Schema)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{
		db:    db,
		paths: paths,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the collection and cache tables and their indexes.
func (s *SQLiteStore) initSchema() error {
	var b strings.Builder
	for _, c := range Schema {
		cols := []string{fmt.Sprintf("%s TEXT PRIMARY KEY", quote(c.KeyColumn))}
		for _, idx := range c.Indexes {
			cols = append(cols, fmt.Sprintf("%s TEXT", quote(idx.Column)))
		}
		cols = append(cols, "doc TEXT NOT NULL")
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\t%s\n);\n", quote(c.Name), strings.Join(cols, ",\n\t"))
		for _, idx := range c.Indexes {
			fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s(%s);\n",
				quote("idx_"+c.Name+"_"+idx.Column), quote(c.Name), quote(idx.Column))
		}
	}

	b.WriteString(`
	-- Offline cache namespaces
	CREATE TABLE IF NOT EXISTS cache_namespaces (
		name TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	-- Cached responses keyed by full URL
	CREATE TABLE IF NOT EXISTS cache_entries (
		namespace TEXT NOT NULL,
		url TEXT NOT NULL,
		status INTEGER NOT NULL,
		header TEXT NOT NULL,
		body BLOB,
		stored_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, url)
	);
	`)

	if _, err := s.db.Exec(b.String()); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// ============================================================================
// Records
// ============================================================================

// Put upserts record into collection by its key path.
func (s *SQLiteStore) Put(ctx context.Context, collection string, record any) error {
	spec, err := lookup(collection)
	if err != nil {
		return err
	}

	data, doc, err := encodeDocument(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", collection, err)
	}

	key, ok := s.paths.extract(ctx, spec.KeyPath, doc)
	if !ok {
		return ErrMissingKey
	}

	cols := []string{quote(spec.KeyColumn)}
	args := []interface{}{key}
	for _, idx := range spec.Indexes {
		cols = append(cols, quote(idx.Column))
		if v, ok := s.paths.extract(ctx, idx.Path, doc); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	cols = append(cols, "doc")
	args = append(args, string(data))

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quote(spec.Name), strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to put %s record: %w", collection, err)
	}
	return nil
}

// Delete removes the record with key. Absent keys are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	spec, err := lookup(collection)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(spec.Name), quote(spec.KeyColumn))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", collection, err)
	}
	return nil
}

// Get returns the document stored under key, or nil.
func (s *SQLiteStore) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	spec, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	var doc string
	query := fmt.Sprintf("SELECT doc FROM %s WHERE %s = ?", quote(spec.Name), quote(spec.KeyColumn))
	err = s.db.QueryRowContext(ctx, query, key).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", collection, err)
	}
	return json.RawMessage(doc), nil
}

// ListByIndex returns the documents whose index column equals value,
// in primary key order.
func (s *SQLiteStore) ListByIndex(ctx context.Context, collection, index, value string) ([]json.RawMessage, error) {
	spec, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	idx, err := spec.index(index)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT doc FROM %s WHERE %s = ? ORDER BY %s",
		quote(spec.Name), quote(idx.Column), quote(spec.KeyColumn))
	return s.queryDocs(ctx, collection, query, value)
}

// ListAll returns every document in primary key order.
func (s *SQLiteStore) ListAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	spec, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY %s", quote(spec.Name), quote(spec.KeyColumn))
	return s.queryDocs(ctx, collection, query)
}

func (s *SQLiteStore) queryDocs(ctx context.Context, collection, query string, args ...interface{}) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", collection, err)
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", collection, err)
	}
	return docs, nil
}

// ClearAll empties every collection in one transaction.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range Schema {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+quote(c.Name)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
