package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ============================================================================
// Offline cache namespaces
// ============================================================================

// OpenCache creates the namespace if it does not exist yet.
func (s *SQLiteStore) OpenCache(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO cache_namespaces (name, created_at) VALUES (?, ?)
	`, name, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return nil
}

// CacheNames lists every namespace in creation order.
func (s *SQLiteStore) CacheNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cache_namespaces ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan cache name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteCache removes a namespace and every entry in it. It reports whether
// the namespace existed.
func (s *SQLiteStore) DeleteCache(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE namespace = ?`, name); err != nil {
		return false, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cache_namespaces WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n > 0, nil
}

// MatchCache returns the entry stored for url, or nil on a miss.
func (s *SQLiteStore) MatchCache(ctx context.Context, name, url string) (*CachedResponse, error) {
	var (
		resp     CachedResponse
		header   string
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT url, status, header, body, stored_at
		FROM cache_entries
		WHERE namespace = ? AND url = ?
	`, name, url).Scan(&resp.URL, &resp.StatusCode, &header, &resp.Body, &storedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to match cache entry: %w", err)
	}

	if err := json.Unmarshal([]byte(header), &resp.Header); err != nil {
		return nil, fmt.Errorf("failed to decode cached header: %w", err)
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.StoredAt = time.UnixMilli(storedAt)
	return &resp, nil
}

// PutCache stores entries under name atomically, creating the namespace.
func (s *SQLiteStore) PutCache(ctx context.Context, name string, entries ...*CachedResponse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO cache_namespaces (name, created_at) VALUES (?, ?)
	`, name, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to open cache %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO cache_entries (namespace, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		header, err := json.Marshal(e.Header)
		if err != nil {
			return fmt.Errorf("failed to encode header for %s: %w", e.URL, err)
		}
		storedAt := e.StoredAt
		if storedAt.IsZero() {
			storedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, name, e.URL, e.StatusCode, string(header), e.Body, storedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert cache entry %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
