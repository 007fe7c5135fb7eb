package listingcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists one listing map per project.
type Store interface {
	// Load returns the project's mapping from listing page to patterns.
	// A project with no record yields an empty map and no error.
	Load(ctx context.Context, project string) (map[string][]string, error)
	// Put overwrites the patterns recorded for one page.
	Put(ctx context.Context, project, page string, patterns []string) error
	// Clear removes every page recorded for the project.
	Clear(ctx context.Context, project string) error
	Close() error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS listing_cache (
	project    TEXT NOT NULL,
	page       TEXT NOT NULL,
	patterns   TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (project, page)
);

CREATE INDEX IF NOT EXISTS idx_listing_cache_project ON listing_cache(project);
`

// SQLiteStore keeps listing maps in a SQLite database, one row per page.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the cache database and applies the schema.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("listingcache: create db dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("listingcache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("listingcache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("listingcache: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, project string) (map[string][]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT page, patterns FROM listing_cache WHERE project = ?`, project)
	if err != nil {
		return nil, fmt.Errorf("listingcache: load: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var page, raw string
		if err := rows.Scan(&page, &raw); err != nil {
			return nil, fmt.Errorf("listingcache: scan: %w", err)
		}
		var patterns []string
		if err := json.Unmarshal([]byte(raw), &patterns); err != nil {
			return nil, fmt.Errorf("listingcache: decode %s: %w", page, err)
		}
		out[page] = patterns
	}
	return out, rows.Err()
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, project, page string, patterns []string) error {
	if patterns == nil {
		patterns = []string{}
	}
	raw, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("listingcache: encode: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO listing_cache (project, page, patterns, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project, page) DO UPDATE SET
			patterns   = excluded.patterns,
			updated_at = excluded.updated_at
	`, project, page, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("listingcache: put %s: %w", page, err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, project string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM listing_cache WHERE project = ?`, project); err != nil {
		return fmt.Errorf("listingcache: clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
