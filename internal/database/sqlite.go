// Package database provides the SQLite-backed object store.
package database

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"wt-go/internal/database/migrations"
	"wt-go/internal/wt"
)

// SQLiteStore keeps objects as rows of a single table. It suits a personal
// install that wants one file instead of a directory tree or a bucket.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock wt.Clock
}

// OpenSQLiteStore opens (creating if needed) the database at path and applies
// pending migrations. path may be ":memory:".
func OpenSQLiteStore(path string, clock wt.Clock) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	if clock == nil {
		clock = wt.RealClock{}
	}
	return &SQLiteStore{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	if int64(len(body)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(body))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO objects (key, content_type, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content_type = excluded.content_type,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		key, contentType, body, s.clock.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing object %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string, w io.Writer) error {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM objects WHERE key = ?`, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", wt.ErrObjectNotFound, key)
		}
		return fmt.Errorf("reading object %s: %w", key, err)
	}

	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// List returns keys under prefix in key order. The prefix match is done with
// substr rather than LIKE so '%' and '_' in keys need no escaping.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM objects WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	return keys, nil
}

// ValidateSetup pings the database and checks the schema version.
func (s *SQLiteStore) ValidateSetup(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database %s not reachable: %w", s.path, err)
	}
	if err := migrations.CheckStatus(s.db); err != nil {
		return fmt.Errorf("database %s: %w", s.path, err)
	}
	return nil
}

// ContentType returns the content type recorded for key.
func (s *SQLiteStore) ContentType(ctx context.Context, key string) (string, error) {
	var ct string
	err := s.db.QueryRowContext(ctx, `SELECT content_type FROM objects WHERE key = ?`, key).Scan(&ct)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", wt.ErrObjectNotFound, key)
		}
		return "", err
	}
	return strings.TrimSpace(ct), nil
}

var _ wt.ObjectStore = (*SQLiteStore)(nil)
