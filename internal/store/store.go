// Package store provides SQLite-backed storage for the branch dependency
// forest, repository metadata and sync run history. All invariant-enforcing
// operations on the stack graph live here.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// pragmas applied on every open. WAL keeps the single-writer case fast.
// parent_id carries no foreign key on purpose: referential integrity is
// enforced by the store operations and repaired by the doctor, so a
// corrupt link must remain representable.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
}

// Store wraps a SQLite connection holding one repository's stack state.
type Store struct {
	conn *sql.DB
	path string
}

// DefaultPath returns the database location for a repository root.
func DefaultPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", "stackd", "stackd.db")
}

// Open opens (creating if needed) the database at the given path and
// applies the schema idempotently.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

const trunkKey = "trunk"

// Trunk returns the configured base branch name, or "" if unset.
func (s *Store) Trunk() (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM repo_meta WHERE key = ?`, trunkKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying trunk: %w", err)
	}
	return value, nil
}

// SetTrunk records the base branch name in repo metadata.
func (s *Store) SetTrunk(name string) error {
	_, err := s.conn.Exec(
		`INSERT INTO repo_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		trunkKey, name,
	)
	if err != nil {
		return fmt.Errorf("setting trunk: %w", err)
	}
	return nil
}
