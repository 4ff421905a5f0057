package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS artifacts (
	name TEXT PRIMARY KEY,
	bundle_id TEXT NOT NULL,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bundles (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	target TEXT NOT NULL,
	k INTEGER NOT NULL,
	features INTEGER NOT NULL,
	silhouette REAL NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveBundle replaces all three artifacts in one transaction, so readers
// never observe a mix of two runs.
func (s *sqliteStore) SaveBundle(ctx context.Context, b *model.Bundle) error {
	arts, err := store.EncodeBundle(b)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO artifacts (name, bundle_id, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	bundle_id=excluded.bundle_id,
	payload=excluded.payload,
	updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range arts {
		if _, err := stmt.ExecContext(ctx, a.Name, a.BundleID, a.Payload, now); err != nil {
			return fmt.Errorf("save %s: %w", a.Name, err)
		}
	}

	info := store.Info(b)
	_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO bundles (id, created_at, target, k, features, silhouette)
VALUES (?, ?, ?, ?, ?, ?)`,
		info.ID,
		info.CreatedAt.UTC().Format(time.RFC3339Nano),
		info.Target,
		info.K,
		info.Features,
		info.Silhouette,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadBundle reads the current artifacts.
func (s *sqliteStore) LoadBundle(ctx context.Context) (*model.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, bundle_id, payload FROM artifacts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	arts := make(map[string]store.Artifact)
	for rows.Next() {
		var a store.Artifact
		if err := rows.Scan(&a.Name, &a.BundleID, &a.Payload); err != nil {
			return nil, err
		}
		arts[a.Name] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(arts) == 0 {
		return nil, fmt.Errorf("no trained bundle: %w", internalerr.ErrMissingArtifact)
	}
	return store.DecodeBundle(arts)
}

// ListBundles returns the most recent training runs first.
func (s *sqliteStore) ListBundles(ctx context.Context, limit int) ([]store.BundleInfo, error) {
	if limit <= 0 {
		limit = 20
	}

	var current sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT bundle_id FROM artifacts WHERE name=?`, model.ArtifactModel).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, target, k, features, silhouette
FROM bundles
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.BundleInfo
	for rows.Next() {
		var (
			info    store.BundleInfo
			created string
		)
		if err := rows.Scan(&info.ID, &created, &info.Target, &info.K, &info.Features, &info.Silhouette); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			info.CreatedAt = ts
		}
		info.Current = current.Valid && current.String == info.ID
		out = append(out, info)
	}
	return out, rows.Err()
}
