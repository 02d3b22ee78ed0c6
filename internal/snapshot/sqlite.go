package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"CatalogWatcher/internal/identity"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"

	_ "modernc.org/sqlite"
)

const createSnapshotTableSQL = `
CREATE TABLE IF NOT EXISTS snapshot (
	"id" TEXT NOT NULL PRIMARY KEY,
	"name" TEXT,
	"url" TEXT NOT NULL,
	"availability" TEXT NOT NULL,
	"updated_at" DATETIME
);`

// SQLiteStore keeps the snapshot in a single SQLite table. Save rewrites
// the table inside one transaction.
type SQLiteStore struct {
	DB  *sql.DB
	log logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, log logger.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping snapshot database: %w", err)
	}
	if _, err := db.Exec(createSnapshotTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}

	return &SQLiteStore{DB: db, log: log.With(logger.String("snapshot", path))}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (models.Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, url, availability FROM snapshot`)
	if err != nil {
		s.log.Warn("Snapshot table unreadable, starting fresh", logger.Error(err))
		return models.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := models.Snapshot{}
	for rows.Next() {
		var (
			id, url, state string
			name           sql.NullString
		)
		if err := rows.Scan(&id, &name, &url, &state); err != nil {
			s.log.Warn("Error scanning snapshot row", logger.Error(err))
			continue
		}
		a, err := models.ParseAvailability(state)
		if err != nil || !identity.Valid(id) {
			s.log.Warn("Skipping malformed snapshot row", logger.String("id", id), logger.String("availability", state))
			continue
		}
		snap[identity.ID(id)] = models.SnapshotEntry{Name: name.String, URL: url, Availability: a}
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("Snapshot read interrupted, starting fresh", logger.Error(err))
		return models.Snapshot{}, fmt.Errorf("iterate snapshot: %w", err)
	}

	s.log.Debug("Loaded snapshot", logger.Int("entries", len(snap)))
	return snap, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap models.Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot (id, name, url, availability, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for id, e := range snap {
		if _, err := stmt.ExecContext(ctx, string(id), e.Name, e.URL, string(e.Availability), now); err != nil {
			return fmt.Errorf("insert snapshot entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	s.log.Info("Saved snapshot", logger.Int("entries", len(snap)))
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
