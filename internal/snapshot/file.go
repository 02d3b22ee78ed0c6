package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"CatalogWatcher/internal/identity"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
)

// FileStore keeps the snapshot as one indented JSON object keyed by ID.
type FileStore struct {
	path string
	log  logger.Logger
}

// NewFileStore returns a FileStore for path. Nothing is touched until Load or Save.
func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{path: path, log: log.With(logger.String("snapshot", path))}
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("No snapshot found, starting fresh")
		return models.Snapshot{}, nil
	}
	if err != nil {
		s.log.Warn("Snapshot unreadable, starting fresh", logger.Error(err))
		return models.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("Snapshot is corrupt, starting fresh", logger.Error(err))
		return models.Snapshot{}, nil
	}

	snap := make(models.Snapshot, len(raw))
	for key, msg := range raw {
		if !identity.Valid(key) {
			s.log.Warn("Skipping snapshot entry with malformed key", logger.String("key", key))
			continue
		}
		var entry models.SnapshotEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			s.log.Warn("Skipping malformed snapshot entry", logger.String("key", key), logger.Error(err))
			continue
		}
		snap[identity.ID(key)] = entry
	}
	s.log.Debug("Loaded snapshot", logger.Int("entries", len(snap)))
	return snap, nil
}

func (s *FileStore) Save(ctx context.Context, snap models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		snap = models.Snapshot{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.log.Info("Saved snapshot", logger.Int("entries", len(snap)))
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// writeFileAtomic writes data to a temp file beside path and renames it
// into place, so path always holds either the old or the new content.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
