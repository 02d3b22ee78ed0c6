// Package snapshot persists the last known state of every watched product.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown snapshot driver")

// Store loads and saves whole snapshots.
//
// Load never fails a run: a missing or unreadable store yields an empty
// snapshot. A non-nil error alongside it is informational only.
// Save replaces the whole snapshot atomically; readers observe either the
// previous snapshot or the new one.
type Store interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, snap models.Snapshot) error
	Close() error
}

// Open returns the store for driver ("json" or "sqlite") at path.
func Open(driver, path string, log logger.Logger) (Store, error) {
	switch driver {
	case "json", "":
		return NewFileStore(path, log), nil
	case "sqlite":
		return OpenSQLite(path, log)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
