package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"CatalogWatcher/internal/identity"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() models.Snapshot {
	entries := []models.SnapshotEntry{
		{Name: "Lavender Oil", URL: "https://shop.example.com/products/lavender", Availability: models.InStock},
		{Name: "Rose Quartz", URL: "https://shop.example.com/products/rose-quartz", Availability: models.SoldOut},
		{Name: "Sage “Bundle”", URL: "https://shop.example.com/products/sage?variant=1&x=é", Availability: models.InStock},
	}
	snap := models.Snapshot{}
	for _, e := range entries {
		snap[identity.Hash(e.URL)] = e
	}
	return snap
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNop()

	sqlite, err := Open("sqlite", filepath.Join(dir, "snapshot.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	jsonStore, err := Open("json", filepath.Join(dir, "nested", "snapshot.json"), log)
	require.NoError(t, err)

	return map[string]Store{"json": jsonStore, "sqlite": sqlite}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			want := sampleSnapshot()
			require.NoError(t, store.Save(ctx, want))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStore_SaveReplacesWholeSnapshot(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, sampleSnapshot()))

			only := models.SnapshotEntry{Name: "Only", URL: "https://shop.example.com/only", Availability: models.SoldOut}
			next := models.Snapshot{identity.Hash(only.URL): only}
			require.NoError(t, store.Save(ctx, next))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, next, got)
		})
	}
}

func TestFileStore_CorruptIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"abc": {"name": `), 0o644))

	got, err := NewFileStore(path, logger.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore_ReadsLegacyLayout(t *testing.T) {
	url := "https://shop.example.com/products/lavender"
	id := identity.Hash(url)
	legacy := `{
  "` + string(id) + `": {"name": "Lavender Oil", "url": "` + url + `", "sold_out": "Yes"},
  "not-a-hash": {"name": "Broken", "url": "https://x", "sold_out": "No"}
}`
	path := filepath.Join(t.TempDir(), "product_database.json")
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got, err := NewFileStore(path, logger.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Snapshot{
		id: {Name: "Lavender Oil", URL: url, Availability: models.SoldOut},
	}, got)
}

func TestFileStore_SkipsMalformedEntries(t *testing.T) {
	good := "https://shop.example.com/products/lavender"
	bad := "https://shop.example.com/products/sage"
	data := `{
  "` + string(identity.Hash(good)) + `": {"name": "Lavender Oil", "url": "` + good + `", "availability": "IN_STOCK"},
  "` + string(identity.Hash(bad)) + `": {"name": "Sage", "url": "` + bad + `"},
  "` + string(identity.Hash(bad+"?v=2")) + `": {"name": "Sage", "url": "` + bad + `", "availability": "GONE"}
}`
	path := filepath.Join(t.TempDir(), "product_database.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	got, err := NewFileStore(path, logger.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Snapshot{
		identity.Hash(good): {Name: "Lavender Oil", URL: good, Availability: models.InStock},
	}, got)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "snapshot.json"), logger.NewNop())
	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, store.Save(context.Background(), models.Snapshot{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot.json", entries[0].Name())

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestSQLiteStore_SkipsMalformedRows(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "snapshot.db"), logger.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleSnapshot()))
	_, err = store.DB.Exec(`INSERT INTO snapshot (id, name, url, availability) VALUES ('bad', 'x', 'https://x', 'GONE')`)
	require.NoError(t, err)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("redis", "x", logger.NewNop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
