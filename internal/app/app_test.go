package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"CatalogWatcher/internal/diff"
	"CatalogWatcher/internal/export"
	"CatalogWatcher/internal/identity"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
	"CatalogWatcher/internal/notify"
	"CatalogWatcher/internal/scraper"
	"CatalogWatcher/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	name     string
	products []models.RawProduct
	err      error
	calls    int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Scrape(context.Context) ([]models.RawProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return append([]models.RawProduct(nil), s.products...), s.err
}

func (s *fakeSource) set(products ...models.RawProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

type fakeNotifier struct {
	messages []notify.Message
	err      error
}

func (n *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	n.messages = append(n.messages, msg)
	return n.err
}

type failingStore struct {
	snapshot.Store
}

func (failingStore) Save(context.Context, models.Snapshot) error {
	return errors.New("disk full")
}

func raw(name, url string, soldOut bool) models.RawProduct {
	return models.RawProduct{Name: name, Price: "$10.00", URL: url, SoldOutMarker: soldOut, Category: "oils"}
}

type fixture struct {
	app      *App
	source   *fakeSource
	notifier *fakeNotifier
	store    *snapshot.FileStore
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNop()
	f := &fixture{
		source:   &fakeSource{name: "owls"},
		notifier: &fakeNotifier{},
		store:    snapshot.NewFileStore(filepath.Join(dir, "product_database.json"), log),
		dir:      dir,
	}
	f.app = NewFromParts(Parts{
		Sources:  []scraper.Source{f.source},
		Store:    f.store,
		Engine:   diff.NewEngine(diff.PolicyRetain, log),
		Notifier: f.notifier,
		CSV:      export.NewCSVExporter(filepath.Join(dir, "new_products.csv")),
	}, log)
	return f
}

func TestRun_NewThenRestocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.set(raw("Lavender", "https://shop.test/p/lavender", false), raw("Sage", "https://shop.test/p/sage", true))
	report, err := f.app.Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.True(t, report.Saved)
	assert.Len(t, report.New, 2)
	assert.Empty(t, report.Restocked)
	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, "Scraper: Found 2 New Product(s)!", f.notifier.messages[0].Title)

	csvData, err := os.ReadFile(filepath.Join(f.dir, "new_products.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), "name,price,url,availability,category\n"))

	f.source.set(raw("Lavender", "https://shop.test/p/lavender", false), raw("Sage", "https://shop.test/p/sage", false))
	report, err = f.app.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.New)
	require.Len(t, report.Restocked, 1)
	assert.Equal(t, "Sage", report.Restocked[0].Name)
	require.Len(t, f.notifier.messages, 2)
	assert.Equal(t, "Scraper: 1 Product(s) Back in Stock!", f.notifier.messages[1].Title)
	assert.Equal(t, "https://shop.test/p/sage", f.notifier.messages[1].URL)

	snap, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.InStock, snap[identity.Hash("https://shop.test/p/sage")].Availability)

	report, err = f.app.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.New)
	assert.Empty(t, report.Restocked)
	assert.Len(t, f.notifier.messages, 2)
}

func TestRun_EmptyBatchLeavesSnapshotUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.set(raw("Lavender", "https://shop.test/p/lavender", false))
	_, err := f.app.Run(ctx)
	require.NoError(t, err)

	before, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(f.store.Path(), past, past))

	f.source.set()
	f.source.err = errors.New("connection refused")
	report, err := f.app.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.False(t, report.Saved)

	after, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	info, err := os.Stat(f.store.Path())
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past))
	assert.Len(t, f.notifier.messages, 1)
}

func TestRun_OnlyMalformedRecordsIsSkipped(t *testing.T) {
	f := newFixture(t)

	f.source.set(raw("No link", "", false), raw("Relative", "/p/x", false))
	report, err := f.app.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Len(t, report.Rejected, 2)
	assert.NoFileExists(t, f.store.Path())
}

func TestRun_NotificationFailureStillSaves(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = notify.ErrDelivery

	f.source.set(raw("Lavender", "https://shop.test/p/lavender", false))
	report, err := f.app.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Saved)

	snap, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestRun_SaveFailureIsReturned(t *testing.T) {
	log := logger.NewNop()
	src := &fakeSource{name: "owls", products: []models.RawProduct{raw("Lavender", "https://shop.test/p/lavender", false)}}
	store := snapshot.NewFileStore(filepath.Join(t.TempDir(), "db.json"), log)
	a := NewFromParts(Parts{Sources: []scraper.Source{src}, Store: failingStore{store}}, log)

	report, err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, report.Saved)
	assert.Len(t, report.New, 1)
}

func TestRun_StatusLogOnlyForWatchedSources(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewNop()
	catalogSrc := &fakeSource{name: "owls", products: []models.RawProduct{raw("Lavender", "https://shop.test/p/lavender", false)}}
	pages := &fakeSource{name: ProductSourceName, products: []models.RawProduct{
		raw("Ice Maker", "https://zyn.test/ice-maker/", true),
	}}
	statusPath := filepath.Join(dir, "stock_log.txt")

	a := NewFromParts(Parts{
		Sources:       []scraper.Source{catalogSrc, pages},
		StatusSources: []string{ProductSourceName},
		Store:         snapshot.NewFileStore(filepath.Join(dir, "db.json"), log),
		Notifier:      &fakeNotifier{},
		Status:        export.NewStatusLog(statusPath),
	}, log)

	_, err := a.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(statusPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "OUT OF STOCK: Item 'Ice Maker' is not available.")
}

func TestWatch_RunNowAndStop(t *testing.T) {
	f := newFixture(t)
	f.source.set(raw("Lavender", "https://shop.test/p/lavender", false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.app.Watch(ctx, "@every 1h", true) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(f.store.Path())
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, 1, f.source.calls)
}

func TestWatch_InvalidSchedule(t *testing.T) {
	f := newFixture(t)
	err := f.app.Watch(context.Background(), "every now and then", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}
