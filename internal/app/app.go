// Package app wires the scrapers, the diff engine and the sinks into a
// single watch run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"CatalogWatcher/internal/diff"
	"CatalogWatcher/internal/export"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
	"CatalogWatcher/internal/normalizer"
	"CatalogWatcher/internal/notify"
	"CatalogWatcher/internal/scraper"
	"CatalogWatcher/internal/scraper/catalog"
	"CatalogWatcher/internal/scraper/product"
	"CatalogWatcher/internal/snapshot"
	"CatalogWatcher/pkg/config"
)

// ProductSourceName is the source name of the product page watcher.
const ProductSourceName = "product-pages"

// Parts are the collaborators of an App.
type Parts struct {
	Sources []scraper.Source
	// StatusSources names the sources whose records go to the stock status log.
	StatusSources []string
	Store         snapshot.Store
	Engine        *diff.Engine
	Notifier      notify.Notifier
	CSV           *export.CSVExporter
	Status        *export.StatusLog
	Closers       []io.Closer
}

// App is the main application structure holding all dependencies.
type App struct {
	sources       []scraper.Source
	statusSources map[string]bool
	store         snapshot.Store
	engine        *diff.Engine
	notifier      notify.Notifier
	csv           *export.CSVExporter
	status        *export.StatusLog
	closers       []io.Closer
	log           logger.Logger
}

// RunReport describes what one run did.
type RunReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Sources   []scraper.Result
	Rejected  []normalizer.Rejection
	Batch     int
	// Skipped is set when the run produced no records and left the snapshot alone.
	Skipped   bool
	Summary   diff.Summary
	New       []models.Product
	Restocked []models.Product
	Saved     bool
}

// New builds an App from cfg.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	policy, err := diff.ParsePolicy(cfg.Snapshot.Policy)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.Open(cfg.Snapshot.Driver, cfg.Snapshot.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	parts := Parts{
		Store:  store,
		Engine: diff.NewEngine(policy, log),
		CSV:    export.NewCSVExporter(cfg.Export.CSVPath),
	}
	for _, src := range cfg.Catalogs {
		parts.Sources = append(parts.Sources, catalog.New(src, cfg.Scraper, log))
	}
	if len(cfg.Products) > 0 {
		fetcher := product.NewBrowserFetcher(cfg.Scraper.Headless, cfg.Scraper.UserAgent, cfg.Scraper.Timeout)
		parts.Sources = append(parts.Sources, product.NewWatcher(ProductSourceName, cfg.Products, fetcher, log))
		parts.StatusSources = append(parts.StatusSources, ProductSourceName)
		parts.Closers = append(parts.Closers, fetcher)
	}
	if cfg.Export.StatusLog != "" {
		parts.Status = export.NewStatusLog(cfg.Export.StatusLog)
	}

	if cfg.Pushover.Enabled() {
		parts.Notifier = notify.NewPushover(notify.PushoverConfig{
			AppToken:  cfg.Pushover.AppToken,
			UserToken: cfg.Pushover.UserToken,
			APIURL:    cfg.Pushover.APIURL,
			URLTitle:  cfg.Pushover.URLTitle,
			Timeout:   cfg.Pushover.Timeout,
		}, nil, log)
	} else {
		log.Warn("Pushover credentials not set, notifications will only be logged")
		parts.Notifier = notify.NewLogNotifier(log)
	}

	return NewFromParts(parts, log), nil
}

// NewFromParts builds an App from ready collaborators. Nil sinks are skipped.
func NewFromParts(p Parts, log logger.Logger) *App {
	if p.Engine == nil {
		p.Engine = diff.NewEngine(diff.PolicyRetain, log)
	}
	if p.Notifier == nil {
		p.Notifier = notify.NewLogNotifier(log)
	}
	status := make(map[string]bool, len(p.StatusSources))
	for _, s := range p.StatusSources {
		status[s] = true
	}
	return &App{
		sources:       p.Sources,
		statusSources: status,
		store:         p.Store,
		engine:        p.Engine,
		notifier:      p.Notifier,
		csv:           p.CSV,
		status:        p.Status,
		closers:       p.Closers,
		log:           log,
	}
}

// Run performs one extract, classify, notify and persist cycle. Source,
// export and notification failures are logged and reported; only a failed
// snapshot save is returned as an error.
func (a *App) Run(ctx context.Context) (report RunReport, err error) {
	report = RunReport{StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	a.log.Info("--- Starting run ---", logger.Int("sources", len(a.sources)))

	raws, results := scraper.Collect(ctx, a.sources, a.log)
	report.Sources = results
	if failed := failedSources(results); len(failed) > 0 {
		a.log.Warn("Some sources failed this run", logger.Strings("sources", failed))
	}

	batch, rejected := normalizer.Normalize(raws, a.log)
	report.Rejected = rejected
	report.Batch = len(batch)

	if len(batch) == 0 {
		report.Skipped = true
		a.log.Warn("No products scraped, leaving snapshot untouched",
			logger.Int("raw", len(raws)),
			logger.Int("rejected", len(rejected)),
		)
		return report, nil
	}

	previous, err := a.store.Load(ctx)
	if err != nil {
		a.log.Warn("Could not load snapshot, starting from an empty one", logger.Error(err))
	}

	result, summary := a.engine.Run(batch, previous)
	report.Summary = summary
	report.New = result.New
	report.Restocked = result.Restocked

	a.export(result)
	a.appendStatus(batch)
	a.notify(ctx, result.New, notify.KindNew)
	a.notify(ctx, result.Restocked, notify.KindRestocked)

	if err := a.store.Save(ctx, result.Snapshot); err != nil {
		a.log.Error("Failed to save snapshot", logger.Error(err))
		return report, fmt.Errorf("save snapshot: %w", err)
	}
	report.Saved = true

	a.log.Info("--- Run finished ---",
		logger.Int("batch", report.Batch),
		logger.Int("new", len(report.New)),
		logger.Int("restocked", len(report.Restocked)),
		logger.Int("snapshot", len(result.Snapshot)),
	)
	return report, nil
}

func failedSources(results []scraper.Result) []string {
	var failed []string
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r.Source)
		}
	}
	return failed
}

func (a *App) export(result models.ClassificationResult) {
	if a.csv == nil || len(result.New) == 0 {
		return
	}
	if err := a.csv.Export(result.New); err != nil {
		a.log.Error("Failed to export new products", logger.String("path", a.csv.Path), logger.Error(err))
		return
	}
	a.log.Info("Exported new products", logger.String("path", a.csv.Path), logger.Int("count", len(result.New)))
}

func (a *App) appendStatus(batch []models.Product) {
	if a.status == nil || len(a.statusSources) == 0 {
		return
	}
	var watched []models.Product
	for _, p := range batch {
		if a.statusSources[p.Source] {
			watched = append(watched, p)
		}
	}
	if err := a.status.Append(watched); err != nil {
		a.log.Error("Failed to append stock status", logger.String("path", a.status.Path), logger.Error(err))
	}
}

func (a *App) notify(ctx context.Context, records []models.Product, kind notify.Kind) {
	if len(records) == 0 {
		return
	}
	msg := notify.Format(records, kind)
	if err := a.notifier.Send(ctx, msg); err != nil {
		a.log.Error("Failed to send notification", logger.String("kind", kind.String()), logger.Error(err))
		return
	}
	a.log.Info("Notification sent", logger.String("kind", kind.String()), logger.Int("count", len(records)))
}

// Close releases the browser and the snapshot store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
