package scraper

import (
	"context"
	"time"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
)

// Source is anything that yields raw product records for one run: a
// storefront's category grids, a list of single product pages, ...
// A Source makes a single attempt per call and does not retry.
type Source interface {
	Name() string
	Scrape(ctx context.Context) ([]models.RawProduct, error)
}

// Result is the outcome of scraping one source.
type Result struct {
	Source   string
	Products []models.RawProduct
	Err      error
	Duration time.Duration
}

// OK reports whether the source produced records without error.
func (r Result) OK() bool {
	return r.Err == nil
}

// Collect scrapes sources one after another and concatenates their records
// in source order. A failing source is logged and contributes nothing; it
// never prevents the others from running.
func Collect(ctx context.Context, sources []Source, log logger.Logger) ([]models.RawProduct, []Result) {
	var batch []models.RawProduct
	results := make([]Result, 0, len(sources))

	for _, src := range sources {
		start := time.Now()
		products, err := src.Scrape(ctx)
		res := Result{Source: src.Name(), Err: err, Duration: time.Since(start)}

		if err != nil {
			log.Error("Source failed, continuing without it",
				logger.String("source", src.Name()),
				logger.Error(err),
			)
			results = append(results, res)
			continue
		}

		for i := range products {
			if products[i].Source == "" {
				products[i].Source = src.Name()
			}
		}
		res.Products = products
		results = append(results, res)
		batch = append(batch, products...)

		log.Info("Source scraped",
			logger.String("source", src.Name()),
			logger.Int("records", len(products)),
			logger.Duration("took", res.Duration),
		)
	}
	return batch, results
}
