// Package catalog scrapes storefront category grids: it discovers category
// pages from the site navigation and reads every product card on them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
	"CatalogWatcher/pkg/config"
	"CatalogWatcher/utils"
)

// Scraper is the scraper.Source for one storefront.
type Scraper struct {
	source      config.CatalogSource
	scraperConf config.ScraperConfig
	workers     int
	client      *http.Client
	log         logger.Logger
}

// New returns a Scraper for source.
func New(source config.CatalogSource, scraperConf config.ScraperConfig, log logger.Logger) *Scraper {
	log = log.With(logger.String("source", source.Name))
	return &Scraper{
		source:      source,
		scraperConf: scraperConf,
		workers:     utils.GetOptimalWorkerCount(scraperConf.Workers, log),
		client:      &http.Client{Timeout: scraperConf.Timeout},
		log:         log,
	}
}

func (s *Scraper) Name() string {
	return s.source.Name
}

// Categories returns the configured categories followed by the discovered
// ones, without duplicate URLs. Discovery failure is fatal only when nothing
// was configured explicitly.
func (s *Scraper) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	seen := make(map[string]bool)
	add := func(c models.Category) {
		if seen[c.URL] {
			return
		}
		seen[c.URL] = true
		categories = append(categories, c)
	}

	for _, c := range s.source.Categories {
		add(models.Category{Name: c.Name, URL: utils.ResolveURL(s.source.BaseURL, c.URL), Source: s.source.Name})
	}

	if s.source.Discover {
		found, err := s.DiscoverCategories(ctx)
		if err != nil {
			if len(categories) == 0 {
				return nil, fmt.Errorf("discover categories: %w", err)
			}
			s.log.Warn("Category discovery failed, using configured categories", logger.Error(err))
		}
		for _, c := range found {
			add(c)
		}
	}
	return categories, nil
}

// Scrape fetches all categories with a bounded worker pool and returns
// their records in category order, independent of completion order.
func (s *Scraper) Scrape(ctx context.Context) ([]models.RawProduct, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, errors.New("no categories found")
	}

	workers := s.workers
	if workers > len(categories) {
		workers = len(categories)
	}
	s.log.Info("Scraping categories", logger.Int("categories", len(categories)), logger.Int("workers", workers))

	pages := make([][]models.RawProduct, len(categories))
	errs := make([]error, len(categories))
	jobs := make(chan int, len(categories))

	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			first := true
			for i := range jobs {
				if !first && !sleep(ctx, s.scraperConf.Delay) {
					errs[i] = ctx.Err()
					continue
				}
				first = false
				s.log.Debug("Scraping category", logger.Int("worker", workerID), logger.String("url", categories[i].URL))
				pages[i], errs[i] = s.ScrapeCategory(ctx, categories[i])
			}
		}(w)
	}
	for i := range categories {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var (
		products []models.RawProduct
		failed   []error
	)
	for i, cat := range categories {
		if errs[i] != nil {
			s.log.Error("Category failed", logger.String("url", cat.URL), logger.Error(errs[i]))
			failed = append(failed, errs[i])
			continue
		}
		products = append(products, pages[i]...)
	}
	if len(failed) == len(categories) {
		return nil, fmt.Errorf("all %d categories failed: %w", len(categories), errors.Join(failed...))
	}
	return products, nil
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
