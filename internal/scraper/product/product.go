// Package product watches individual product pages whose stock state is
// only visible after the page has been rendered.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
	"CatalogWatcher/pkg/config"
	"CatalogWatcher/utils"

	"github.com/PuerkitoBio/goquery"
)

// ErrButtonNotFound means the purchase button is missing, usually because
// the page layout changed.
var ErrButtonNotFound = errors.New("purchase button not found")

// Watcher is the scraper.Source for a list of product pages.
type Watcher struct {
	name    string
	pages   []config.ProductPage
	fetcher PageFetcher
	log     logger.Logger
}

func NewWatcher(name string, pages []config.ProductPage, fetcher PageFetcher, log logger.Logger) *Watcher {
	return &Watcher{
		name:    name,
		pages:   pages,
		fetcher: fetcher,
		log:     log.With(logger.String("source", name)),
	}
}

func (w *Watcher) Name() string {
	return w.name
}

// Scrape checks every page in order. A page that cannot be fetched or read
// is logged and skipped; Scrape fails only when every page did.
func (w *Watcher) Scrape(ctx context.Context) ([]models.RawProduct, error) {
	var (
		products []models.RawProduct
		failed   []error
	)
	for _, page := range w.pages {
		w.log.Info("Checking stock", logger.String("url", page.URL))

		raw, err := w.check(ctx, page)
		if err != nil {
			w.log.Error("Product page check failed", logger.String("url", page.URL), logger.Error(err))
			failed = append(failed, err)
			continue
		}
		raw.Source = w.name
		products = append(products, raw)
	}

	if len(w.pages) > 0 && len(failed) == len(w.pages) {
		return nil, fmt.Errorf("all %d product pages failed: %w", len(w.pages), errors.Join(failed...))
	}
	return products, nil
}

func (w *Watcher) check(ctx context.Context, page config.ProductPage) (models.RawProduct, error) {
	body, err := w.fetcher.FetchHTML(ctx, page.URL)
	if err != nil {
		return models.RawProduct{}, err
	}
	return parsePage(body, page)
}

// parsePage reads the product title and stock state from a rendered page.
// The last title that is not in IgnoreTitles wins; a disabled purchase
// button means sold out.
func parsePage(body string, page config.ProductPage) (models.RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return models.RawProduct{}, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	sel := page.Selectors

	button := doc.Find(sel.Button).First()
	if button.Length() == 0 {
		return models.RawProduct{}, fmt.Errorf("%s: %w", page.URL, ErrButtonNotFound)
	}
	_, disabled := button.Attr("disabled")

	name := ""
	doc.Find(sel.Title).Each(func(_ int, s *goquery.Selection) {
		text := utils.CollapseSpaces(s.Text())
		if text == "" || ignored(text, sel.IgnoreTitles) {
			return
		}
		name = text
	})
	if name == "" {
		name = page.Name
	}

	raw := models.RawProduct{
		Name:          name,
		URL:           page.URL,
		SoldOutMarker: disabled,
		Category:      page.Category,
	}
	if sel.Price != "" {
		raw.Price = utils.CollapseSpaces(doc.Find(sel.Price).First().Text())
	}
	return raw, nil
}

func ignored(title string, ignore []string) bool {
	for _, t := range ignore {
		if strings.EqualFold(title, t) {
			return true
		}
	}
	return false
}
