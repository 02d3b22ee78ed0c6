package catalog

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
	"github.com/gocolly/colly/v2"
)

func (s *Scraper) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.scraperConf.UserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.scraperConf.Timeout)
	return c
}

// ScrapeCategory reads every product card of a category, following the
// next-page link when one is configured. Pages are visited in order and
// their records concatenated, so the result order is page-then-card.
func (s *Scraper) ScrapeCategory(ctx context.Context, cat models.Category) ([]models.RawProduct, error) {
	sel := s.source.Selectors
	category := utils.LastPathSegment(cat.URL)
	if category == "" {
		category = utils.CreateSlug(cat.Name)
	}

	c := s.newCollector(ctx)

	var (
		products  []models.RawProduct
		foundList bool
		next      string
	)
	c.OnHTML(sel.List, func(e *colly.HTMLElement) {
		foundList = true
		products = append(products, parseGrid(e.DOM, e.Request.URL.String(), sel, category, s.source.Name)...)
	})
	if sel.NextPage != "" {
		c.OnHTML(sel.NextPage, func(e *colly.HTMLElement) {
			if next == "" {
				next = e.Request.AbsoluteURL(e.Attr("href"))
			}
		})
	}

	log := s.log.With(logger.String("category", cat.URL))
	pageURL := cat.URL
	for page := 1; pageURL != "" && page <= s.source.MaxPages; page++ {
		next = ""
		foundList = false

		err := c.Visit(pageURL)
		var revisit *colly.AlreadyVisitedError
		if errors.As(err, &revisit) {
			break
		}
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
			}
			log.Warn("Stopping pagination after failed page", logger.Int("page", page), logger.Error(err))
			break
		}
		if !foundList {
			if page == 1 {
				log.Warn("Could not find the product list, page structure may have changed",
					logger.String("selector", sel.List))
			}
			break
		}
		pageURL = next
	}

	log.Debug("Category scraped", logger.Int("records", len(products)))
	return products, nil
}

// parseGrid reads the product cards inside one product list element.
func parseGrid(list *goquery.Selection, pageURL string, sel config.CatalogSelectors, category, source string) []models.RawProduct {
	var products []models.RawProduct
	list.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		raw := models.RawProduct{
			Name:          strings.TrimSpace(item.Find(sel.Name).First().Text()),
			SoldOutMarker: item.Find(sel.SoldOut).Length() > 0,
			Category:      category,
			Source:        source,
		}
		if href, ok := item.Find(sel.Link).First().Attr("href"); ok {
			raw.URL = utils.ResolveURL(pageURL, href)
		}
		if price := item.Find(sel.Price).First(); price.Length() > 0 {
			raw.Price = utils.CollapseSpaces(nodeText(price.Nodes[0]))
		}
		products = append(products, raw)
	})
	return products
}
