// Package normalizer validates raw extracted records and turns them into
// products with a stable identity key.
package normalizer

import (
	"net/url"
	"strings"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
	"CatalogWatcher/utils"
)

// placeholder is what extractors emit for a field they could not find.
const placeholder = "N/A"

// Rejection describes a raw record excluded from the batch.
type Rejection struct {
	Index  int
	Source string
	Reason string
}

// Normalize returns the valid products of raws in their original order
// together with the records it had to drop. A record without a usable
// absolute URL cannot be keyed and is dropped.
func Normalize(raws []models.RawProduct, log logger.Logger) ([]models.Product, []Rejection) {
	products := make([]models.Product, 0, len(raws))
	var rejected []Rejection

	for i, raw := range raws {
		p, reason := normalize(raw)
		if reason != "" {
			rejected = append(rejected, Rejection{Index: i, Source: raw.Source, Reason: reason})
			log.Warn("Dropping malformed record",
				logger.Int("index", i),
				logger.String("source", raw.Source),
				logger.String("name", raw.Name),
				logger.String("reason", reason),
			)
			continue
		}
		products = append(products, p)
	}
	return products, rejected
}

func normalize(raw models.RawProduct) (models.Product, string) {
	key := strings.TrimSpace(raw.URL)
	if key == "" || key == placeholder {
		return models.Product{}, "missing url"
	}
	u, err := url.Parse(key)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return models.Product{}, "url is not absolute"
	}

	return models.Product{
		URL:          key,
		Name:         orPlaceholder(utils.CollapseSpaces(raw.Name)),
		Price:        orPlaceholder(utils.CollapseSpaces(raw.Price)),
		Availability: models.AvailabilityFromMarker(raw.SoldOutMarker),
		Category:     strings.TrimSpace(raw.Category),
		Source:       raw.Source,
	}, ""
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}
