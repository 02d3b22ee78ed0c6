package product

import (
	"context"
	"errors"
	"testing"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
	"CatalogWatcher/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inStockPage = `<html><body>
<h1>Welcome to ZYN.com</h1>
<h1>  Cuisinart Compact
  Bullet Ice Maker </h1>
<span class="points">4,500 points</span>
<button x-ref="submitButton">Add to cart</button>
</body></html>`

const soldOutPage = `<html><body>
<h1>Cuisinart Compact Bullet Ice Maker</h1>
<button x-ref="submitButton" disabled>Out of stock</button>
</body></html>`

const brokenPage = `<html><body><h1>Maintenance</h1></body></html>`

type fakeFetcher map[string]string

func (f fakeFetcher) FetchHTML(_ context.Context, pageURL string) (string, error) {
	body, ok := f[pageURL]
	if !ok {
		return "", errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return body, nil
}

func pages(urls ...string) []config.ProductPage {
	cfg := &config.Config{}
	for _, u := range urls {
		cfg.Products = append(cfg.Products, config.ProductPage{
			URL:      u,
			Category: "rewards",
			Selectors: config.ProductSelectors{
				IgnoreTitles: []string{"Welcome to ZYN.com"},
				Price:        "span.points",
			},
		})
	}
	cfg.SetDefaults()
	return cfg.Products
}

func TestParsePage(t *testing.T) {
	p := pages("https://us.zyn.com/store/ice-maker/")[0]

	raw, err := parsePage(inStockPage, p)
	require.NoError(t, err)
	assert.Equal(t, models.RawProduct{
		Name:     "Cuisinart Compact Bullet Ice Maker",
		Price:    "4,500 points",
		URL:      "https://us.zyn.com/store/ice-maker/",
		Category: "rewards",
	}, raw)

	raw, err = parsePage(soldOutPage, p)
	require.NoError(t, err)
	assert.True(t, raw.SoldOutMarker)
	assert.Empty(t, raw.Price)
}

func TestParsePage_MissingButton(t *testing.T) {
	_, err := parsePage(brokenPage, pages("https://us.zyn.com/store/x/")[0])
	assert.ErrorIs(t, err, ErrButtonNotFound)
}

func TestParsePage_TitleFallsBackToName(t *testing.T) {
	p := pages("https://us.zyn.com/store/x/")[0]
	p.Name = "Ice maker"

	raw, err := parsePage(`<html><body><h1>Welcome to ZYN.com</h1><button x-ref="submitButton"></button></body></html>`, p)
	require.NoError(t, err)
	assert.Equal(t, "Ice maker", raw.Name)
}

func TestWatcher_SkipsFailedPages(t *testing.T) {
	fetcher := fakeFetcher{
		"https://shop.test/a": inStockPage,
		"https://shop.test/b": brokenPage,
		"https://shop.test/c": soldOutPage,
	}
	w := NewWatcher("zyn", pages("https://shop.test/a", "https://shop.test/b", "https://shop.test/missing", "https://shop.test/c"), fetcher, logger.NewNop())

	products, err := w.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "https://shop.test/a", products[0].URL)
	assert.False(t, products[0].SoldOutMarker)
	assert.Equal(t, "https://shop.test/c", products[1].URL)
	assert.True(t, products[1].SoldOutMarker)
	assert.Equal(t, "zyn", products[1].Source)
}

func TestWatcher_AllPagesFail(t *testing.T) {
	w := NewWatcher("zyn", pages("https://shop.test/missing"), fakeFetcher{}, logger.NewNop())

	_, err := w.Scrape(context.Background())
	assert.Error(t, err)
}
