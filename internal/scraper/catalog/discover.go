package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"CatalogWatcher/internal/models"
	"CatalogWatcher/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// fetchHTML GETs pageURL and parses the body into a node tree.
func (s *Scraper) fetchHTML(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", s.scraperConf.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not parse html: %w", err)
	}
	return doc, nil
}

// DiscoverCategories reads the storefront navigation and returns every
// category link matching the configured filter, in page order, without
// duplicates.
func (s *Scraper) DiscoverCategories(ctx context.Context) ([]models.Category, error) {
	s.log.Info("Fetching main page to find category links")

	root, err := s.fetchHTML(ctx, s.source.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.source.BaseURL, err)
	}
	return parseCategoryLinks(root, s.source.BaseURL, s.source.Name, s.source.Selectors.NavLinks, s.source.Selectors.NavMatch), nil
}

func parseCategoryLinks(root *html.Node, baseURL, source, navSelector, match string) []models.Category {
	doc := goquery.NewDocumentFromNode(root)

	var urls []string
	names := make(map[string]string)
	doc.Find(navSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || (match != "" && !strings.Contains(href, match)) {
			return
		}
		full := utils.ResolveURL(baseURL, href)
		if full == "" {
			return
		}
		urls = append(urls, full)
		if _, seen := names[full]; !seen {
			names[full] = utils.CollapseSpaces(nodeText(a.Nodes[0]))
		}
	})

	var categories []models.Category
	for _, u := range utils.UniqueStrings(urls) {
		categories = append(categories, models.Category{Name: names[u], URL: u, Source: source})
	}
	return categories
}

// nodeText concatenates all text below n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
