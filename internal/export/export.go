// Package export writes run results to files: a CSV of new products and an
// append-only stock status log.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"CatalogWatcher/internal/models"
)

// Columns is the fixed CSV column order.
var Columns = []string{"name", "price", "url", "availability", "category"}

// CSVExporter replaces the file at Path with one row per product.
type CSVExporter struct {
	Path string
}

// NewCSVExporter returns a CSVExporter writing to path.
func NewCSVExporter(path string) *CSVExporter {
	return &CSVExporter{Path: path}
}

// Export writes products with a header row. An empty slice writes nothing.
func (e *CSVExporter) Export(products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.Path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	f, err := os.Create(e.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", e.Path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range products {
		row := []string{p.Name, p.Price, p.URL, string(p.Availability), p.Category}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

// StatusLog appends one human-readable line per observed product.
type StatusLog struct {
	Path string
	now  func() time.Time
}

// NewStatusLog returns a StatusLog appending to path.
func NewStatusLog(path string) *StatusLog {
	return &StatusLog{Path: path, now: time.Now}
}

// StatusLine renders the log line for p observed at ts.
func StatusLine(p models.Product, ts time.Time) string {
	stamp := ts.UTC().Format("2006-01-02 15:04:05") + " UTC"
	if p.Availability == models.InStock {
		return fmt.Sprintf("[%s] IN STOCK: Item '%s' is available!", stamp, p.Name)
	}
	return fmt.Sprintf("[%s] OUT OF STOCK: Item '%s' is not available.", stamp, p.Name)
}

// Append writes a status line for every product.
func (l *StatusLog) Append(products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open status log: %w", err)
	}
	defer f.Close()

	ts := l.now()
	for _, p := range products {
		if _, err := fmt.Fprintln(f, StatusLine(p, ts)); err != nil {
			return fmt.Errorf("write status log: %w", err)
		}
	}
	return f.Close()
}
