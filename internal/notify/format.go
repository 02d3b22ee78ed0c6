// Package notify formats change alerts and delivers them to push services.
package notify

import (
	"fmt"
	"strings"

	"CatalogWatcher/internal/models"
)

// Kind is the type of change an alert reports.
type Kind int

const (
	KindNew Kind = iota
	KindRestocked
)

func (k Kind) String() string {
	if k == KindRestocked {
		return "restocked"
	}
	return "new"
}

// Message is a single push notification.
type Message struct {
	Title string
	Body  string
	// URL is set when the message is about exactly one product.
	URL string
}

// Format renders records as a message of the given kind. The body holds one
// "- name (price)" line per record; empty input yields an empty body and
// must not be sent.
func Format(records []models.Product, kind Kind) Message {
	var title string
	switch kind {
	case KindRestocked:
		title = fmt.Sprintf("Scraper: %d Product(s) Back in Stock!", len(records))
	default:
		title = fmt.Sprintf("Scraper: Found %d New Product(s)!", len(records))
	}

	lines := make([]string, 0, len(records))
	for _, p := range records {
		lines = append(lines, fmt.Sprintf("- %s (%s)", p.Name, p.Price))
	}

	msg := Message{Title: title, Body: strings.Join(lines, "\n")}
	if len(records) == 1 {
		msg.URL = records[0].URL
	}
	return msg
}
