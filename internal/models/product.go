package models

import (
	"encoding/json"
	"fmt"
)

// Availability is the stock state of a product.
type Availability string

const (
	InStock Availability = "IN_STOCK"
	SoldOut Availability = "SOLD_OUT"
)

// Valid reports whether a is one of the known states.
func (a Availability) Valid() bool {
	return a == InStock || a == SoldOut
}

// AvailabilityFromMarker maps the presence of a sold-out marker to a state.
func AvailabilityFromMarker(soldOut bool) Availability {
	if soldOut {
		return SoldOut
	}
	return InStock
}

// ParseAvailability accepts the canonical names and the legacy "Yes"/"No"
// sold-out flag written by older snapshot files.
func ParseAvailability(s string) (Availability, error) {
	switch s {
	case string(InStock), "No":
		return InStock, nil
	case string(SoldOut), "Yes":
		return SoldOut, nil
	}
	return "", fmt.Errorf("unknown availability %q", s)
}

// RawProduct is what an extractor emits before validation.
type RawProduct struct {
	Name          string
	Price         string
	URL           string
	SoldOutMarker bool
	Category      string
	Source        string
}

// Product is a validated product observation.
type Product struct {
	URL          string       `json:"url"`
	Name         string       `json:"name"`
	Price        string       `json:"price"`
	Availability Availability `json:"availability"`
	Category     string       `json:"category"`
	Source       string       `json:"source,omitempty"`
}

// Category is a catalog category page.
type Category struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// SnapshotEntry is the last observed state of a product.
type SnapshotEntry struct {
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	Availability Availability `json:"availability"`
}

// EntryFrom builds the snapshot entry for p.
func EntryFrom(p Product) SnapshotEntry {
	return SnapshotEntry{Name: p.Name, URL: p.URL, Availability: p.Availability}
}

// UnmarshalJSON reads both the current layout and the legacy one that kept
// a "sold_out": "Yes"/"No" flag instead of availability.
func (e *SnapshotEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name         string `json:"name"`
		URL          string `json:"url"`
		Availability string `json:"availability"`
		SoldOut      string `json:"sold_out"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	state := raw.Availability
	if state == "" {
		state = raw.SoldOut
	}
	a, err := ParseAvailability(state)
	if err != nil {
		return err
	}

	*e = SnapshotEntry{Name: raw.Name, URL: raw.URL, Availability: a}
	return nil
}
