package utils

import (
	"regexp"
	"strings"
)

// UniqueStrings returns slice without duplicates, keeping first occurrences in order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]bool, len(slice))
	unique := []string{}
	for _, entry := range slice {
		if seen[entry] {
			continue
		}
		seen[entry] = true
		unique = append(unique, entry)
	}
	return unique
}

var (
	// slugRegex matches any character that is NOT a letter, a number, or a hyphen.
	slugRegex   = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	hyphenRegex = regexp.MustCompile(`-{2,}`)
)

// CreateSlug generates a lowercase, hyphenated slug from a title.
func CreateSlug(title string) string {
	slug := strings.Join(strings.Fields(title), "-")
	slug = slugRegex.ReplaceAllString(slug, "")
	slug = hyphenRegex.ReplaceAllString(slug, "-")
	return strings.ToLower(strings.Trim(slug, "-"))
}
