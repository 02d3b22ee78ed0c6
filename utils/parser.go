package utils

import (
	"net/url"
	"strings"
)

// CollapseSpaces trims s and replaces every run of whitespace with one space.
// Price cells like "From\n  $40.00 -\t$45.00" become "From $40.00 - $45.00".
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// LastPathSegment returns the final non-empty path segment of rawURL,
// e.g. "crystals" for "https://shop.example.com/collections/crystals".
func LastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return parts[len(parts)-1]
}

// ResolveURL resolves href against base. It returns "" when either fails to parse.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}
