package search

import (
	"strings"
	"unicode"
)

// categoryTypes maps list categories to schema.org types understood by the
// provider. Categories without a sensible type search unfiltered.
var categoryTypes = map[string]string{
	"movies":       "Movie",
	"tv_shows":     "TVSeries",
	"books":        "Book",
	"destinations": "Place",
	"music":        "MusicAlbum",
	"games":        "VideoGame",
}

// TypeForCategory returns the schema.org type for a category, or "".
func TypeForCategory(category string) string {
	return categoryTypes[strings.ToLower(strings.TrimSpace(category))]
}

// ResolveType accepts either a category value or a schema.org type name.
func ResolveType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if typ := TypeForCategory(raw); typ != "" {
		return typ
	}
	for i, r := range raw {
		if i == 0 && !unicode.IsUpper(r) {
			return ""
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return raw
}
