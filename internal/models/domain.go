package models

import (
	"regexp"
	"strings"
)

const (
	MaxListItems = 10
	PositionMin  = 1
	PositionMax  = MaxListItems

	// DefaultOwnerID is recorded on every list until accounts exist.
	DefaultOwnerID = "anonymous"

	CategoryOther = "other"
)

// Category is one preset list category.
type Category struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

var presetCategories = []Category{
	{Value: "movies", Label: "Movies"},
	{Value: "tv_shows", Label: "TV Shows"},
	{Value: "books", Label: "Books"},
	{Value: "destinations", Label: "Destinations"},
	{Value: "goals", Label: "Goals"},
	{Value: "music", Label: "Music"},
	{Value: "games", Label: "Games"},
	{Value: "food", Label: "Food"},
	{Value: "hobbies", Label: "Hobbies"},
}

var categoryWhitespace = regexp.MustCompile(`\s+`)

// PresetCategories returns a copy of the preset category table.
func PresetCategories() []Category {
	out := make([]Category, len(presetCategories))
	copy(out, presetCategories)
	return out
}

// IsPresetCategory reports whether value names a preset category.
func IsPresetCategory(value string) bool {
	for _, c := range presetCategories {
		if c.Value == value {
			return true
		}
	}
	return false
}

// CategoryLabel returns the display label for a category value. Free-form
// categories are labelled "Other".
func CategoryLabel(value string) string {
	for _, c := range presetCategories {
		if c.Value == value {
			return c.Label
		}
	}
	return "Other"
}

// NormalizeCategory lowercases a category and collapses whitespace runs to
// underscores, so "Board Games" and "board_games" name the same slug.
func NormalizeCategory(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	return categoryWhitespace.ReplaceAllString(value, "_")
}

func IsValidPosition(value int) bool {
	return value >= PositionMin && value <= PositionMax
}
