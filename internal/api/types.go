package api

import (
	"encoding/json"

	"topten/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// CreateListResponse is returned by POST /api/new.
type CreateListResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// ListResponse is one list as returned by the API. Summaries from
// GET /api/lists carry item_count and no items.
type ListResponse = models.List

// SearchResponse wraps provider results verbatim.
type SearchResponse struct {
	Results []json.RawMessage `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse summarizes the server store.
type InfoResponse struct {
	SchemaVersion   int            `json:"schema_version"`
	TotalLists      int            `json:"total_lists"`
	TotalItems      int            `json:"total_items"`
	ItemsWithImages int            `json:"items_with_images"`
	ListsByCategory map[string]int `json:"lists_by_category"`
}

// ItemRequest is one item descriptor sent in a list submission. ImagePath
// names a local file to upload with the item.
type ItemRequest struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Position    int    `json:"position,omitempty" yaml:"position,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"image_url,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty" yaml:"external_url,omitempty"`
	HasImage    bool   `json:"hasImage,omitempty" yaml:"-"`
	ImagePath   string `json:"-" yaml:"image,omitempty"`
}

// CreateListRequest is a list submission.
type CreateListRequest struct {
	Title    string        `json:"title" yaml:"title"`
	Category string        `json:"category,omitempty" yaml:"category,omitempty"`
	Items    []ItemRequest `json:"items" yaml:"items"`
}
