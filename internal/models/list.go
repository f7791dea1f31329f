package models

import "time"

// List is one persisted top-10 list.
type List struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	OwnerID   string     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	ItemCount int        `json:"item_count,omitempty"`
	Items     []ListItem `json:"items,omitempty"`
}

// ListItem is one ranked entry of a list. ImageURL and ExternalURL are nil
// when the submission supplied nothing for them.
type ListItem struct {
	ID          int64   `json:"id"`
	ListID      int64   `json:"list_id"`
	Position    int     `json:"position"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	ExternalURL *string `json:"external_url"`
}
