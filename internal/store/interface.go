package store

import (
	"context"

	"topten/internal/models"
)

// ListStore abstracts list storage backends.
type ListStore interface {
	CreateListWithItems(ctx context.Context, list *models.List, items []models.ListItem) (int64, error)
	GetList(ctx context.Context, id int64) (*models.List, error)
	ListLists(ctx context.Context) ([]models.List, error)
	StoreInfo(ctx context.Context) (*StoreInfo, error)
}

var _ ListStore = (*Store)(nil)
