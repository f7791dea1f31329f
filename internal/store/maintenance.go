package store

import "context"

// StoreInfo summarizes the database contents.
type StoreInfo struct {
	SchemaVersion   int            `json:"schema_version"`
	TotalLists      int            `json:"total_lists"`
	TotalItems      int            `json:"total_items"`
	ItemsWithImages int            `json:"items_with_images"`
	ListsByCategory map[string]int `json:"lists_by_category"`
}

// StoreInfo returns the applied schema version and row counts.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	info := &StoreInfo{ListsByCategory: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&info.SchemaVersion); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lists").Scan(&info.TotalLists); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(image_url) FROM list_items
	`).Scan(&info.TotalItems, &info.ItemsWithImages); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM lists GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		info.ListsByCategory[category] = count
	}
	return info, rows.Err()
}
