package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"topten/internal/models"
)

// CreateListWithItems inserts a list and all of its items in one transaction.
// Items are inserted in slice order. On success the assigned ids and the
// creation timestamp are written back into list and items.
func (s *Store) CreateListWithItems(ctx context.Context, list *models.List, items []models.ListItem) (_ int64, err error) {
	if list == nil {
		return 0, fmt.Errorf("list is required")
	}
	if strings.TrimSpace(list.Title) == "" {
		return 0, fmt.Errorf("list title is required")
	}

	createdAt := list.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ownerID := list.OwnerID
	if ownerID == "" {
		ownerID = models.DefaultOwnerID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO lists (title, category, owner_id, created_at)
		VALUES (?, ?, ?, ?)
	`, list.Title, list.Category, ownerID, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("insert list: %w", err)
	}
	listID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("list id: %w", err)
	}

	itemIDs := make([]int64, len(items))
	for i := range items {
		itemIDs[i], err = insertItemTx(ctx, tx, listID, &items[i])
		if err != nil {
			return 0, fmt.Errorf("insert item %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	list.ID = listID
	list.OwnerID = ownerID
	list.CreatedAt = createdAt
	list.ItemCount = len(items)
	for i := range items {
		items[i].ID = itemIDs[i]
		items[i].ListID = listID
	}
	return listID, nil
}

// GetList returns a list with its items ordered by position. It returns nil
// when the list does not exist.
func (s *Store) GetList(ctx context.Context, id int64) (*models.List, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT l.id, l.title, l.category, l.owner_id, l.created_at,
			(SELECT COUNT(*) FROM list_items i WHERE i.list_id = l.id)
		FROM lists l
		WHERE l.id = ?
	`, id)
	list, err := scanList(row)
	if err != nil || list == nil {
		return list, err
	}

	items, err := s.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	list.Items = items
	return list, nil
}

// ListItems returns the items of a list ordered by position.
func (s *Store) ListItems(ctx context.Context, listID int64) ([]models.ListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_id, position, title, description, image_url, external_url
		FROM list_items
		WHERE list_id = ?
		ORDER BY position ASC, id ASC
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ListItem{}
	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListLists returns every list, newest first, with item counts and without items.
func (s *Store) ListLists(ctx context.Context) ([]models.List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.title, l.category, l.owner_id, l.created_at,
			(SELECT COUNT(*) FROM list_items i WHERE i.list_id = l.id)
		FROM lists l
		ORDER BY l.created_at DESC, l.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []models.List{}
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *list)
	}
	return lists, rows.Err()
}

func insertItemTx(ctx context.Context, tx *sql.Tx, listID int64, item *models.ListItem) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO list_items (list_id, position, title, description, image_url, external_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		listID,
		item.Position,
		item.Title,
		item.Description,
		nullString(item.ImageURL),
		nullString(item.ExternalURL),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanList(scanner interface {
	Scan(dest ...any) error
}) (*models.List, error) {
	var (
		list      models.List
		createdAt string
	)
	err := scanner.Scan(&list.ID, &list.Title, &list.Category, &list.OwnerID, &createdAt, &list.ItemCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	list.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for list %d: %w", list.ID, err)
	}
	return &list, nil
}

func scanListItem(scanner interface {
	Scan(dest ...any) error
}) (*models.ListItem, error) {
	var (
		item        models.ListItem
		imageURL    sql.NullString
		externalURL sql.NullString
	)
	if err := scanner.Scan(&item.ID, &item.ListID, &item.Position, &item.Title, &item.Description, &imageURL, &externalURL); err != nil {
		return nil, err
	}
	if imageURL.Valid {
		item.ImageURL = &imageURL.String
	}
	if externalURL.Valid {
		item.ExternalURL = &externalURL.String
	}
	return &item, nil
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

// timeLayout keeps a fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
