package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/korbot/pkg/models"
)

const itemColumns = `i.id, i.korean, i.english, i.item_type, i.topik_level, i.source, i.tags, i.notes, i.created_at`

// CreateItem inserts a new item and fills in its ID
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	if item.Source == "" {
		item.Source = models.SourceSeed
	}
	if item.ItemType == "" {
		item.ItemType = models.ItemTypeVocab
	}
	if item.TopikLevel == 0 {
		item.TopikLevel = 1
	}
	item.CreatedAt = createdAt(item.CreatedAt)

	id, err := s.insertReturningID(ctx, `
		INSERT INTO items (korean, english, item_type, topik_level, source, tags, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		item.Korean,
		item.English,
		item.ItemType,
		item.TopikLevel,
		item.Source,
		item.Tags,
		item.Notes,
		item.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create item")
	}
	item.ID = id
	return nil
}

// GetItem returns an item by ID
func (s *Store) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	var item models.Item
	err := s.get(ctx, &item, `SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, itemID)
	if err != nil {
		return nil, notFound(err, "failed to get item %d", itemID)
	}
	return &item, nil
}

// FindItemByKorean returns the oldest item with exactly this surface text. An
// empty itemType matches any type.
func (s *Store) FindItemByKorean(ctx context.Context, korean string, itemType models.ItemType) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.korean = ?`
	args := []interface{}{korean}
	if itemType != "" {
		query += ` AND i.item_type = ?`
		args = append(args, itemType)
	}
	query += ` ORDER BY i.id ASC LIMIT 1`

	var item models.Item
	if err := s.get(ctx, &item, query, args...); err != nil {
		return nil, notFound(err, "failed to find item %q", korean)
	}
	return &item, nil
}
