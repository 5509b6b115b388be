package datastore

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// ListItems returns the items visible to scope ordered by id.
func (ds *DataStore) ListItems(ctx context.Context, scope Scope) ([]Item, error) {
	var items []Item
	if err := scope.Apply(ds.DB.WithContext(ctx)).Order("id").Find(&items).Error; err != nil {
		return nil, dbError(err, "list_items", "", "user_id", scope.UserID)
	}
	return items, nil
}

// GetItem returns one item. Items outside the scope are reported as not found.
func (ds *DataStore) GetItem(ctx context.Context, scope Scope, id uint) (*Item, error) {
	var item Item
	err := scope.Apply(ds.DB.WithContext(ctx)).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrItemNotFound, "get_item", id)
	}
	if err != nil {
		return nil, dbError(err, "get_item", "", "item_id", id)
	}
	return &item, nil
}

// CreateItem inserts item owned by the scope's user. Any ID or owner already
// set on item is discarded.
func (ds *DataStore) CreateItem(ctx context.Context, scope Scope, item *Item) error {
	if err := validateItemName(item.Name); err != nil {
		return err
	}

	item.ID = 0
	item.UserID = scope.UserID
	item.User = nil

	if err := ds.DB.WithContext(ctx).Create(item).Error; err != nil {
		return dbError(err, "create_item", "", "user_id", scope.UserID)
	}

	GetLogger().Debug("item created",
		logger.Uint("item_id", item.ID),
		logger.Uint("user_id", item.UserID))
	return nil
}

// UpdateItem applies the non-nil fields of update to an item in scope.
// The owner is never touched.
func (ds *DataStore) UpdateItem(ctx context.Context, scope Scope, id uint, update ItemUpdate) (*Item, error) {
	if update.Name != nil {
		if err := validateItemName(*update.Name); err != nil {
			return nil, err
		}
	}

	var updated *Item
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		err := scope.Apply(tx).First(&item, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(ErrItemNotFound, "update_item", id)
		}
		if err != nil {
			return dbError(err, "update_item", "", "item_id", id)
		}

		changes := map[string]any{}
		if update.Name != nil {
			item.Name = *update.Name
			changes["name"] = item.Name
		}
		if update.Description != nil {
			item.Description = *update.Description
			changes["description"] = item.Description
		}
		if len(changes) > 0 {
			if err := tx.Model(&Item{}).Where("id = ?", item.ID).Updates(changes).Error; err != nil {
				return dbError(err, "update_item", "", "item_id", id)
			}
		}

		updated = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes an item in scope.
func (ds *DataStore) DeleteItem(ctx context.Context, scope Scope, id uint) error {
	result := scope.Apply(ds.DB.WithContext(ctx)).Delete(&Item{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete_item", "", "item_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError(ErrItemNotFound, "delete_item", id)
	}
	return nil
}

func validateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return validationError("name is required", "name", name)
	}
	if utf8.RuneCountInString(name) > MaxItemNameLength {
		return validationError("name must be at most 100 characters", "name", utf8.RuneCountInString(name))
	}
	return nil
}
