package datastore

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// CreateUser inserts a user. A taken username is a conflict error wrapping ErrDuplicateUser.
func (ds *DataStore) CreateUser(ctx context.Context, user *User) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return validationError("username is required", "username", user.Username)
	}
	if len(user.Username) > 150 {
		return validationError("username must be at most 150 characters", "username", len(user.Username))
	}

	if err := ds.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return conflictError(ErrDuplicateUser, "create_user", err)
		}
		return dbError(err, "create_user", "")
	}

	GetLogger().Info("user created",
		logger.Uint("user_id", user.ID),
		logger.String("username", user.Username),
		logger.Bool("superuser", user.IsSuperuser))
	return nil
}

// GetUserByID returns the user with the given primary key.
func (ds *DataStore) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	err := ds.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrUserNotFound, "get_user", id)
	}
	if err != nil {
		return nil, dbError(err, "get_user", "", "user_id", id)
	}
	return &user, nil
}

// GetUserByUsername returns the user with the given username.
func (ds *DataStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := ds.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrUserNotFound, "get_user_by_username", username)
	}
	if err != nil {
		return nil, dbError(err, "get_user_by_username", "")
	}
	return &user, nil
}

// CountUsers returns the number of accounts.
func (ds *DataStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := ds.DB.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_users", "")
	}
	return count, nil
}
