// interfaces.go: the relational item store and its shared gorm implementation
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/logger"
)

// slowQueryThreshold is where the gorm adapter starts logging queries at WARN.
const slowQueryThreshold = 200 * time.Millisecond

// Interface abstracts the relational backend.
type Interface interface {
	Open() error
	Close() error
	Ping(ctx context.Context) error

	// items, always through the caller's scope
	ListItems(ctx context.Context, scope Scope) ([]Item, error)
	GetItem(ctx context.Context, scope Scope, id uint) (*Item, error)
	CreateItem(ctx context.Context, scope Scope, item *Item) error
	UpdateItem(ctx context.Context, scope Scope, id uint, update ItemUpdate) (*Item, error)
	DeleteItem(ctx context.Context, scope Scope, id uint) error

	// users
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// DataStore implements Interface on top of an open gorm connection.
type DataStore struct {
	DB *gorm.DB
}

// New returns the store selected by the output settings, or nil when none is enabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// Close closes the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "")
	}
	return nil
}

// Ping checks that the database answers.
func (ds *DataStore) Ping(ctx context.Context) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "ping", "")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping", "")
	}
	return nil
}

func newGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold),
	}
}

// performAutoMigration creates or updates the users and items tables.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	if err := db.AutoMigrate(&User{}, &Item{}); err != nil {
		return dbError(err, "auto_migrate", "high", "db_type", dbType)
	}

	GetLogger().Debug("database migration complete",
		logger.String("db_type", dbType),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}
