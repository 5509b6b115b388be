package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/logger"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open creates the database file if needed, enables foreign keys and migrates the schema.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.SQLite.Path
	if path != ":memory:" {
		path = conf.GetBasePath(path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), newGormConfig())
	if err != nil {
		return dbError(err, "open", "critical", "db_type", "sqlite", "path", path)
	}

	// one connection keeps ":memory:" databases alive and serializes writers
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open", "critical", "db_type", "sqlite")
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	if err := performAutoMigration(db, "sqlite"); err != nil {
		return err
	}

	GetLogger().Info("sqlite database opened", logger.String("path", path))
	return nil
}
