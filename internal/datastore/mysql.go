package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// dsn builds the go-sql-driver connection string.
func (store *MySQLStore) dsn() string {
	s := store.Settings.Output.MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		s.Username, s.Password, s.Host, s.Port, s.Database)
}

// Open connects to the MySQL server and migrates the schema.
func (store *MySQLStore) Open() error {
	s := store.Settings.Output.MySQL

	db, err := gorm.Open(mysql.Open(store.dsn()), newGormConfig())
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", s.Host),
			logger.String("port", s.Port),
			logger.String("database", s.Database),
			logger.Error(err))
		return dbError(err, "open", "critical", "db_type", "mysql", "host", s.Host)
	}

	store.DB = db
	if err := performAutoMigration(db, "mysql"); err != nil {
		return err
	}

	GetLogger().Info("mysql database opened",
		logger.String("host", s.Host),
		logger.String("database", s.Database))
	return nil
}
