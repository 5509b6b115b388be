// Package datastore provides error handling helpers for database operations
package datastore

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/tphakala/itemstore/internal/errors"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Sentinel errors wrapped by the categorized errors this package returns.
var (
	ErrItemNotFound  = errors.NewStd("item not found")
	ErrUserNotFound  = errors.NewStd("user not found")
	ErrDuplicateUser = errors.NewStd("username already exists")
)

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError wraps a sentinel in a not-found error. These are never reported to telemetry.
func notFoundError(sentinel error, operation string, id any) error {
	return errors.New(sentinel).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("operation", operation).
		Context("id", fmt.Sprintf("%v", id)).
		Build()
}

// validationError creates a validation error for a rejected field value
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// conflictError wraps a sentinel in a conflict error.
func conflictError(sentinel error, operation string, cause error) error {
	return errors.New(fmt.Errorf("%w: %w", sentinel, cause)).
		Component("datastore").
		Category(errors.CategoryConflict).
		Context("operation", operation).
		Build()
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either supported driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}
