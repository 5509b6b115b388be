package datastore

import "gorm.io/gorm"

// Scope is the owner-scoped queryset of one caller. Every item read and write
// goes through it, so rows owned by someone else behave as if they did not exist.
type Scope struct {
	UserID    uint
	Superuser bool
}

// Apply restricts db to the rows visible to the scope.
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	if s.Superuser {
		return db
	}
	return db.Where("user_id = ?", s.UserID)
}
