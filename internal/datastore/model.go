package datastore

import "time"

// MaxItemNameLength is the column size of items.name.
const MaxItemNameLength = 100

// User is an account that owns items.
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"size:150;uniqueIndex;not null"`
	Email        string    `gorm:"size:254;index"`
	PasswordHash string    `gorm:"size:255;not null"`
	IsSuperuser  bool      `gorm:"not null"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item is the table-backed record. UserID is the owner and never changes after creation.
type Item struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"index;not null" json:"-"`
	User        *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// ItemUpdate carries the fields of a partial update. Nil fields keep their stored value.
type ItemUpdate struct {
	Name        *string
	Description *string
}
