// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an author or reader on BlogMe.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Bio       string         `json:"bio"`
	Avatar    string         `json:"avatar"`
	IsAdmin   bool           `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Identity is the acting user for a mutation. A nil *Identity means the
// caller is not authenticated.
type Identity struct {
	UserID  uint
	IsAdmin bool
}

// NewIdentity returns an identity for the given user.
func NewIdentity(userID uint, isAdmin bool) *Identity {
	return &Identity{UserID: userID, IsAdmin: isAdmin}
}
