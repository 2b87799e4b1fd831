// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"strings"
	"time"
)

// User is a registered storyteller.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	ImageURL     string    `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Projections filled by the repository; never persisted on this row.
	Followers []uint `gorm:"-" json:"followers"`
	Following []uint `gorm:"-" json:"following"`
	Bookmarks []uint `gorm:"-" json:"bookmarks"`
}

// DefaultUserImageURL returns the placeholder avatar used until a user uploads one.
func DefaultUserImageURL(id uint) string {
	return fmt.Sprintf("https://picsum.photos/seed/%d/200/200", id)
}

// DisplayName is the name used when snapshotting the user onto comments and stories.
func (u *User) DisplayName() string {
	if u == nil {
		return "Anonymous"
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	if u.Email != "" {
		return u.Email
	}
	return "Anonymous"
}
