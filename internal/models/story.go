package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// StoryStatus is the visibility state of a story.
type StoryStatus string

const (
	// StoryStatusPublished stories are visible to everyone.
	StoryStatusPublished StoryStatus = "published"
	// StoryStatusPendingReview stories are saved but not publicly visible.
	StoryStatusPendingReview StoryStatus = "pending_review"
)

// Valid reports whether s is a known status.
func (s StoryStatus) Valid() bool {
	return s == StoryStatusPublished || s == StoryStatusPendingReview
}

// DefaultStoryFileName is recorded for stories that were typed rather than uploaded.
const DefaultStoryFileName = "text-story.txt"

// Story is a narrative authored by a user.
type Story struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	AuthorID         uint                        `gorm:"not null;index" json:"author_id"`
	AuthorName       string                      `gorm:"not null" json:"author_name"`
	AuthorImageURL   string                      `json:"author_image_url"`
	Title            string                      `gorm:"not null" json:"title"`
	ShortDescription string                      `gorm:"type:text" json:"short_description"`
	Content          string                      `gorm:"type:text;not null" json:"content"`
	Summary          string                      `gorm:"type:text" json:"summary"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	Categories       datatypes.JSONSlice[string] `json:"categories"`
	Status           StoryStatus                 `gorm:"type:varchar(20);not null;default:'published';index" json:"status"`
	ImageURL         string                      `json:"image_url"`
	FileName         string                      `json:"file_name"`
	CreatedAt        time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// Liked and Bookmarked are relative to the requesting user
	Liked      bool `gorm:"->;-:migration" json:"liked"`
	Bookmarked bool `gorm:"->;-:migration" json:"bookmarked"`
}

// DefaultStoryImageURL returns the placeholder banner seeded by creation time.
func DefaultStoryImageURL(at time.Time) string {
	return fmt.Sprintf("https://picsum.photos/seed/%d/400/300", at.UnixMilli())
}
