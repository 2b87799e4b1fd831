package models

import "time"

// Comment is a reader's response to a story. Comments cannot be edited.
type Comment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StoryID        uint      `gorm:"not null;index" json:"resource_id"`
	AuthorID       uint      `gorm:"not null;index" json:"author_id"`
	AuthorName     string    `gorm:"not null" json:"author_name"`
	AuthorImageURL string    `json:"author_image_url"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `gorm:"index" json:"timestamp"`
}
