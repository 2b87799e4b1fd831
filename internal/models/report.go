package models

import "time"

// Report flags a story for moderators. Reports are append-only.
type Report struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StoryID    uint      `gorm:"not null;index" json:"resource_id"`
	StoryTitle string    `json:"resource_title"`
	ReporterID uint      `gorm:"not null;index" json:"reporter_id"`
	CreatedAt  time.Time `json:"timestamp"`
}
