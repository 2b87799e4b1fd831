package models

import "time"

// Bounds of an empathy rating.
const (
	EmpathyMin = 0
	EmpathyMax = 100
)

// EmpathyRating is one reader's 0-100 score for a story. A reader holds at
// most one rating per story; rating again replaces it.
type EmpathyRating struct {
	StoryID   uint      `gorm:"primaryKey;autoIncrement:false" json:"story_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmpathySummary aggregates the ratings of a single story.
type EmpathySummary struct {
	StoryID uint            `json:"story_id"`
	Ratings []EmpathyRating `json:"ratings"`
	Average float64         `json:"average"`
}
