package models

import "time"

// Follow is a directed edge in the follow graph. A user's followers and
// following lists are both read from this one table.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FolloweeID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// Bookmark records a story saved by a user.
type Bookmark struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	StoryID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"story_id"`
	CreatedAt time.Time `json:"created_at"`
}
