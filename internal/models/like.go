package models

import "time"

// LikeRecord marks that a story has been liked at least once. It outlives its
// members: unliking the last user leaves the record with an empty set.
type LikeRecord struct {
	StoryID   uint      `gorm:"primaryKey;autoIncrement:false" json:"story_id"`
	CreatedAt time.Time `json:"created_at"`

	UserIDs []uint `gorm:"-" json:"user_ids"`
}

// StoryLike is one member of a story's like set.
type StoryLike struct {
	StoryID   uint      `gorm:"primaryKey;autoIncrement:false" json:"story_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasUser reports whether userID is in the like set.
func (r *LikeRecord) HasUser(userID uint) bool {
	if r == nil {
		return false
	}
	for _, id := range r.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
