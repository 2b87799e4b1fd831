package models

import (
	"fmt"
	"time"
)

// NotificationType tags what a notification is about.
type NotificationType string

const (
	NotificationNewStory      NotificationType = "new_story"
	NotificationStoryReported NotificationType = "story_reported"
)

// Notification is an entry in a user's inbox.
type Notification struct {
	ID             string           `gorm:"primaryKey;size:96" json:"id"`
	UserID         uint             `gorm:"primaryKey;autoIncrement:false;index:idx_notifications_user_created,priority:1" json:"-"`
	Type           NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Message        string           `gorm:"type:text;not null" json:"message"`
	RelatedStoryID uint             `json:"related_story_id,omitempty"`
	Read           bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt      time.Time        `gorm:"index:idx_notifications_user_created,priority:2" json:"timestamp"`
}

// NewStoryNotification builds the notice a follower receives when storyID is published.
func NewStoryNotification(followerID, storyID uint, authorName, title string, at time.Time) *Notification {
	return &Notification{
		ID:             fmt.Sprintf("%d-%d", storyID, at.UnixMilli()),
		UserID:         followerID,
		Type:           NotificationNewStory,
		Message:        fmt.Sprintf("%s published a new story: \"%s\"", authorName, title),
		RelatedStoryID: storyID,
		CreatedAt:      at,
	}
}

// StoryReportedNotification builds the notice an author receives when their story is reported.
func StoryReportedNotification(authorID, storyID uint, title string, at time.Time) *Notification {
	return &Notification{
		ID:             fmt.Sprintf("%d-report-%d", storyID, at.UnixMilli()),
		UserID:         authorID,
		Type:           NotificationStoryReported,
		Message:        fmt.Sprintf("Your story \"%s\" has been reported.", title),
		RelatedStoryID: storyID,
		CreatedAt:      at,
	}
}
