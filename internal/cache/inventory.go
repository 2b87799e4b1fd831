package cache

import (
	"fmt"
	"time"
)

const (
	StoryKeyPrefix   = "story:%d"
	ProfileKeyPrefix = "profile:%d"
)

const (
	StoryTTL   = 10 * time.Minute
	ProfileTTL = 5 * time.Minute
)

func StoryKey(storyID uint) string {
	return fmt.Sprintf(StoryKeyPrefix, storyID)
}

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}
