package database

import (
	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Story{},
		&models.Comment{},
		&models.LikeRecord{},
		&models.StoryLike{},
		&models.Follow{},
		&models.Bookmark{},
		&models.EmpathyRating{},
		&models.Report{},
		&models.Notification{},
		&models.AccountDeletion{},
		&models.AccountDeletionStep{},
	}
}

// AutoMigrate creates or updates every persistent table. Tests use it against SQLite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}
