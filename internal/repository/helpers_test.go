package repository

import (
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/database"
	"github.com/arvi1709/AI-library/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLite returns a fresh in-memory database with the full schema.
func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedStory(t *testing.T, db *gorm.DB, author *models.User, title string, at time.Time) *models.Story {
	t.Helper()
	s := &models.Story{
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Title:      title,
		Content:    "Once upon a time",
		Tags:       []string{"memory"},
		Categories: []string{"Personal Narrative"},
		Status:     models.StoryStatusPublished,
		ImageURL:   "/media/story_images/1_" + title + ".png",
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}
