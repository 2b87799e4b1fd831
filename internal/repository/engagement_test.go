package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpathyRepository_LastWriteWins(t *testing.T) {
	db := setupSQLite(t)
	repo := NewEmpathyRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "asha")
	s := seedStory(t, db, u, "story", time.Now())

	require.NoError(t, repo.Upsert(ctx, &models.EmpathyRating{StoryID: s.ID, UserID: u.ID, Rating: 20, UpdatedAt: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, &models.EmpathyRating{StoryID: s.ID, UserID: u.ID, Rating: 85, UpdatedAt: time.Now()}))

	ratings, err := repo.ListByStory(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 85, ratings[0].Rating)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotificationRepository(t *testing.T) {
	db := setupSQLite(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "asha")

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	batch := []*models.Notification{
		models.NewStoryNotification(u.ID, 1, "bilal", "First", base),
		models.NewStoryNotification(u.ID, 2, "bilal", "Second", base.Add(time.Minute)),
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))
	// Replaying the same ids is a no-op.
	require.NoError(t, repo.CreateBatch(ctx, batch))
	require.NoError(t, repo.CreateBatch(ctx, nil))

	list, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, fmt.Sprintf("2-%d", base.Add(time.Minute).UnixMilli()), list[0].ID, "newest first")
	assert.Equal(t, `bilal published a new story: "Second"`, list[0].Message)

	n, err := repo.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err = repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	for _, item := range list {
		assert.True(t, item.Read)
	}
}

func TestReportRepository(t *testing.T) {
	db := setupSQLite(t)
	repo := NewReportRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Report{StoryID: 1, StoryTitle: "A", ReporterID: 2}))
	require.NoError(t, repo.Create(ctx, &models.Report{StoryID: 1, StoryTitle: "A", ReporterID: 2}))

	reports, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 2, "reports are append-only")
}
