package repository

import (
	"context"
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryRepository_ListOrderAndViewerState(t *testing.T) {
	db := setupSQLite(t)
	stories := NewStoryRepository(db)
	social := NewSocialRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "asha")
	reader := seedUser(t, db, "bilal")
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	older := seedStory(t, db, author, "older", base)
	newer := seedStory(t, db, author, "newer", base.Add(time.Hour))

	_, err := social.ToggleLike(ctx, older.ID, reader.ID)
	require.NoError(t, err)
	_, err = social.ToggleLike(ctx, older.ID, author.ID)
	require.NoError(t, err)
	_, err = social.ToggleBookmark(ctx, reader.ID, newer.ID)
	require.NoError(t, err)

	list, err := stories.List(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")
	assert.True(t, list[0].Bookmarked)
	assert.False(t, list[0].Liked)
	assert.Equal(t, 2, list[1].LikesCount)
	assert.True(t, list[1].Liked)
	assert.Equal(t, []string{"memory"}, []string(list[1].Tags))

	anon, err := stories.GetByID(ctx, older.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, anon.LikesCount)
	assert.False(t, anon.Liked)

	bookmarked, err := stories.ListBookmarked(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, bookmarked, 1)
	assert.Equal(t, newer.ID, bookmarked[0].ID)

	_, err = stories.GetByID(ctx, 9999, 0)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestStoryRepository_ListByAuthorStatus(t *testing.T) {
	db := setupSQLite(t)
	repo := NewStoryRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "asha")
	now := time.Now().UTC()
	seedStory(t, db, author, "public", now)
	draft := seedStory(t, db, author, "draft", now.Add(time.Minute))
	draft.Status = models.StoryStatusPendingReview
	require.NoError(t, repo.Update(ctx, draft))

	published, err := repo.ListByAuthor(ctx, author.ID, models.StoryStatusPublished, 0)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "public", published[0].Title)

	all, err := repo.ListByAuthor(ctx, author.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStoryRepository_DeleteCascades(t *testing.T) {
	db := setupSQLite(t)
	stories := NewStoryRepository(db)
	social := NewSocialRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "asha")
	reader := seedUser(t, db, "bilal")
	s := seedStory(t, db, author, "doomed", time.Now())
	keep := seedStory(t, db, author, "kept", time.Now())

	_, err := social.ToggleLike(ctx, s.ID, reader.ID)
	require.NoError(t, err)
	_, err = social.ToggleBookmark(ctx, reader.ID, s.ID)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, &models.Comment{StoryID: s.ID, AuthorID: reader.ID, AuthorName: "bilal", Text: "hi", CreatedAt: time.Now()}))
	require.NoError(t, NewReportRepository(db).Create(ctx, &models.Report{StoryID: s.ID, StoryTitle: s.Title, ReporterID: reader.ID}))
	require.NoError(t, NewEmpathyRepository(db).Upsert(ctx, &models.EmpathyRating{StoryID: s.ID, UserID: reader.ID, Rating: 70}))

	require.NoError(t, stories.Delete(ctx, s.ID))

	for _, m := range []interface{}{&models.Comment{}, &models.StoryLike{}, &models.LikeRecord{}, &models.Report{}, &models.EmpathyRating{}, &models.Bookmark{}} {
		var n int64
		require.NoError(t, db.Model(m).Where("story_id = ?", s.ID).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
	_, err = stories.GetByID(ctx, keep.ID, 0)
	assert.NoError(t, err)
}
