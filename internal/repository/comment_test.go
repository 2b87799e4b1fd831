package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListByStory_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE story_id = $1 ORDER BY created_at ASC, id ASC`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "author_id"}).
			AddRow(1, "Comment 1", 101).
			AddRow(2, "Comment 2", 102))

	comments, err := repo.ListByStory(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, comments, 2)
	assert.Equal(t, "Comment 1", comments[0].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_TimestampsStrictlyIncrease(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "asha")
	s := seedStory(t, db, author, "story", time.Now())
	frozen := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		c := &models.Comment{StoryID: s.ID, AuthorID: author.ID, AuthorName: "asha", Text: "same instant", CreatedAt: frozen}
		require.NoError(t, repo.Create(ctx, c))
	}

	list, err := repo.ListByStory(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "comment %d must be later than %d", i, i-1)
	}
}

func TestCommentRepository_UnknownStory(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)

	err := repo.Create(context.Background(), &models.Comment{StoryID: 404, AuthorID: 1, AuthorName: "x", Text: "hi", CreatedAt: time.Now()})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCommentRepository_GetAndDelete(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "asha")
	s := seedStory(t, db, author, "story", time.Now())

	c := &models.Comment{StoryID: s.ID, AuthorID: author.ID, AuthorName: "asha", Text: "hello", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
