package seed

import (
	"testing"

	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_PopulatesGraph(t *testing.T) {
	db := testutil.NewSQLite(t)

	res, err := Seed(db, Options{
		NumUsers:   5,
		NumStories: 12,
		Engagement: 100,
		Factory:    FactoryOptions{SkipBcrypt: true, Seed: 42},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 12, res.Stories)
	// full engagement: every user follows every other user
	assert.Equal(t, 20, res.Follows)

	var users, stories, follows int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Story{}).Count(&stories).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	assert.EqualValues(t, 5, users)
	assert.EqualValues(t, 12, stories)
	assert.EqualValues(t, 20, follows)

	var likes int64
	require.NoError(t, db.Model(&models.StoryLike{}).Count(&likes).Error)
	assert.EqualValues(t, res.Likes, likes)

	var selfLikes int64
	require.NoError(t, db.Table("story_likes").
		Joins("JOIN stories ON stories.id = story_likes.story_id").
		Where("stories.author_id = story_likes.user_id").
		Count(&selfLikes).Error)
	assert.Zero(t, selfLikes)
}

func TestSeed_CleanRemovesPreviousRun(t *testing.T) {
	db := testutil.NewSQLite(t)
	opts := Options{NumUsers: 3, NumStories: 4, Factory: FactoryOptions{SkipBcrypt: true, Seed: 7}}

	_, err := Seed(db, opts)
	require.NoError(t, err)

	opts.ShouldClean = true
	_, err = Seed(db, opts)
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 3, users)
}

func TestSeed_RequiresUsers(t *testing.T) {
	_, err := Seed(nil, Options{})
	require.Error(t, err)
}

func TestFactory_BuildStory(t *testing.T) {
	f := NewFactory(nil, FactoryOptions{MaxDays: 10, Seed: 1})
	author := &models.User{ID: 9, Name: "Asha", ImageURL: "https://img/asha.png"}

	story := f.BuildStory(author, func(s *models.Story) { s.Status = models.StoryStatusPublished })

	assert.Equal(t, uint(9), story.AuthorID)
	assert.Equal(t, "Asha", story.AuthorName)
	assert.Equal(t, "https://img/asha.png", story.AuthorImageURL)
	assert.NotEmpty(t, story.Title)
	assert.NotEmpty(t, story.Content)
	assert.Equal(t, models.StoryStatusPublished, story.Status)
	require.NotEmpty(t, story.Categories)
	for _, c := range story.Categories {
		assert.Contains(t, models.MasterCategories, c)
	}
	assert.WithinDuration(t, story.CreatedAt, story.UpdatedAt, 0)
}

func TestFactory_DryRunAssignsIDs(t *testing.T) {
	f := NewFactory(nil, FactoryOptions{DryRun: true, SkipBcrypt: true})
	u, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	stories := []*models.Story{f.BuildStory(u), f.BuildStory(u)}
	require.NoError(t, f.CreateStoriesBatch(stories))
	assert.NotEqual(t, stories[0].ID, stories[1].ID)
}
