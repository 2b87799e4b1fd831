package service

import (
	"context"
	"testing"

	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommentService(t *testing.T, h *harness) *CommentService {
	t.Helper()
	filter, err := validation.ParseWordlist([]byte(`words = ["darn"]`))
	require.NoError(t, err)
	return NewCommentService(h.comments, h.users, filter, h.changes)
}

func TestCommentService_AddComment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := newCommentService(t, h)
	author := h.user(t, "meera")
	story := h.story(t, author, "Kitchen")

	t.Run("profanity is rejected before anything is written", func(t *testing.T) {
		_, err := svc.AddComment(ctx, CreateCommentInput{UserID: author.ID, StoryID: story.ID, Text: "well D4RN it"})
		assertValidationError(t, err)
		assert.Equal(t, validation.ProfanityMessage, err.Error())

		list, err := svc.ListComments(ctx, story.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := svc.AddComment(ctx, CreateCommentInput{UserID: author.ID, StoryID: story.ID, Text: "   "})
		assertValidationError(t, err)
	})

	t.Run("clean text is stored exactly as typed", func(t *testing.T) {
		c, err := svc.AddComment(ctx, CreateCommentInput{UserID: author.ID, StoryID: story.ID, Text: "  so true \n"})
		require.NoError(t, err)
		assert.Equal(t, "  so true \n", c.Text)

		list, err := svc.ListComments(ctx, story.ID)
		require.NoError(t, err)
		require.NotEmpty(t, list)
		assert.Equal(t, "  so true \n", list[len(list)-1].Text)
	})

	t.Run("unknown story", func(t *testing.T) {
		_, err := svc.AddComment(ctx, CreateCommentInput{UserID: author.ID, StoryID: 404, Text: "hello"})
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("author name falls back to the email local part", func(t *testing.T) {
		nameless := &models.User{Email: "quiet.reader@example.com", PasswordHash: "x"}
		require.NoError(t, h.users.Create(ctx, nameless))

		c, err := svc.AddComment(ctx, CreateCommentInput{UserID: nameless.ID, StoryID: story.ID, Text: "Beautiful."})
		require.NoError(t, err)
		assert.Equal(t, "quiet.reader", c.AuthorName)
		assert.True(t, h.changes.Seen(CollectionComments))
	})

	t.Run("timestamps strictly increase within a story", func(t *testing.T) {
		first, err := svc.AddComment(ctx, CreateCommentInput{UserID: author.ID, StoryID: story.ID, Text: "one"})
		require.NoError(t, err)
		second, err := svc.AddComment(ctx, CreateCommentInput{UserID: author.ID, StoryID: story.ID, Text: "two"})
		require.NoError(t, err)
		assert.True(t, second.CreatedAt.After(first.CreatedAt))
	})
}

func TestCommentService_DeleteCommentRequiresOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := newCommentService(t, h)
	author := h.user(t, "meera")
	other := h.user(t, "arjun")
	story := h.story(t, author, "Kitchen")

	c, err := svc.AddComment(ctx, CreateCommentInput{UserID: author.ID, StoryID: story.ID, Text: "mine"})
	require.NoError(t, err)

	_, err = svc.DeleteComment(ctx, DeleteCommentInput{UserID: other.ID, CommentID: c.ID})
	assertCode(t, err, models.CodeForbidden)

	deleted, err := svc.DeleteComment(ctx, DeleteCommentInput{UserID: author.ID, CommentID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted.ID)

	_, err = svc.DeleteComment(ctx, DeleteCommentInput{UserID: author.ID, CommentID: c.ID})
	assertCode(t, err, models.CodeNotFound)
}

func TestSocialService_Toggles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewSocialService(h.social, h.users, h.storiesRepo, h.cache, h.changes)
	author := h.user(t, "meera")
	reader := h.user(t, "arjun")
	story := h.story(t, author, "Lanterns")

	t.Run("self follow is rejected", func(t *testing.T) {
		_, err := svc.ToggleFollow(ctx, reader.ID, reader.ID)
		assertValidationError(t, err)
	})

	t.Run("follow twice restores the graph", func(t *testing.T) {
		state, err := svc.ToggleFollow(ctx, reader.ID, author.ID)
		require.NoError(t, err)
		assert.True(t, state.Following)
		assert.True(t, h.cache.WasInvalidated(cache.ProfileKey(author.ID)))

		state, err = svc.ToggleFollow(ctx, reader.ID, author.ID)
		require.NoError(t, err)
		assert.False(t, state.Following)

		followers, err := h.social.FollowerIDs(ctx, author.ID)
		require.NoError(t, err)
		assert.Empty(t, followers)
	})

	t.Run("like twice keeps an empty record", func(t *testing.T) {
		record, err := svc.ToggleLike(ctx, reader.ID, story.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{reader.ID}, record.UserIDs)

		record, err = svc.ToggleLike(ctx, reader.ID, story.ID)
		require.NoError(t, err)
		assert.Empty(t, record.UserIDs)

		again, err := svc.Likes(ctx, story.ID)
		require.NoError(t, err)
		assert.Equal(t, story.ID, again.StoryID)
		assert.Empty(t, again.UserIDs)
	})

	t.Run("bookmark toggles", func(t *testing.T) {
		state, err := svc.ToggleBookmark(ctx, reader.ID, story.ID)
		require.NoError(t, err)
		assert.True(t, state.Bookmarked)

		saved, err := h.stories.ListBookmarked(ctx, reader.ID)
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.True(t, saved[0].Bookmarked)

		state, err = svc.ToggleBookmark(ctx, reader.ID, story.ID)
		require.NoError(t, err)
		assert.False(t, state.Bookmarked)
	})

	t.Run("missing story", func(t *testing.T) {
		_, err := svc.ToggleLike(ctx, reader.ID, 777)
		assertCode(t, err, models.CodeNotFound)
	})
}

func TestEmpathyService_RateAndSummarize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewEmpathyService(h.empathy, h.storiesRepo, h.changes)
	author := h.user(t, "meera")
	a := h.user(t, "arjun")
	b := h.user(t, "lena")
	story := h.story(t, author, "Rain")

	for _, bad := range []int{-1, 101} {
		_, err := svc.Rate(ctx, a.ID, story.ID, bad)
		assertValidationError(t, err)
	}

	empty, err := svc.Summary(ctx, story.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.Average)
	assert.Empty(t, empty.Ratings)

	_, err = svc.Rate(ctx, a.ID, story.ID, 20)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, a.ID, story.ID, 60)
	require.NoError(t, err)
	summary, err := svc.Rate(ctx, b.ID, story.ID, 100)
	require.NoError(t, err)

	assert.Len(t, summary.Ratings, 2, "a reader holds one rating per story")
	assert.InDelta(t, 80.0, summary.Average, 0.001)
	assert.True(t, h.changes.Seen(CollectionEmpathyRatings))
}

func TestReportService_ReportContentNotifiesAuthor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewReportService(h.reports, h.storiesRepo, h.users, h.notifications, h.events, h.mail, h.changes)
	author := h.user(t, "meera")
	reporter := h.user(t, "arjun")
	story := h.story(t, author, "Contested")

	report, err := svc.ReportContent(ctx, reporter.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, "Contested", report.StoryTitle)

	inbox, err := h.notifications.ListByUser(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationStoryReported, inbox[0].Type)
	assert.Equal(t, `Your story "Contested" has been reported.`, inbox[0].Message)

	require.Len(t, h.events.For(author.ID), 1)
	require.Len(t, h.mail.sent, 1)
	assert.Equal(t, sentMail{To: "meera@example.com", Kind: "reported", Title: "Contested"}, h.mail.sent[0])

	all, err := svc.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.ReportContent(ctx, reporter.ID, 31337)
	assertCode(t, err, models.CodeNotFound)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewNotificationService(h.notifications, h.events)
	author := h.user(t, "meera")
	reader := h.user(t, "arjun")
	_, err := h.social.ToggleFollow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	h.story(t, author, "First")
	h.story(t, author, "Second")

	list, err := svc.ListNotifications(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, `meera published a new story: "Second"`, list[0].Message, "newest first")

	n, err := svc.MarkAllRead(ctx, reader.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = svc.MarkAllRead(ctx, reader.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	var reads int
	for _, e := range h.events.For(reader.ID) {
		if e.Type == EventNotificationsRead {
			reads++
		}
	}
	assert.Equal(t, 1, reads)
}
