package service

import (
	"context"
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/storage"
	"github.com/arvi1709/AI-library/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type authFixture struct {
	h       *harness
	svc     *AuthService
	tokens  *auth.TokenManager
	revoked *auth.RedisRevocations
	tickets *auth.Tickets
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t)
	f := &authFixture{
		h:       h,
		tokens:  auth.NewTokenManager(testSecret, time.Hour, nil),
		revoked: auth.NewRedisRevocations(rdb),
		tickets: auth.NewTickets(rdb),
	}
	f.svc = NewAuthService(h.users, f.tokens, f.revoked, f.tickets, h.images, h.changes)
	return f
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, SignupInput{Name: "Meera", Email: " Meera@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "meera@example.com", res.User.Email)
	assert.Equal(t, models.DefaultUserImageURL(res.User.ID), res.User.ImageURL)
	assert.True(t, f.h.changes.Seen(CollectionUsers))

	session, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, session.UserID)
	assert.True(t, session.RecentlyAuthenticated(time.Now(), time.Minute))

	_, err = f.svc.Signup(ctx, SignupInput{Name: "Other", Email: "meera@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeConflict)

	_, err = f.svc.Login(ctx, "meera@example.com", "wrong-password")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = f.svc.Login(ctx, "nobody@example.com", "secret1")
	assertCode(t, err, models.CodeUnauthorized)
	assert.Contains(t, err.Error(), "Invalid email or password.")

	again, err := f.svc.Login(ctx, "MEERA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
}

func TestAuthService_SignupValidation(t *testing.T) {
	f := newAuthFixture(t)
	tests := []struct {
		name string
		in   SignupInput
	}{
		{"missing name", SignupInput{Email: "a@b.co", Password: "secret1"}},
		{"bad email", SignupInput{Name: "A", Email: "not-an-email", Password: "secret1"}},
		{"short password", SignupInput{Name: "A", Email: "a@b.co", Password: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(context.Background(), tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestAuthService_SignupWithProfileImage(t *testing.T) {
	f := newAuthFixture(t)
	res, err := f.svc.Signup(context.Background(), SignupInput{
		Name:     "Lena",
		Email:    "lena@example.com",
		Password: "secret1",
		Image:    &UploadedFile{Filename: "me.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 80, 60)},
	})
	require.NoError(t, err)
	assert.True(t, f.h.store.Has(storage.ProfileImageKey(res.User.ID)))
}

func TestAuthService_RefreshKeepsAuthTimeAndRevokesOldToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res, err := f.svc.Signup(ctx, SignupInput{Name: "Meera", Email: "meera@example.com", Password: "secret1"})
	require.NoError(t, err)
	old, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, old)
	require.NoError(t, err)
	next, err := f.tokens.Parse(refreshed.Token)
	require.NoError(t, err)
	assert.NotEqual(t, old.TokenID, next.TokenID)
	assert.WithinDuration(t, old.AuthTime, next.AuthTime, time.Second)

	revoked, err := f.revoked.IsRevoked(ctx, old.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, f.svc.Logout(ctx, next))
	revoked, err = f.revoked.IsRevoked(ctx, next.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_WebSocketTicketIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	session := &auth.Session{UserID: 7, TokenID: "t7", ExpiresAt: time.Now().Add(time.Hour)}

	ticket, err := f.svc.WebSocketTicket(ctx, session)
	require.NoError(t, err)

	got, err := f.tickets.Redeem(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.UserID)

	_, err = f.tickets.Redeem(ctx, ticket)
	assert.ErrorIs(t, err, auth.ErrTicketInvalid)
}

func TestUserService_ProfileAndUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewUserService(h.users, h.storiesRepo, h.images, h.cache, h.changes)
	author := h.user(t, "meera")
	reader := h.user(t, "arjun")
	h.story(t, author, "Visible")
	_, err := h.stories.CreateStory(ctx, CreateStoryInput{
		AuthorID: author.ID, Title: "Hidden", Content: "x", Status: models.StoryStatusPendingReview,
	})
	require.NoError(t, err)
	_, err = h.social.ToggleFollow(ctx, reader.ID, author.ID)
	require.NoError(t, err)

	profile, err := svc.GetProfile(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.FollowersCount)
	assert.Equal(t, 0, profile.FollowingCount)
	require.Len(t, profile.Stories, 1)
	assert.Equal(t, "Visible", profile.Stories[0].Title)

	followers, err := svc.Followers(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, reader.ID, followers[0].ID)

	following, err := svc.Following(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, author.ID, following[0].ID)

	updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID: author.ID,
		Name:   "Meera K",
		Image:  &UploadedFile{Filename: "a.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 20, 20)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Meera K", updated.Name)
	assert.Contains(t, updated.ImageURL, storage.ProfileImageKey(author.ID))
	assert.Equal(t, []uint{reader.ID}, updated.Followers)
	assert.True(t, h.cache.WasInvalidated(cache.ProfileKey(author.ID)))

	_, err = svc.GetProfile(ctx, 4242)
	assertCode(t, err, models.CodeNotFound)
}
