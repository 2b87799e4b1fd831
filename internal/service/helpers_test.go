package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
	"github.com/arvi1709/AI-library/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T", err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}

type publishedEvent struct {
	UserID  uint
	Type    string
	Payload interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (r *eventRecorder) PublishEvent(_ context.Context, userID uint, eventType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{UserID: userID, Type: eventType, Payload: payload})
	return r.err
}

func (r *eventRecorder) For(userID uint) []publishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []publishedEvent
	for _, e := range r.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type changeRecorder struct {
	mu  sync.Mutex
	all []string
}

func (r *changeRecorder) Changed(_ context.Context, collections ...string) {
	r.mu.Lock()
	r.all = append(r.all, collections...)
	r.mu.Unlock()
}

func (r *changeRecorder) Seen(collection string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.all {
		if c == collection {
			return true
		}
	}
	return false
}

type sentMail struct {
	To, Kind, Title string
}

type mailStub struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *mailStub) StoryReported(_ context.Context, to, _, title string) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentMail{To: to, Kind: "reported", Title: title})
	m.mu.Unlock()
	return nil
}

func (m *mailStub) AccountDeleted(_ context.Context, to string) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentMail{To: to, Kind: "deleted"})
	m.mu.Unlock()
	return nil
}

type mapCache struct {
	mu          sync.Mutex
	fetches     map[string]int
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{fetches: map[string]int{}}
}

// Aside always fetches and counts the calls per key.
func (c *mapCache) Aside(_ context.Context, key string, _ any, _ time.Duration, fetch func() error) error {
	c.mu.Lock()
	c.fetches[key]++
	c.mu.Unlock()
	return fetch()
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	c.invalidated = append(c.invalidated, keys...)
	c.mu.Unlock()
}

func (c *mapCache) WasInvalidated(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.invalidated {
		if k == key {
			return true
		}
	}
	return false
}

// harness wires every service over one in-memory database.
type harness struct {
	db      *gorm.DB
	store   *testutil.MemoryStore
	images  *ImageService
	events  *eventRecorder
	changes *changeRecorder
	mail    *mailStub
	cache   *mapCache

	users         repository.UserRepository
	storiesRepo   repository.StoryRepository
	comments      repository.CommentRepository
	social        repository.SocialRepository
	empathy       repository.EmpathyRepository
	reports       repository.ReportRepository
	notifications repository.NotificationRepository
	deletions     repository.AccountDeletionRepository

	stories *StoryService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewSQLite(t)
	h := &harness{
		db:            db,
		store:         testutil.NewMemoryStore(),
		events:        &eventRecorder{},
		changes:       &changeRecorder{},
		mail:          &mailStub{},
		cache:         newMapCache(),
		users:         repository.NewUserRepository(db),
		storiesRepo:   repository.NewStoryRepository(db),
		comments:      repository.NewCommentRepository(db),
		social:        repository.NewSocialRepository(db),
		empathy:       repository.NewEmpathyRepository(db),
		reports:       repository.NewReportRepository(db),
		notifications: repository.NewNotificationRepository(db),
		deletions:     repository.NewAccountDeletionRepository(db),
	}
	h.images = NewImageService(h.store, &config.Config{ImageMaxUploadSizeMB: 2})
	h.stories = NewStoryService(h.storiesRepo, h.users, h.social, h.notifications, h.images, h.events, h.cache, h.changes)
	return h
}

func (h *harness) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x", ImageURL: models.DefaultUserImageURL(0)}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

func (h *harness) story(t *testing.T, author *models.User, title string) *models.Story {
	t.Helper()
	s, err := h.stories.CreateStory(context.Background(), CreateStoryInput{
		AuthorID:   author.ID,
		Title:      title,
		Content:    "It was the summer the river rose.",
		Tags:       []string{"memory"},
		Categories: []string{"Personal Narrative"},
	})
	require.NoError(t, err)
	return s
}
