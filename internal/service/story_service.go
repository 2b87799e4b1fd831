package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
	"github.com/arvi1709/AI-library/internal/storage"
)

const (
	maxTitleLen   = 300
	maxContentLen = 200000
)

type StoryService struct {
	storyRepo        repository.StoryRepository
	userRepo         repository.UserRepository
	socialRepo       repository.SocialRepository
	notificationRepo repository.NotificationRepository
	images           *ImageService
	events           EventPublisher
	cache            Cache
	changes          ChangeNotifier
	now              func() time.Time
}

type CreateStoryInput struct {
	AuthorID         uint
	Title            string
	ShortDescription string
	Content          string
	Summary          string
	Tags             []string
	Categories       []string
	Status           models.StoryStatus
	FileName         string
	Image            *UploadedFile
}

// UpdateStoryInput carries a partial update. Nil fields are left unchanged.
type UpdateStoryInput struct {
	UserID           uint
	StoryID          uint
	Title            *string
	ShortDescription *string
	Content          *string
	Summary          *string
	Tags             []string
	Categories       []string
	Status           *models.StoryStatus
	Image            *UploadedFile
}

func NewStoryService(
	storyRepo repository.StoryRepository,
	userRepo repository.UserRepository,
	socialRepo repository.SocialRepository,
	notificationRepo repository.NotificationRepository,
	images *ImageService,
	events EventPublisher,
	c Cache,
	changes ChangeNotifier,
) *StoryService {
	return &StoryService{
		storyRepo:        storyRepo,
		userRepo:         userRepo,
		socialRepo:       socialRepo,
		notificationRepo: notificationRepo,
		images:           images,
		events:           events,
		cache:            cacheOrNoop(c),
		changes:          changesOrNoop(changes),
		now:              time.Now,
	}
}

// StatusForAction maps the edit page's publish and draft actions to a status.
func StatusForAction(action string) (models.StoryStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "publish", string(models.StoryStatusPublished):
		return models.StoryStatusPublished, true
	case "draft", string(models.StoryStatusPendingReview):
		return models.StoryStatusPendingReview, true
	default:
		return "", false
	}
}

func validateStoryText(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 200000 characters)")
	}
	return nil
}

// CreateStory saves a story with the author's snapshot and notifies every follower.
func (s *StoryService) CreateStory(ctx context.Context, in CreateStoryInput) (*models.Story, error) {
	if err := validateStoryText(in.Title, in.Content); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.StoryStatusPublished
	}
	if !status.Valid() {
		return nil, models.NewValidationError("Status must be published or pending_review.")
	}

	author, err := s.userRepo.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	imageURL := models.DefaultStoryImageURL(now)
	if in.Image != nil && len(in.Image.Content) > 0 {
		imageURL, err = s.images.SaveStoryImage(ctx, now, *in.Image)
		if err != nil {
			return nil, err
		}
	}
	fileName := in.FileName
	if fileName == "" {
		fileName = models.DefaultStoryFileName
	}

	story := &models.Story{
		AuthorID:         author.ID,
		AuthorName:       author.DisplayName(),
		AuthorImageURL:   author.ImageURL,
		Title:            strings.TrimSpace(in.Title),
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		Content:          in.Content,
		Summary:          in.Summary,
		Tags:             nonNilStrings(in.Tags),
		Categories:       nonNilStrings(in.Categories),
		Status:           status,
		ImageURL:         imageURL,
		FileName:         fileName,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}

	s.notifyFollowers(ctx, author, story, now)
	s.cache.Invalidate(ctx, cache.ProfileKey(author.ID))
	s.changes.Changed(ctx, CollectionStories)
	return story, nil
}

// notifyFollowers appends a new_story notification for each follower. The
// story is already saved, so failures are logged rather than returned.
func (s *StoryService) notifyFollowers(ctx context.Context, author *models.User, story *models.Story, at time.Time) {
	followers, err := s.socialRepo.FollowerIDs(ctx, author.ID)
	if err != nil {
		slog.WarnContext(ctx, "failed to load followers for story notification", "story_id", story.ID, "error", err)
		return
	}
	if len(followers) == 0 {
		return
	}

	batch := make([]*models.Notification, 0, len(followers))
	for _, fid := range followers {
		batch = append(batch, models.NewStoryNotification(fid, story.ID, story.AuthorName, story.Title, at))
	}
	if err := s.notificationRepo.CreateBatch(ctx, batch); err != nil {
		slog.WarnContext(ctx, "failed to store story notifications", "story_id", story.ID, "error", err)
		return
	}
	if s.events == nil {
		return
	}
	for _, n := range batch {
		if err := s.events.PublishEvent(ctx, n.UserID, EventNotification, n); err != nil {
			slog.WarnContext(ctx, "failed to publish story notification", "user_id", n.UserID, "error", err)
		}
	}
}

// GetStory returns a story card with the viewer's like and bookmark state.
// Anonymous reads are served from cache.
func (s *StoryService) GetStory(ctx context.Context, id, viewerID uint) (*models.Story, error) {
	if viewerID != 0 {
		return s.storyRepo.GetByID(ctx, id, viewerID)
	}
	var story models.Story
	err := s.cache.Aside(ctx, cache.StoryKey(id), &story, cache.StoryTTL, func() error {
		found, err := s.storyRepo.GetByID(ctx, id, 0)
		if err != nil {
			return err
		}
		story = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// ListStories returns every story, newest first.
func (s *StoryService) ListStories(ctx context.Context, viewerID uint) ([]models.Story, error) {
	return s.storyRepo.List(ctx, viewerID)
}

// ListBookmarked returns the stories userID saved.
func (s *StoryService) ListBookmarked(ctx context.Context, userID uint) ([]models.Story, error) {
	return s.storyRepo.ListBookmarked(ctx, userID)
}

// ListByAuthor returns an author's stories. Authors see their own pending
// stories; everyone else only sees published ones.
func (s *StoryService) ListByAuthor(ctx context.Context, authorID, viewerID uint) ([]models.Story, error) {
	status := models.StoryStatusPublished
	if authorID == viewerID {
		status = ""
	}
	return s.storyRepo.ListByAuthor(ctx, authorID, status, viewerID)
}

func (s *StoryService) UpdateStory(ctx context.Context, in UpdateStoryInput) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, in.StoryID, in.UserID)
	if err != nil {
		return nil, err
	}
	if story.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("You are not authorized to edit this story.")
	}

	if in.Title != nil {
		story.Title = strings.TrimSpace(*in.Title)
	}
	if in.ShortDescription != nil {
		story.ShortDescription = strings.TrimSpace(*in.ShortDescription)
	}
	if in.Content != nil {
		story.Content = *in.Content
	}
	if in.Summary != nil {
		story.Summary = *in.Summary
	}
	if in.Tags != nil {
		story.Tags = in.Tags
	}
	if in.Categories != nil {
		story.Categories = in.Categories
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, models.NewValidationError("Status must be published or pending_review.")
		}
		story.Status = *in.Status
	}
	if err := validateStoryText(story.Title, story.Content); err != nil {
		return nil, err
	}

	now := s.now()
	if in.Image != nil && len(in.Image.Content) > 0 {
		url, err := s.images.SaveStoryImage(ctx, now, *in.Image)
		if err != nil {
			return nil, err
		}
		old := story.ImageURL
		story.ImageURL = url
		defer s.deleteImage(ctx, old)
	}
	story.UpdatedAt = now

	if err := s.storyRepo.Update(ctx, story); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.StoryKey(story.ID), cache.ProfileKey(story.AuthorID))
	s.changes.Changed(ctx, CollectionStories)
	return story, nil
}

// DeleteStory removes a story and everything attached to it.
func (s *StoryService) DeleteStory(ctx context.Context, userID, storyID uint) error {
	story, err := s.storyRepo.GetByID(ctx, storyID, userID)
	if err != nil {
		return err
	}
	if story.AuthorID != userID {
		return models.NewForbiddenError("You are not authorized to delete this story.")
	}
	if err := s.storyRepo.Delete(ctx, storyID); err != nil {
		return err
	}
	s.deleteImage(ctx, story.ImageURL)
	s.cache.Invalidate(ctx, cache.StoryKey(storyID), cache.ProfileKey(userID))
	s.changes.Changed(ctx, CollectionStories, CollectionComments, CollectionLikes,
		CollectionReports, CollectionEmpathyRatings, CollectionUsers)
	return nil
}

func (s *StoryService) deleteImage(ctx context.Context, url string) {
	if s.images == nil || url == "" {
		return
	}
	if err := s.images.DeleteByURL(ctx, url); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		slog.WarnContext(ctx, "failed to delete story image", "url", url, "error", err)
	}
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
