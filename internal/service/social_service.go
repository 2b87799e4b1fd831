package service

import (
	"context"

	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/observability"
	"github.com/arvi1709/AI-library/internal/repository"
)

// SocialService toggles follows, likes and bookmarks. Every toggle is a single
// membership insert or delete in the repository, so concurrent toggles by
// different users never overwrite each other.
type SocialService struct {
	socialRepo repository.SocialRepository
	userRepo   repository.UserRepository
	storyRepo  repository.StoryRepository
	cache      Cache
	changes    ChangeNotifier
}

// FollowState is the result of a follow toggle.
type FollowState struct {
	UserID    uint `json:"user_id"`
	Following bool `json:"following"`
}

// BookmarkState is the result of a bookmark toggle.
type BookmarkState struct {
	StoryID    uint `json:"story_id"`
	Bookmarked bool `json:"bookmarked"`
}

func NewSocialService(
	socialRepo repository.SocialRepository,
	userRepo repository.UserRepository,
	storyRepo repository.StoryRepository,
	c Cache,
	changes ChangeNotifier,
) *SocialService {
	return &SocialService{
		socialRepo: socialRepo,
		userRepo:   userRepo,
		storyRepo:  storyRepo,
		cache:      cacheOrNoop(c),
		changes:    changesOrNoop(changes),
	}
}

func (s *SocialService) ToggleFollow(ctx context.Context, actorID, targetID uint) (*FollowState, error) {
	if actorID == targetID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	following, err := s.socialRepo.ToggleFollow(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	observability.SocialToggles.WithLabelValues("follow", toggleState(following)).Inc()

	s.cache.Invalidate(ctx, cache.ProfileKey(actorID), cache.ProfileKey(targetID))
	s.changes.Changed(ctx, CollectionUsers)
	return &FollowState{UserID: targetID, Following: following}, nil
}

// ToggleLike flips the actor's membership in the story's like set and returns
// the record after the change.
func (s *SocialService) ToggleLike(ctx context.Context, actorID, storyID uint) (*models.LikeRecord, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID, 0)
	if err != nil {
		return nil, err
	}

	record, err := s.socialRepo.ToggleLike(ctx, storyID, actorID)
	if err != nil {
		return nil, err
	}
	observability.SocialToggles.WithLabelValues("like", toggleState(record.HasUser(actorID))).Inc()

	s.cache.Invalidate(ctx, cache.StoryKey(storyID), cache.ProfileKey(story.AuthorID))
	s.changes.Changed(ctx, CollectionLikes, CollectionStories)
	return record, nil
}

func (s *SocialService) ToggleBookmark(ctx context.Context, actorID, storyID uint) (*BookmarkState, error) {
	if _, err := s.storyRepo.GetByID(ctx, storyID, 0); err != nil {
		return nil, err
	}

	bookmarked, err := s.socialRepo.ToggleBookmark(ctx, actorID, storyID)
	if err != nil {
		return nil, err
	}
	observability.SocialToggles.WithLabelValues("bookmark", toggleState(bookmarked)).Inc()

	s.changes.Changed(ctx, CollectionUsers)
	return &BookmarkState{StoryID: storyID, Bookmarked: bookmarked}, nil
}

// Likes returns the story's like record, empty if nobody has liked it yet.
func (s *SocialService) Likes(ctx context.Context, storyID uint) (*models.LikeRecord, error) {
	return s.socialRepo.GetLikeRecord(ctx, storyID)
}

func toggleState(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
