package service

import (
	"context"
	"strings"

	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
	"github.com/arvi1709/AI-library/internal/validation"
)

type UserService struct {
	userRepo  repository.UserRepository
	storyRepo repository.StoryRepository
	images    *ImageService
	cache     Cache
	changes   ChangeNotifier
}

type UpdateProfileInput struct {
	UserID uint
	Name   string
	Image  *UploadedFile
}

// PublicProfile is what other readers see of a user.
type PublicProfile struct {
	User           *models.User   `json:"user"`
	FollowersCount int            `json:"followers_count"`
	FollowingCount int            `json:"following_count"`
	Stories        []models.Story `json:"stories"`
}

func NewUserService(
	userRepo repository.UserRepository,
	storyRepo repository.StoryRepository,
	images *ImageService,
	c Cache,
	changes ChangeNotifier,
) *UserService {
	return &UserService{
		userRepo:  userRepo,
		storyRepo: storyRepo,
		images:    images,
		cache:     cacheOrNoop(c),
		changes:   changesOrNoop(changes),
	}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListWithGraph(ctx)
}

// GetMe returns the user with follow and bookmark projections.
func (s *UserService) GetMe(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetWithGraph(ctx, id)
}

// GetProfile returns the public profile: the user, follow counts and only
// their published stories with like counts.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*PublicProfile, error) {
	var profile PublicProfile
	err := s.cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		user, err := s.userRepo.GetWithGraph(ctx, id)
		if err != nil {
			return err
		}
		stories, err := s.storyRepo.ListByAuthor(ctx, id, models.StoryStatusPublished, 0)
		if err != nil {
			return err
		}
		profile = PublicProfile{
			User:           user,
			FollowersCount: len(user.Followers),
			FollowingCount: len(user.Following),
			Stories:        stories,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Followers lists the users following id.
func (s *UserService) Followers(ctx context.Context, id uint) ([]models.User, error) {
	user, err := s.userRepo.GetWithGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListByIDs(ctx, user.Followers)
}

// Following lists the users id follows.
func (s *UserService) Following(ctx context.Context, id uint) ([]models.User, error) {
	user, err := s.userRepo.GetWithGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListByIDs(ctx, user.Following)
}

// UpdateProfile changes the display name and, when given, the profile image.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name != "" {
		if err := validation.ValidateName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = name
	}
	if in.Image != nil && len(in.Image.Content) > 0 {
		url, err := s.images.SaveProfileImage(ctx, user.ID, *in.Image)
		if err != nil {
			return nil, err
		}
		user.ImageURL = url
	}

	if err := s.userRepo.UpdateProfile(ctx, user.ID, user.Name, user.ImageURL); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.ProfileKey(user.ID))
	s.changes.Changed(ctx, CollectionUsers)

	return s.userRepo.GetWithGraph(ctx, user.ID)
}
