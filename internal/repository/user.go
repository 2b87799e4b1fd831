// Package repository implements the data access layer for the application.
package repository

import (
	"context"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetWithGraph(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, name, imageURL string) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]models.User, error)
	ListWithGraph(ctx context.Context) ([]models.User, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetWithGraph loads a user with follower, following and bookmark ids filled in.
func (r *userRepository) GetWithGraph(ctx context.Context, id uint) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	users := []models.User{*user}
	if err := r.attachGraph(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("An account with this email already exists.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, name, imageURL string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "image_url": imageURL})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListWithGraph returns every user with their follow and bookmark projections.
func (r *userRepository) ListWithGraph(ctx context.Context) ([]models.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.attachGraph(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// attachGraph fills the follow and bookmark projections of users in place.
func (r *userRepository) attachGraph(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]uint, len(users))
	index := make(map[uint]int, len(users))
	for i := range users {
		ids[i] = users[i].ID
		index[users[i].ID] = i
		users[i].Followers = []uint{}
		users[i].Following = []uint{}
		users[i].Bookmarks = []uint{}
	}

	var edges []models.Follow
	if err := r.db.WithContext(ctx).
		Where("follower_id IN ? OR followee_id IN ?", ids, ids).
		Order("created_at, follower_id, followee_id").
		Find(&edges).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, e := range edges {
		if i, ok := index[e.FolloweeID]; ok {
			users[i].Followers = append(users[i].Followers, e.FollowerID)
		}
		if i, ok := index[e.FollowerID]; ok {
			users[i].Following = append(users[i].Following, e.FolloweeID)
		}
	}

	var marks []models.Bookmark
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Order("created_at, story_id").
		Find(&marks).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, b := range marks {
		if i, ok := index[b.UserID]; ok {
			users[i].Bookmarks = append(users[i].Bookmarks, b.StoryID)
		}
	}
	return nil
}
