package repository

import (
	"context"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
)

// StoryRepository defines the interface for story data operations
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Story, error)
	List(ctx context.Context, viewerID uint) ([]models.Story, error)
	ListByAuthor(ctx context.Context, authorID uint, status models.StoryStatus, viewerID uint) ([]models.Story, error)
	ListBookmarked(ctx context.Context, userID uint) ([]models.Story, error)
	ListAll(ctx context.Context) ([]models.Story, error)
	Update(ctx context.Context, story *models.Story) error
	Delete(ctx context.Context, id uint) error
}

type storyRepository struct {
	db *gorm.DB
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	if err := r.db.WithContext(ctx).Create(story).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *storyRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Story, error) {
	var story models.Story
	err := applyStoryDetails(r.db.WithContext(ctx), viewerID).
		Where("stories.id = ?", id).
		Take(&story).Error
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundMessage("Story not found.")
		}
		return nil, models.NewInternalError(err)
	}
	return &story, nil
}

// List returns every story, newest first, with like counts and the viewer's state.
func (r *storyRepository) List(ctx context.Context, viewerID uint) ([]models.Story, error) {
	stories := []models.Story{}
	err := applyStoryDetails(r.db.WithContext(ctx), viewerID).
		Order("stories.created_at DESC, stories.id DESC").
		Find(&stories).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

// ListByAuthor returns an author's stories; an empty status matches every status.
func (r *storyRepository) ListByAuthor(ctx context.Context, authorID uint, status models.StoryStatus, viewerID uint) ([]models.Story, error) {
	stories := []models.Story{}
	q := applyStoryDetails(r.db.WithContext(ctx), viewerID).
		Where("stories.author_id = ?", authorID)
	if status != "" {
		q = q.Where("stories.status = ?", status)
	}
	if err := q.Order("stories.created_at DESC, stories.id DESC").Find(&stories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

func (r *storyRepository) ListBookmarked(ctx context.Context, userID uint) ([]models.Story, error) {
	stories := []models.Story{}
	err := applyStoryDetails(r.db.WithContext(ctx), userID).
		Joins("JOIN bookmarks ON bookmarks.story_id = stories.id AND bookmarks.user_id = ?", userID).
		Order("stories.created_at DESC, stories.id DESC").
		Find(&stories).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

// ListAll returns the raw stories collection for sync snapshots.
func (r *storyRepository) ListAll(ctx context.Context) ([]models.Story, error) {
	stories := []models.Story{}
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&stories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

func (r *storyRepository) Update(ctx context.Context, story *models.Story) error {
	err := r.db.WithContext(ctx).Model(story).
		Select("title", "short_description", "content", "summary", "tags", "categories", "status", "image_url", "file_name", "updated_at").
		Updates(story).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes a story and everything that hangs off it in one transaction.
func (r *storyRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return purgeStories(tx, []uint{id})
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// applyStoryDetails adds subqueries to fetch counts and viewer state in a single query.
func applyStoryDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "stories.*, " +
		"(SELECT COUNT(*) FROM story_likes WHERE story_likes.story_id = stories.id) AS likes_count"

	if viewerID != 0 {
		return db.Model(&models.Story{}).Select(selectQuery+
			", EXISTS(SELECT 1 FROM story_likes WHERE story_likes.story_id = stories.id AND story_likes.user_id = ?) AS liked"+
			", EXISTS(SELECT 1 FROM bookmarks WHERE bookmarks.story_id = stories.id AND bookmarks.user_id = ?) AS bookmarked",
			viewerID, viewerID)
	}
	return db.Model(&models.Story{}).Select(selectQuery + ", false AS liked, false AS bookmarked")
}

// purgeStories deletes stories with their comments, likes, reports, ratings and bookmarks.
func purgeStories(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	for _, m := range []interface{}{
		&models.Comment{},
		&models.StoryLike{},
		&models.LikeRecord{},
		&models.Report{},
		&models.EmpathyRating{},
		&models.Bookmark{},
	} {
		if err := tx.Where("story_id IN ?", ids).Delete(m).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", ids).Delete(&models.Story{}).Error
}
