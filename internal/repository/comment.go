package repository

import (
	"context"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// commentTick is the smallest step PostgreSQL timestamps can represent.
const commentTick = time.Microsecond

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByStory(ctx context.Context, storyID uint) ([]models.Comment, error)
	ListAll(ctx context.Context) ([]models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts comment, moving its CreatedAt forward if needed so that
// timestamps within a story strictly increase.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx.Model(&models.Story{}).Select("id").Where("id = ?", comment.StoryID)
		if tx.Dialector.Name() == "postgres" {
			lock = lock.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var story models.Story
		if err := lock.Take(&story).Error; err != nil {
			return err
		}

		var last models.Comment
		err := tx.Select("created_at").
			Where("story_id = ?", comment.StoryID).
			Order("created_at DESC").
			Take(&last).Error
		switch {
		case isNotFound(err):
		case err != nil:
			return err
		default:
			if !comment.CreatedAt.After(last.CreatedAt) {
				comment.CreatedAt = last.CreatedAt.Add(commentTick)
			}
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		if isNotFound(err) {
			return models.NewNotFoundMessage("Story not found.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByStory returns a story's comments oldest first.
func (r *commentRepository) ListByStory(ctx context.Context, storyID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) ListAll(ctx context.Context) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
