package repository

import (
	"context"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmpathyRepository stores one rating per reader per story.
type EmpathyRepository interface {
	Upsert(ctx context.Context, rating *models.EmpathyRating) error
	ListByStory(ctx context.Context, storyID uint) ([]models.EmpathyRating, error)
	ListAll(ctx context.Context) ([]models.EmpathyRating, error)
}

type empathyRepository struct {
	db *gorm.DB
}

func NewEmpathyRepository(db *gorm.DB) EmpathyRepository {
	return &empathyRepository{db: db}
}

// Upsert writes the rating, replacing any earlier rating by the same reader.
func (r *empathyRepository) Upsert(ctx context.Context, rating *models.EmpathyRating) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "story_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(rating).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *empathyRepository) ListByStory(ctx context.Context, storyID uint) ([]models.EmpathyRating, error) {
	ratings := []models.EmpathyRating{}
	err := r.db.WithContext(ctx).Where("story_id = ?", storyID).Order("updated_at, user_id").Find(&ratings).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ratings, nil
}

func (r *empathyRepository) ListAll(ctx context.Context) ([]models.EmpathyRating, error) {
	ratings := []models.EmpathyRating{}
	if err := r.db.WithContext(ctx).Order("story_id, user_id").Find(&ratings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ratings, nil
}
