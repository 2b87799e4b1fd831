package service

import (
	"context"
	"fmt"
	"time"

	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
)

type EmpathyService struct {
	empathyRepo repository.EmpathyRepository
	storyRepo   repository.StoryRepository
	changes     ChangeNotifier
	now         func() time.Time
}

func NewEmpathyService(
	empathyRepo repository.EmpathyRepository,
	storyRepo repository.StoryRepository,
	changes ChangeNotifier,
) *EmpathyService {
	return &EmpathyService{
		empathyRepo: empathyRepo,
		storyRepo:   storyRepo,
		changes:     changesOrNoop(changes),
		now:         time.Now,
	}
}

// Rate records the reader's rating for a story, replacing any earlier one.
func (s *EmpathyService) Rate(ctx context.Context, userID, storyID uint, rating int) (*models.EmpathySummary, error) {
	if rating < models.EmpathyMin || rating > models.EmpathyMax {
		return nil, models.NewValidationError(
			fmt.Sprintf("Rating must be between %d and %d", models.EmpathyMin, models.EmpathyMax))
	}
	if _, err := s.storyRepo.GetByID(ctx, storyID, 0); err != nil {
		return nil, err
	}

	err := s.empathyRepo.Upsert(ctx, &models.EmpathyRating{
		StoryID:   storyID,
		UserID:    userID,
		Rating:    rating,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.changes.Changed(ctx, CollectionEmpathyRatings)
	return s.Summary(ctx, storyID)
}

// Summary returns every rating of a story and their mean. A story without
// ratings averages 0.
func (s *EmpathyService) Summary(ctx context.Context, storyID uint) (*models.EmpathySummary, error) {
	ratings, err := s.empathyRepo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	summary := &models.EmpathySummary{StoryID: storyID, Ratings: ratings}
	if len(ratings) == 0 {
		return summary, nil
	}
	total := 0
	for _, r := range ratings {
		total += r.Rating
	}
	summary.Average = float64(total) / float64(len(ratings))
	return summary, nil
}
