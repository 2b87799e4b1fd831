package service

import (
	"context"
	"strings"
	"time"

	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
)

const maxCommentLen = 10000

// ContentFilter rejects text that should not be published.
type ContentFilter interface {
	Check(text string) error
}

type CommentService struct {
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	filter      ContentFilter
	changes     ChangeNotifier
	now         func() time.Time
}

type CreateCommentInput struct {
	UserID  uint
	StoryID uint
	Text    string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	filter ContentFilter,
	changes ChangeNotifier,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		userRepo:    userRepo,
		filter:      filter,
		changes:     changesOrNoop(changes),
		now:         time.Now,
	}
}

// AddComment moderates the text and appends a comment to the story. Nothing is
// written when the filter rejects the text.
func (s *CommentService) AddComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	// Blank checks use the trimmed text; the comment keeps what was typed.
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if len(in.Text) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	if s.filter != nil {
		if err := s.filter.Check(text); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		StoryID:        in.StoryID,
		AuthorID:       author.ID,
		AuthorName:     author.DisplayName(),
		AuthorImageURL: author.ImageURL,
		Text:           in.Text,
		CreatedAt:      s.now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.changes.Changed(ctx, CollectionComments)
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, storyID uint) ([]models.Comment, error) {
	return s.commentRepo.ListByStory(ctx, storyID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}
	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}
	s.changes.Changed(ctx, CollectionComments)
	return comment, nil
}
