package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
)

type ReportService struct {
	reportRepo       repository.ReportRepository
	storyRepo        repository.StoryRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	events           EventPublisher
	mail             Mailer
	changes          ChangeNotifier
	now              func() time.Time
}

func NewReportService(
	reportRepo repository.ReportRepository,
	storyRepo repository.StoryRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	events EventPublisher,
	mail Mailer,
	changes ChangeNotifier,
) *ReportService {
	return &ReportService{
		reportRepo:       reportRepo,
		storyRepo:        storyRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		events:           events,
		mail:             mail,
		changes:          changesOrNoop(changes),
		now:              time.Now,
	}
}

// ReportContent appends a report and tells the story's author about it. The
// report stands even if the notice cannot be delivered.
func (s *ReportService) ReportContent(ctx context.Context, reporterID, storyID uint) (*models.Report, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID, 0)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &models.Report{
		StoryID:    story.ID,
		StoryTitle: story.Title,
		ReporterID: reporterID,
		CreatedAt:  now,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}
	s.changes.Changed(ctx, CollectionReports)

	n := models.StoryReportedNotification(story.AuthorID, story.ID, story.Title, now)
	if err := s.notificationRepo.CreateBatch(ctx, []*models.Notification{n}); err != nil {
		slog.WarnContext(ctx, "failed to store report notification", "story_id", story.ID, "error", err)
		return report, nil
	}
	if s.events != nil {
		if err := s.events.PublishEvent(ctx, story.AuthorID, EventNotification, n); err != nil {
			slog.WarnContext(ctx, "failed to publish report notification", "user_id", story.AuthorID, "error", err)
		}
	}
	s.mailAuthor(ctx, story)
	return report, nil
}

func (s *ReportService) ListReports(ctx context.Context) ([]models.Report, error) {
	return s.reportRepo.ListAll(ctx)
}

func (s *ReportService) mailAuthor(ctx context.Context, story *models.Story) {
	if s.mail == nil {
		return
	}
	author, err := s.userRepo.GetByID(ctx, story.AuthorID)
	if err != nil {
		slog.WarnContext(ctx, "report mail skipped, author lookup failed", "story_id", story.ID, "error", err)
		return
	}
	if err := s.mail.StoryReported(ctx, author.Email, author.DisplayName(), story.Title); err != nil {
		slog.WarnContext(ctx, "failed to send report mail", "story_id", story.ID, "error", err)
	}
}
