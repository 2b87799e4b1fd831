package service

import (
	"context"
	"log/slog"

	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
)

type NotificationService struct {
	notificationRepo repository.NotificationRepository
	events           EventPublisher
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	events EventPublisher,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		events:           events,
	}
}

// ListNotifications returns the user's inbox, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID)
}

// MarkAllRead flips every notification of the user to read and returns how
// many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	updated, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 && s.events != nil {
		payload := map[string]int64{"updated": updated}
		if err := s.events.PublishEvent(ctx, userID, EventNotificationsRead, payload); err != nil {
			slog.WarnContext(ctx, "failed to publish notifications read", "user_id", userID, "error", err)
		}
	}
	return updated, nil
}
