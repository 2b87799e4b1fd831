package repository

import (
	"context"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository persists user inboxes.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	ListByUser(ctx context.Context, userID uint) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateBatch inserts notifications; a repeated (id, user) pair is skipped.
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(notifications, 200).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (r *notificationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	list := []models.Notification{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

// MarkAllRead flips every unread notification of the user in one statement.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
