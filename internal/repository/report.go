package repository

import (
	"context"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
)

// ReportRepository appends and lists story reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	ListAll(ctx context.Context) ([]models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) ListAll(ctx context.Context) ([]models.Report, error) {
	reports := []models.Report{}
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}
