package repository

import (
	"fmt"

	"gorm.io/gorm"

	"companybuddy/internal/model"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(feedback *model.Feedback) error {
	if err := r.db.Create(feedback).Error; err != nil {
		return fmt.Errorf("create feedback failed: %w", err)
	}
	return nil
}

// FeedbackStats counts ratings per level for a tenant.
type FeedbackStats struct {
	Total    int64 `json:"total"`
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
}

func (r *FeedbackRepository) StatsByTenantID(tenantID uint) (*FeedbackStats, error) {
	var stats FeedbackStats

	base := r.db.Model(&model.Feedback{}).Where("tenant_id = ?", tenantID)
	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("count feedback failed: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("rating = ?", model.FeedbackRatingPositive).Count(&stats.Positive).Error; err != nil {
		return nil, fmt.Errorf("count positive feedback failed: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("rating = ?", model.FeedbackRatingNegative).Count(&stats.Negative).Error; err != nil {
		return nil, fmt.Errorf("count negative feedback failed: %w", err)
	}
	return &stats, nil
}
