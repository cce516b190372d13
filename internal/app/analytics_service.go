package app

import (
	"time"

	"companybuddy/internal/model"
	"companybuddy/internal/repository"
)

// AnalyticsService exposes read models over the append-only query log and
// feedback tables.
type AnalyticsService struct {
	queryRepo    *repository.QueryRecordRepository
	feedbackRepo *repository.FeedbackRepository
}

type AnalyticsReport struct {
	Queries          *repository.QuerySummary  `json:"queries"`
	Feedback         *repository.FeedbackStats `json:"feedback"`
	SatisfactionRate float64                   `json:"satisfaction_rate"`
	WindowDays       int                       `json:"window_days"`
}

func NewAnalyticsService(
	queryRepo *repository.QueryRecordRepository,
	feedbackRepo *repository.FeedbackRepository,
) *AnalyticsService {
	return &AnalyticsService{
		queryRepo:    queryRepo,
		feedbackRepo: feedbackRepo,
	}
}

func (s *AnalyticsService) Report(tenantID uint, windowDays int) (*AnalyticsReport, error) {
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	if windowDays <= 0 || windowDays > 365 {
		windowDays = 30
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	queries, err := s.queryRepo.SummaryByTenantID(tenantID, since)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedbackRepo.StatsByTenantID(tenantID)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if feedback.Total > 0 {
		rate = float64(feedback.Positive) / float64(feedback.Total)
	}
	return &AnalyticsReport{
		Queries:          queries,
		Feedback:         feedback,
		SatisfactionRate: rate,
		WindowDays:       windowDays,
	}, nil
}

func (s *AnalyticsService) RecentQueries(tenantID uint, limit int) ([]model.QueryRecord, error) {
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	return s.queryRepo.ListByTenantID(tenantID, limit)
}
