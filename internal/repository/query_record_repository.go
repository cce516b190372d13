package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"companybuddy/internal/model"
)

type QueryRecordRepository struct {
	db *gorm.DB
}

func NewQueryRecordRepository(db *gorm.DB) *QueryRecordRepository {
	return &QueryRecordRepository{db: db}
}

func (r *QueryRecordRepository) Create(record *model.QueryRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create query record failed: %w", err)
	}
	return nil
}

func (r *QueryRecordRepository) ListByTenantID(tenantID uint, limit int) ([]model.QueryRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var records []model.QueryRecord
	if err := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list query records failed: %w", err)
	}
	return records, nil
}

// QuerySummary aggregates the tenant's query log over a window.
type QuerySummary struct {
	TotalQueries      int64   `json:"total_queries"`
	RefusedQueries    int64   `json:"refused_queries"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	AvgChunks         float64 `json:"avg_chunks_retrieved"`
	AvgScore          float64 `json:"avg_score"`
}

func (r *QueryRecordRepository) SummaryByTenantID(tenantID uint, since time.Time) (*QuerySummary, error) {
	var summary QuerySummary

	base := r.db.Model(&model.QueryRecord{}).Where("tenant_id = ? AND created_at >= ?", tenantID, since)

	if err := base.Session(&gorm.Session{}).Count(&summary.TotalQueries).Error; err != nil {
		return nil, fmt.Errorf("count query records failed: %w", err)
	}
	if summary.TotalQueries == 0 {
		return &summary, nil
	}
	if err := base.Session(&gorm.Session{}).Where("refused = ?", true).Count(&summary.RefusedQueries).Error; err != nil {
		return nil, fmt.Errorf("count refused queries failed: %w", err)
	}

	var agg struct {
		AvgResponseTimeMs float64
		AvgChunks         float64
		AvgScore          float64
	}
	if err := base.Session(&gorm.Session{}).
		Select("AVG(response_time_ms) AS avg_response_time_ms, AVG(chunks_retrieved) AS avg_chunks, AVG(avg_score) AS avg_score").
		Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("aggregate query records failed: %w", err)
	}
	summary.AvgResponseTimeMs = agg.AvgResponseTimeMs
	summary.AvgChunks = agg.AvgChunks
	summary.AvgScore = agg.AvgScore
	return &summary, nil
}
