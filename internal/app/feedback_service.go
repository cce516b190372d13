package app

import (
	"errors"
	"strings"

	"companybuddy/internal/model"
	"companybuddy/internal/repository"
)

var ErrInvalidRating = errors.New("rating must be positive or negative")

// Feedback rating labels accepted by the API; stored as the two fixed levels.
const (
	RatingPositive = "positive"
	RatingNegative = "negative"
)

type FeedbackService struct {
	feedbackRepo *repository.FeedbackRepository
}

type FeedbackInput struct {
	TenantID uint
	UserID   uint
	Question string
	Answer   string
	Rating   string
	Comment  string
}

func NewFeedbackService(feedbackRepo *repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{feedbackRepo: feedbackRepo}
}

func (s *FeedbackService) Submit(input FeedbackInput) (*model.Feedback, error) {
	question := strings.TrimSpace(input.Question)
	answer := strings.TrimSpace(input.Answer)
	if input.TenantID == 0 || input.UserID == 0 || question == "" || answer == "" {
		return nil, ErrInvalidInput
	}

	var rating int
	switch strings.ToLower(strings.TrimSpace(input.Rating)) {
	case RatingPositive:
		rating = model.FeedbackRatingPositive
	case RatingNegative:
		rating = model.FeedbackRatingNegative
	default:
		return nil, ErrInvalidRating
	}

	feedback := &model.Feedback{
		TenantID: input.TenantID,
		UserID:   input.UserID,
		Question: question,
		Answer:   answer,
		Rating:   rating,
		Comment:  strings.TrimSpace(input.Comment),
	}
	if err := s.feedbackRepo.Create(feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (s *FeedbackService) Stats(tenantID uint) (*repository.FeedbackStats, error) {
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	return s.feedbackRepo.StatsByTenantID(tenantID)
}
