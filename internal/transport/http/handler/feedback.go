package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"companybuddy/internal/app"
	"companybuddy/internal/transport/http/response"
)

type FeedbackHandler struct {
	feedbackService *app.FeedbackService
}

type FeedbackRequest struct {
	Question string `json:"question" binding:"required,max=4000"`
	Answer   string `json:"answer" binding:"required"`
	Rating   string `json:"rating" binding:"required"`
	Comment  string `json:"comment" binding:"max=2000"`
}

func NewFeedbackHandler(feedbackService *app.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	feedback, err := h.feedbackService.Submit(app.FeedbackInput{
		TenantID: tenantID,
		UserID:   userID,
		Question: req.Question,
		Answer:   req.Answer,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidRating):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidRating, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "submit feedback failed")
		}
		return
	}

	response.OK(c, gin.H{"id": feedback.ID})
}

func (h *FeedbackHandler) Stats(c *gin.Context) {
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	stats, err := h.feedbackService.Stats(tenantID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch feedback stats failed")
		return
	}
	response.OK(c, stats)
}
