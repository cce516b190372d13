package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"companybuddy/internal/app"
	"companybuddy/internal/rag"
	"companybuddy/internal/transport/http/response"
)

type AskHandler struct {
	askService *app.AskService
}

type AskRequest struct {
	Question       string `json:"question" binding:"required,max=4000"`
	ConversationID uint   `json:"conversation_id"`
	TopK           int    `json:"top_k" binding:"min=0,max=50"`
}

func NewAskHandler(askService *app.AskService) *AskHandler {
	return &AskHandler{askService: askService}
}

func (h *AskHandler) Ask(c *gin.Context) {
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

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.askService.Ask(c.Request.Context(), app.AskInput{
		TenantID:       tenantID,
		UserID:         userID,
		ConversationID: req.ConversationID,
		Question:       req.Question,
		TopK:           req.TopK,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrQuestionEmpty), errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		case errors.Is(err, rag.ErrEmbedding), errors.Is(err, rag.ErrIndexQuery), errors.Is(err, rag.ErrGeneration):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, "answer pipeline unavailable")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}

	response.OK(c, result)
}
