package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"companybuddy/internal/app"
	"companybuddy/internal/transport/http/response"
)

type AnalyticsHandler struct {
	analyticsService *app.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *app.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Report(c *gin.Context) {
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	report, err := h.analyticsService.Report(tenantID, parseIntQuery(c, "days", 30))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "build analytics report failed")
		return
	}
	response.OK(c, report)
}

func (h *AnalyticsHandler) RecentQueries(c *gin.Context) {
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	records, err := h.analyticsService.RecentQueries(tenantID, parseIntQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list recent queries failed")
		return
	}
	response.OK(c, records)
}
