package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/service"
	"github.com/uniportal/ecms-api/pkg/response"
)

// AnalyticsHandler wires HTTP endpoints to the analytics service.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Overview godoc
// @Summary Complaint analytics
// @Description Trends, distributions, resolution times, exam rankings and response stats
// @Tags Analytics
// @Produce json
// @Param start_date query string false "Inclusive lower bound (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive upper bound (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by complaint type"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	filter := models.AnalyticsFilter{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Status:    c.Query("status"),
		Type:      c.Query("type"),
	}

	analytics, err := h.service.Overview(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analytics, nil)
}

// AdminStats godoc
// @Summary Dashboard headline numbers
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AnalyticsHandler) AdminStats(c *gin.Context) {
	stats, err := h.service.AdminStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
