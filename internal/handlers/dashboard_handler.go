package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetDashboardStats returns catalog, circulation and user statistics
// @Summary Get dashboard statistics
// @Description Catalog totals, reservation counts by status, circulation metrics and the reservation trend
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param period query int false "Period in days for active users and trends (default: 30)"
// @Success 200 {object} services.DashboardStatsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Insufficient permissions"
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetDashboardStats(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard stats")

	// Unparseable periods fall back to the default
	period, err := strconv.Atoi(c.Query("period"))
	if err != nil || period < 1 {
		period = 0
	}

	stats, err := h.service.GetDashboardStats(c.Request.Context(), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetActivityTrends returns reservation activity grouped by time bucket
// @Summary Get activity trends
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param period query string false "Time period: week, month, or year (default: month)"
// @Success 200 {array} services.ActivityTrendResponse
// @Failure 422 {object} ErrorResponse "Invalid period"
// @Router /dashboard/activity-trends [get]
func (h *DashboardHandler) GetActivityTrends(c *gin.Context) {
	h.LogRequest(c, "Getting activity trends")

	period := c.DefaultQuery("period", services.TrendPeriodMonth)
	switch period {
	case services.TrendPeriodWeek, services.TrendPeriodMonth, services.TrendPeriodYear:
	default:
		h.rejectQuery(c, "period", "period must be one of week, month, year", period, "oneof")
		return
	}

	trends, err := h.service.GetActivityTrends(c.Request.Context(), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, trends)
}

// GetRecentActivities returns the latest reservation transitions
// @Summary Get recent activities
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of activities to return (default: 10, max: 50)"
// @Success 200 {array} services.RecentActivityResponse
// @Router /dashboard/recent-activities [get]
func (h *DashboardHandler) GetRecentActivities(c *gin.Context) {
	h.LogRequest(c, "Getting recent activities")

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = 0
	}

	activities, err := h.service.GetRecentActivities(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, activities)
}

// GetCategoryDistribution returns how the catalog spreads over categories
// @Summary Get category distribution
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {array} services.CategoryDistributionResponse
// @Router /dashboard/category-distribution [get]
func (h *DashboardHandler) GetCategoryDistribution(c *gin.Context) {
	h.LogRequest(c, "Getting category distribution")

	distribution, err := h.service.GetCategoryDistribution(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, distribution)
}
