package handlers

import (
	"github.com/LovationAdmin/trackit-api/middleware"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	Analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: analytics}
}

var groupings = map[string]bool{
	services.GroupByDay:      true,
	services.GroupByWeek:     true,
	services.GroupByMonth:    true,
	services.GroupByCategory: true,
}

// Spending
// GET /api/analytics/spending?startDate&endDate&groupBy
func (h *AnalyticsHandler) Spending(c *gin.Context) {
	var invalid []models.FieldError
	q := models.SpendingQuery{
		StartDate: queryDate(c, "startDate", &invalid),
		EndDate:   queryDate(c, "endDate", &invalid),
		GroupBy:   c.DefaultQuery("groupBy", services.GroupByDay),
	}
	if !groupings[q.GroupBy] {
		invalid = append(invalid, models.FieldError{Field: "groupBy", Message: "must be one of: day, week, month, category"})
	}
	if len(invalid) > 0 {
		validationFailed(c, invalid)
		return
	}

	res, err := h.Analytics.Spending(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, res)
}

func (h *AnalyticsHandler) Budgets(c *gin.Context) {
	res, err := h.Analytics.Budgets(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, res)
}

func (h *AnalyticsHandler) Locations(c *gin.Context) {
	res, err := h.Analytics.Locations(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, res)
}

func (h *AnalyticsHandler) Predictions(c *gin.Context) {
	res, err := h.Analytics.Predictions(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, res)
}

func (h *AnalyticsHandler) Insights(c *gin.Context) {
	res, err := h.Analytics.Insights(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, res)
}
