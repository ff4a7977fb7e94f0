package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"csrhub/internal/middleware"
	"csrhub/internal/service"
	"csrhub/pkg/apperror"
	"csrhub/pkg/response"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	timelineService   service.FundingTimelineService
	authn             *middleware.Authenticator
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService, timelineService service.FundingTimelineService, authn *middleware.Authenticator) *StatisticsHandler {
	return &StatisticsHandler{
		statisticsService: statisticsService,
		timelineService:   timelineService,
		authn:             authn,
		now:               time.Now,
	}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	statsGroup.Use(h.authn.RequireRole())
	{
		statsGroup.GET("", h.GetStatistics)
		statsGroup.GET("/timeline", h.GetFundingTimeline)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Funding totals, tranche pipeline and rankings bounded by time. NGOs see their own projects, corporates the projects they fund.
// @Tags         Statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	startDate, endDate, ok := h.dateRange(c)
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), a, startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetFundingTimeline returns donations and disbursements grouped by period
// @Summary      Get funding timeline
// @Description  Donated and disbursed amounts per period with the cumulative utilization rate
// @Tags         Statistics
// @Security     BearerAuth
// @Produce      json
// @Param        group_by    query     string  false  "Group by period: week, month, quarter, year (default: month)"
// @Param        start_date  query     string  false  "Start date (RFC3339)"
// @Param        end_date    query     string  false  "End date (RFC3339)"
// @Success      200         {object}  response.Response{data=[]service.FundingDataPoint}
// @Failure      400         {object}  response.Response
// @Router       /api/statistics/timeline [get]
func (h *StatisticsHandler) GetFundingTimeline(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	startDate, endDate, ok := h.dateRange(c)
	if !ok {
		return
	}

	data, err := h.timelineService.GetFundingTimeline(c.Request.Context(), a, service.FundingTimelineFilter{
		GroupBy:   c.DefaultQuery("group_by", "month"),
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}

// dateRange reads start_date and end_date, defaulting to the current month
func (h *StatisticsHandler) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := h.now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	if s := c.Query("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(c, apperror.Validation("invalid start_date format, expected RFC3339"))
			return time.Time{}, time.Time{}, false
		}
		startDate = t
	}
	if s := c.Query("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(c, apperror.Validation("invalid end_date format, expected RFC3339"))
			return time.Time{}, time.Time{}, false
		}
		endDate = t
	}
	return startDate, endDate, true
}
