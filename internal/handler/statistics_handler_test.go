package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"csrhub/internal/model"
	"csrhub/internal/service"
)

func TestStatisticsDefaultsToCurrentMonth(t *testing.T) {
	r, authn := newTestRouter(t)
	svc := new(mockStatisticsService)
	h := NewStatisticsHandler(svc, nil, authn)
	now := time.Date(2026, 6, 17, 10, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	h.RegisterRoutes(&r.RouterGroup)
	token, actor := bearer(t, authn, model.RoleNGO)

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.On("GetStatistics", mock.Anything, actor, start, now).Return(model.StatisticsResponse{TotalProjects: 3}, nil)

	w := doJSON(r, http.MethodGet, "/api/statistics", token, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestStatisticsRejectsBadDate(t *testing.T) {
	r, authn := newTestRouter(t)
	svc := new(mockStatisticsService)
	NewStatisticsHandler(svc, nil, authn).RegisterRoutes(&r.RouterGroup)
	token, _ := bearer(t, authn, model.RoleAdmin)

	w := doJSON(r, http.MethodGet, "/api/statistics?start_date=2026-06-01", token, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "start_date")
	svc.AssertNumberOfCalls(t, "GetStatistics", 0)
}

func TestFundingTimelinePassesGrouping(t *testing.T) {
	r, authn := newTestRouter(t)
	timeline := new(mockTimelineService)
	NewStatisticsHandler(new(mockStatisticsService), timeline, authn).RegisterRoutes(&r.RouterGroup)
	token, _ := bearer(t, authn, model.RoleCorporate)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	timeline.On("GetFundingTimeline", mock.Anything, mock.Anything, service.FundingTimelineFilter{
		GroupBy: "quarter", StartDate: start, EndDate: end,
	}).Return([]service.FundingDataPoint{{Period: "2026-01-01", TotalDonated: 500000, UtilizationRate: "0.00"}}, nil)

	w := doJSON(r, http.MethodGet,
		"/api/statistics/timeline?group_by=quarter&start_date=2026-01-01T00:00:00Z&end_date=2026-06-30T00:00:00Z", token, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	points := decode(t, w).Data.([]interface{})
	assert.Len(t, points, 1)
	timeline.AssertExpectations(t)
}

func TestAuditLogsAdminOnly(t *testing.T) {
	r, authn := newTestRouter(t)
	svc := new(mockAuditService)
	NewAuditHandler(svc, authn).RegisterRoutes(&r.RouterGroup)
	admin, _ := bearer(t, authn, model.RoleAdmin)
	corporate, _ := bearer(t, authn, model.RoleCorporate)

	svc.On("GetAuditLogs", mock.Anything, service.AuditFilter{Action: "TRANCHE_APPROVED", Page: 2, Limit: 10}).
		Return([]service.AuditLogResponse{{ID: "a-1", Action: "TRANCHE_APPROVED"}}, int64(11), nil)

	w := doJSON(r, http.MethodGet, "/api/audit-logs?action=TRANCHE_APPROVED&page=2&limit=10", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.EqualValues(t, 11, data["total"])
	assert.EqualValues(t, 2, data["page"])

	w = doJSON(r, http.MethodGet, "/api/audit-logs", corporate, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNumberOfCalls(t, "GetAuditLogs", 1)
}
