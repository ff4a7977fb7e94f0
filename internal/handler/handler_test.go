package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"csrhub/internal/auth"
	"csrhub/internal/config"
	"csrhub/internal/middleware"
	"csrhub/internal/model"
	"csrhub/internal/service"
	"csrhub/internal/upload"
	"csrhub/pkg/response"
)

func newTestRouter(t *testing.T) (*gin.Engine, *middleware.Authenticator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	authn := middleware.NewAuthenticator(config.AuthConfig{
		JWTSecret:       "handler-test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}, gin.TestMode)
	return gin.New(), authn
}

func bearer(t *testing.T, authn *middleware.Authenticator, role string) (string, auth.Actor) {
	t.Helper()
	actor := auth.Actor{UserID: uuid.New(), Role: role}
	token, err := auth.IssueToken(authn.Secret(), actor, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token, actor
}

func do(r http.Handler, method, path, authz string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, path, authz string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	return do(r, method, path, authz, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var res response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

// multipartBody builds a form with one file part and extra fields
func multipartBody(t *testing.T, field, filename, contentType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

// --- service mocks ---

type mockTrancheService struct{ mock.Mock }

func (m *mockTrancheService) ListTranches(ctx context.Context, actor auth.Actor, projectID string) ([]service.TrancheResponse, error) {
	args := m.Called(ctx, actor, projectID)
	res, _ := args.Get(0).([]service.TrancheResponse)
	return res, args.Error(1)
}

func (m *mockTrancheService) GetTranche(ctx context.Context, actor auth.Actor, id string) (*service.TrancheResponse, error) {
	args := m.Called(ctx, actor, id)
	res, _ := args.Get(0).(*service.TrancheResponse)
	return res, args.Error(1)
}

func (m *mockTrancheService) UploadEvidence(ctx context.Context, actor auth.Actor, id string, in service.EvidenceInput) (*service.TrancheResponse, error) {
	args := m.Called(ctx, actor, id, in)
	res, _ := args.Get(0).(*service.TrancheResponse)
	return res, args.Error(1)
}

func (m *mockTrancheService) RequestRelease(ctx context.Context, actor auth.Actor, id string) (*service.TrancheResponse, error) {
	args := m.Called(ctx, actor, id)
	res, _ := args.Get(0).(*service.TrancheResponse)
	return res, args.Error(1)
}

func (m *mockTrancheService) Review(ctx context.Context, actor auth.Actor, id string, req service.ReviewTrancheRequest) (*service.TrancheResponse, error) {
	args := m.Called(ctx, actor, id, req)
	res, _ := args.Get(0).(*service.TrancheResponse)
	return res, args.Error(1)
}

func (m *mockTrancheService) MarkDisbursed(ctx context.Context, actor auth.Actor, id string) (*service.TrancheResponse, error) {
	args := m.Called(ctx, actor, id)
	res, _ := args.Get(0).(*service.TrancheResponse)
	return res, args.Error(1)
}

type mockComplianceService struct{ mock.Mock }

func (m *mockComplianceService) GetChecklist(ctx context.Context, actor auth.Actor, projectID string) (*service.ChecklistResponse, error) {
	args := m.Called(ctx, actor, projectID)
	res, _ := args.Get(0).(*service.ChecklistResponse)
	return res, args.Error(1)
}

func (m *mockComplianceService) UploadDocument(ctx context.Context, actor auth.Actor, projectID, category, docName string, file upload.File) (*service.ComplianceDocResponse, error) {
	args := m.Called(ctx, actor, projectID, category, docName, file)
	res, _ := args.Get(0).(*service.ComplianceDocResponse)
	return res, args.Error(1)
}

func (m *mockComplianceService) VerifyDocument(ctx context.Context, actor auth.Actor, docID string, req service.VerifyDocumentRequest) (*service.ComplianceDocResponse, error) {
	args := m.Called(ctx, actor, docID, req)
	res, _ := args.Get(0).(*service.ComplianceDocResponse)
	return res, args.Error(1)
}

func (m *mockComplianceService) ListUploads(ctx context.Context, actor auth.Actor, docID string) ([]service.UploadResponse, error) {
	args := m.Called(ctx, actor, docID)
	res, _ := args.Get(0).([]service.UploadResponse)
	return res, args.Error(1)
}

func (m *mockComplianceService) ExportChecklist(ctx context.Context, actor auth.Actor, projectID string) (*service.ExportFile, error) {
	args := m.Called(ctx, actor, projectID)
	res, _ := args.Get(0).(*service.ExportFile)
	return res, args.Error(1)
}

type mockStatisticsService struct{ mock.Mock }

func (m *mockStatisticsService) GetStatistics(ctx context.Context, actor auth.Actor, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	args := m.Called(ctx, actor, startDate, endDate)
	return args.Get(0).(model.StatisticsResponse), args.Error(1)
}

type mockTimelineService struct{ mock.Mock }

func (m *mockTimelineService) GetFundingTimeline(ctx context.Context, actor auth.Actor, filter service.FundingTimelineFilter) ([]service.FundingDataPoint, error) {
	args := m.Called(ctx, actor, filter)
	res, _ := args.Get(0).([]service.FundingDataPoint)
	return res, args.Error(1)
}

type mockAuditService struct{ mock.Mock }

func (m *mockAuditService) GetAuditLogs(ctx context.Context, filter service.AuditFilter) ([]service.AuditLogResponse, int64, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).([]service.AuditLogResponse)
	return res, args.Get(1).(int64), args.Error(2)
}
