package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"csrhub/internal/model"
	"csrhub/internal/repository"
)

// passThroughTM runs fn without a real transaction
type passThroughTM struct{}

func (passThroughTM) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// recordingNotifier captures notifications instead of persisting them
type recordingNotifier struct {
	mu   sync.Mutex
	sent []NotificationInput
}

func (r *recordingNotifier) Notify(_ context.Context, in NotificationInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, in)
	return nil
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

// fakeStore keeps uploaded objects in memory
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "http://files.test/" + key, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakePusher records live frames
type fakePusher struct {
	mu     sync.Mutex
	frames []string
}

func (p *fakePusher) SendToUser(userID uuid.UUID, msgType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, userID.String()+":"+msgType)
	return nil
}

// --- repository mocks ---

type MockNGORepository struct{ mock.Mock }

func (m *MockNGORepository) Create(ctx context.Context, ngo *model.NGO) error {
	return m.Called(ctx, ngo).Error(0)
}

func (m *MockNGORepository) GetByID(ctx context.Context, id uuid.UUID) (*model.NGO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NGO), args.Error(1)
}

func (m *MockNGORepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.NGO, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NGO), args.Error(1)
}

func (m *MockNGORepository) ListAll(ctx context.Context) ([]model.NGO, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.NGO), args.Error(1)
}

func (m *MockNGORepository) UpdateCertificates(ctx context.Context, ngo *model.NGO) error {
	return m.Called(ctx, ngo).Error(0)
}

func (m *MockNGORepository) UpdateTrustScore(ctx context.Context, id uuid.UUID, score int) error {
	return m.Called(ctx, id, score).Error(0)
}

type MockCorporateRepository struct{ mock.Mock }

func (m *MockCorporateRepository) Create(ctx context.Context, corp *model.Corporate) error {
	return m.Called(ctx, corp).Error(0)
}

func (m *MockCorporateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Corporate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Corporate), args.Error(1)
}

func (m *MockCorporateRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Corporate, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Corporate), args.Error(1)
}

type MockProjectRepository struct{ mock.Mock }

func (m *MockProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepository) List(ctx context.Context, filter repository.ProjectFilter) ([]model.Project, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Project), args.Get(1).(int64), args.Error(2)
}

func (m *MockProjectRepository) ListIDsByNGO(ctx context.Context, ngoID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ngoID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockProjectRepository) AddRaised(ctx context.Context, id uuid.UUID, amount int64) error {
	return m.Called(ctx, id, amount).Error(0)
}

func (m *MockProjectRepository) SetCorporate(ctx context.Context, id, corporateID uuid.UUID) error {
	return m.Called(ctx, id, corporateID).Error(0)
}

type MockDonationRepository struct{ mock.Mock }

func (m *MockDonationRepository) Create(ctx context.Context, donation *model.Donation) error {
	return m.Called(ctx, donation).Error(0)
}

func (m *MockDonationRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Donation, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]model.Donation), args.Error(1)
}

type MockTrancheRepository struct{ mock.Mock }

func (m *MockTrancheRepository) CreateBatch(ctx context.Context, tranches []model.Tranche) error {
	return m.Called(ctx, tranches).Error(0)
}

func (m *MockTrancheRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tranche, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tranche), args.Error(1)
}

func (m *MockTrancheRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Tranche, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tranche), args.Error(1)
}

func (m *MockTrancheRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Tranche, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]model.Tranche), args.Error(1)
}

func (m *MockTrancheRepository) UpdateWithVersion(ctx context.Context, tranche *model.Tranche) error {
	return m.Called(ctx, tranche).Error(0)
}

type MockComplianceDocRepository struct{ mock.Mock }

func (m *MockComplianceDocRepository) Create(ctx context.Context, doc *model.ComplianceDoc) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockComplianceDocRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ComplianceDoc, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ComplianceDoc), args.Error(1)
}

func (m *MockComplianceDocRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ComplianceDoc, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ComplianceDoc), args.Error(1)
}

func (m *MockComplianceDocRepository) FindByKeyForUpdate(ctx context.Context, projectID uuid.UUID, category, docName string) (*model.ComplianceDoc, error) {
	args := m.Called(ctx, projectID, category, docName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ComplianceDoc), args.Error(1)
}

func (m *MockComplianceDocRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.ComplianceDoc, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]model.ComplianceDoc), args.Error(1)
}

func (m *MockComplianceDocRepository) ListByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]model.ComplianceDoc, error) {
	args := m.Called(ctx, projectIDs)
	return args.Get(0).([]model.ComplianceDoc), args.Error(1)
}

func (m *MockComplianceDocRepository) UpdateWithVersion(ctx context.Context, doc *model.ComplianceDoc) error {
	return m.Called(ctx, doc).Error(0)
}

type MockDocumentUploadRepository struct{ mock.Mock }

func (m *MockDocumentUploadRepository) Create(ctx context.Context, upload *model.DocumentUpload) error {
	return m.Called(ctx, upload).Error(0)
}

func (m *MockDocumentUploadRepository) ListByComplianceDoc(ctx context.Context, docID uuid.UUID) ([]model.DocumentUpload, error) {
	args := m.Called(ctx, docID)
	return args.Get(0).([]model.DocumentUpload), args.Error(1)
}

type MockDocumentRequestRepository struct{ mock.Mock }

func (m *MockDocumentRequestRepository) Create(ctx context.Context, req *model.DocumentRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockDocumentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DocumentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRequest), args.Error(1)
}

func (m *MockDocumentRequestRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DocumentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRequest), args.Error(1)
}

func (m *MockDocumentRequestRepository) List(ctx context.Context, filter repository.DocumentRequestFilter) ([]model.DocumentRequest, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.DocumentRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRequestRepository) UpdateWithVersion(ctx context.Context, req *model.DocumentRequest) error {
	return m.Called(ctx, req).Error(0)
}

type MockNotificationRepository struct{ mock.Mock }

func (m *MockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	args := m.Called(ctx, userID, unreadOnly, page, limit)
	return args.Get(0).([]model.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, id, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) ExistsSince(ctx context.Context, userID uuid.UUID, notifType, key, value string, since time.Time) (bool, error) {
	args := m.Called(ctx, userID, notifType, key, value, since)
	return args.Bool(0), args.Error(1)
}

type MockAuditRepository struct{ mock.Mock }

func (m *MockAuditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.AuditLog), args.Get(1).(int64), args.Error(2)
}

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockUserRepository) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *MockUserRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type MockMessageRepository struct{ mock.Mock }

func (m *MockMessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageRepository) ListByProject(ctx context.Context, projectID uuid.UUID, page, limit int) ([]model.Message, int64, error) {
	args := m.Called(ctx, projectID, page, limit)
	return args.Get(0).([]model.Message), args.Get(1).(int64), args.Error(2)
}

type MockStatisticsRepository struct{ mock.Mock }

func (m *MockStatisticsRepository) GetProjectTotals(ctx context.Context, scope repository.StatsScope, start, end time.Time) (repository.ProjectTotals, error) {
	args := m.Called(ctx, scope, start, end)
	return args.Get(0).(repository.ProjectTotals), args.Error(1)
}

func (m *MockStatisticsRepository) GetTrancheTotals(ctx context.Context, scope repository.StatsScope, start, end time.Time) (map[string]int64, map[string]int64, error) {
	args := m.Called(ctx, scope, start, end)
	return args.Get(0).(map[string]int64), args.Get(1).(map[string]int64), args.Error(2)
}

func (m *MockStatisticsRepository) GetTopNGOs(ctx context.Context, limit int) ([]model.NGORanking, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.NGORanking), args.Error(1)
}

func (m *MockStatisticsRepository) GetTopSectors(ctx context.Context, scope repository.StatsScope, start, end time.Time, limit int) ([]model.SectorRanking, error) {
	args := m.Called(ctx, scope, start, end, limit)
	return args.Get(0).([]model.SectorRanking), args.Error(1)
}

type MockFundingTimelineRepository struct{ mock.Mock }

func (m *MockFundingTimelineRepository) GetFundingTimeline(ctx context.Context, scope repository.StatsScope, groupBy string, start, end time.Time) ([]repository.FundingTimelineRow, error) {
	args := m.Called(ctx, scope, groupBy, start, end)
	rows, _ := args.Get(0).([]repository.FundingTimelineRow)
	return rows, args.Error(1)
}
