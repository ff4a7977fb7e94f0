package service

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"csrhub/internal/auth"
	"csrhub/internal/config"
	"csrhub/internal/model"
	"csrhub/internal/upload"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func pdfFile(name string) upload.File {
	return upload.File{Name: name, DeclaredType: "application/pdf", Size: int64(len(pdfBytes)), Content: bytes.NewReader(pdfBytes)}
}

func testValidator() *upload.Validator {
	return upload.NewValidator(config.UploadConfig{
		ProjectComplianceMaxBytes: 2 << 20,
		NGOComplianceMaxBytes:     5 << 20,
		AllowedMIMETypes:          []string{"application/pdf", "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"},
	})
}

// world is one NGO, one corporate and a funded project with its mocks
type world struct {
	ngoActor   auth.Actor
	corpActor  auth.Actor
	adminActor auth.Actor
	ngo        *model.NGO
	corp       *model.Corporate
	project    *model.Project

	ngos       *MockNGORepository
	corporates *MockCorporateRepository
	projects   *MockProjectRepository
	audit      *MockAuditRepository
	notifier   *recordingNotifier
	store      *fakeStore
	parties    *Parties
	log        *zap.Logger
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		ngoActor:   auth.Actor{UserID: uuid.New(), Role: model.RoleNGO},
		corpActor:  auth.Actor{UserID: uuid.New(), Role: model.RoleCorporate},
		adminActor: auth.Actor{UserID: uuid.New(), Role: model.RoleAdmin},
		ngos:       new(MockNGORepository),
		corporates: new(MockCorporateRepository),
		projects:   new(MockProjectRepository),
		audit:      new(MockAuditRepository),
		notifier:   &recordingNotifier{},
		store:      newFakeStore(),
		log:        zap.NewNop(),
	}
	w.ngo = &model.NGO{ID: uuid.New(), UserID: w.ngoActor.UserID, OrgName: "Green Earth Trust"}
	w.corp = &model.Corporate{ID: uuid.New(), UserID: w.corpActor.UserID, CompanyName: "Acme Industries"}
	w.project = &model.Project{
		ID:           uuid.New(),
		NGOID:        w.ngo.ID,
		NGO:          w.ngo,
		CorporateID:  &w.corp.ID,
		Corporate:    w.corp,
		Title:        "Clean Water",
		TargetAmount: 100000,
		Status:       model.ProjectStatusActive,
	}

	w.ngos.On("GetByUserID", mock.Anything, w.ngoActor.UserID).Return(w.ngo, nil).Maybe()
	w.ngos.On("GetByID", mock.Anything, w.ngo.ID).Return(w.ngo, nil).Maybe()
	w.corporates.On("GetByUserID", mock.Anything, w.corpActor.UserID).Return(w.corp, nil).Maybe()
	w.corporates.On("GetByID", mock.Anything, w.corp.ID).Return(w.corp, nil).Maybe()
	w.projects.On("GetByID", mock.Anything, w.project.ID).Return(w.project, nil).Maybe()
	w.audit.On("Log", mock.Anything, mock.Anything).Return(nil).Maybe()

	w.parties = NewParties(w.ngos, w.corporates)
	return w
}

// otherNGO registers a second NGO user that owns nothing
func (w *world) otherNGO() auth.Actor {
	actor := auth.Actor{UserID: uuid.New(), Role: model.RoleNGO}
	w.ngos.On("GetByUserID", mock.Anything, actor.UserID).Return(&model.NGO{ID: uuid.New(), UserID: actor.UserID, OrgName: "Other"}, nil).Maybe()
	return actor
}

// otherCorporate registers a second corporate user that funds nothing
func (w *world) otherCorporate() auth.Actor {
	actor := auth.Actor{UserID: uuid.New(), Role: model.RoleCorporate}
	w.corporates.On("GetByUserID", mock.Anything, actor.UserID).Return(&model.Corporate{ID: uuid.New(), UserID: actor.UserID, CompanyName: "Other Corp"}, nil).Maybe()
	return actor
}
