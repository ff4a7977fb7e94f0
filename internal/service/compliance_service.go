package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/compliance"
	"csrhub/internal/config"
	"csrhub/internal/export"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/internal/storage"
	"csrhub/internal/upload"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type VerifyDocumentRequest struct {
	Status  string `json:"status" binding:"required,oneof=VERIFIED APPROVED REJECTED"`
	Remarks string `json:"remarks"`
}

type ComplianceDocResponse struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Category    string  `json:"category"`
	DocName     string  `json:"doc_name"`
	URL         string  `json:"url"`
	Status      string  `json:"status"`
	VerifiedBy  *string `json:"verified_by"`
	Remarks     string  `json:"remarks,omitempty"`
	LastUpdated string  `json:"last_updated"`
	RequestID   *string `json:"request_id"`
	Version     int     `json:"version"`
}

// UploadResponse is one stored file of a checklist row, newest first
type UploadResponse struct {
	ID         string `json:"id"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	URL        string `json:"url"`
	UploadedBy string `json:"uploaded_by"`
	UploadedAt string `json:"uploaded_at"`
}

type ChecklistResponse struct {
	ProjectID string `json:"project_id"`
	compliance.Checklist
}

// ExportFile is a rendered download
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

func toComplianceDocResponse(d *model.ComplianceDoc) ComplianceDocResponse {
	return ComplianceDocResponse{
		ID:          d.ID.String(),
		ProjectID:   d.ProjectID.String(),
		Category:    d.Category,
		DocName:     d.DocName,
		URL:         d.URL,
		Status:      d.Status,
		VerifiedBy:  uuidPtrString(d.VerifiedBy),
		Remarks:     d.Remarks,
		LastUpdated: d.LastUpdated.Format(timeLayout),
		RequestID:   uuidPtrString(d.RequestID),
		Version:     d.Version,
	}
}

// --- Interface ---

type ComplianceService interface {
	GetChecklist(ctx context.Context, actor auth.Actor, projectID string) (*ChecklistResponse, error)
	UploadDocument(ctx context.Context, actor auth.Actor, projectID, category, docName string, file upload.File) (*ComplianceDocResponse, error)
	VerifyDocument(ctx context.Context, actor auth.Actor, docID string, req VerifyDocumentRequest) (*ComplianceDocResponse, error)
	ExportChecklist(ctx context.Context, actor auth.Actor, projectID string) (*ExportFile, error)
	ListUploads(ctx context.Context, actor auth.Actor, docID string) ([]UploadResponse, error)
}

type complianceService struct {
	tm        repository.TransactionManager
	projects  repository.ProjectRepository
	docs      repository.ComplianceDocRepository
	requests  repository.DocumentRequestRepository
	uploads   repository.DocumentUploadRepository
	audit     repository.AuditRepository
	parties   *Parties
	notifier  Notifier
	store     storage.ObjectStore
	validator *upload.Validator
	log       *zap.Logger
}

func NewComplianceService(
	tm repository.TransactionManager,
	projects repository.ProjectRepository,
	docs repository.ComplianceDocRepository,
	requests repository.DocumentRequestRepository,
	uploads repository.DocumentUploadRepository,
	audit repository.AuditRepository,
	parties *Parties,
	notifier Notifier,
	store storage.ObjectStore,
	validator *upload.Validator,
	log *zap.Logger,
) ComplianceService {
	return &complianceService{
		tm:        tm,
		projects:  projects,
		docs:      docs,
		requests:  requests,
		uploads:   uploads,
		audit:     audit,
		parties:   parties,
		notifier:  notifier,
		store:     store,
		validator: validator,
		log:       log,
	}
}

// --- Implementation ---

func (s *complianceService) loadProject(ctx context.Context, actor auth.Actor, projectID string, guard projectGuard) (*model.Project, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, pid)
	if err != nil {
		return nil, loadErr(err, "project")
	}
	if err := guard(ctx, actor, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *complianceService) checklist(ctx context.Context, projectID uuid.UUID) (compliance.Checklist, error) {
	docs, err := s.docs.ListByProject(ctx, projectID)
	if err != nil {
		return compliance.Checklist{}, apperror.Internal(err, "failed to fetch compliance documents")
	}
	return compliance.BuildChecklist(docs), nil
}

func (s *complianceService) GetChecklist(ctx context.Context, actor auth.Actor, projectID string) (*ChecklistResponse, error) {
	project, err := s.loadProject(ctx, actor, projectID, s.parties.RequireProjectMember)
	if err != nil {
		return nil, err
	}
	cl, err := s.checklist(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return &ChecklistResponse{ProjectID: project.ID.String(), Checklist: cl}, nil
}

func (s *complianceService) ListUploads(ctx context.Context, actor auth.Actor, docID string) ([]UploadResponse, error) {
	id, err := parseID(docID, "document")
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "compliance document")
	}
	project, err := s.projects.GetByID(ctx, doc.ProjectID)
	if err != nil {
		return nil, loadErr(err, "project")
	}
	if err := s.parties.RequireProjectMember(ctx, actor, project); err != nil {
		return nil, err
	}

	uploads, err := s.uploads.ListByComplianceDoc(ctx, doc.ID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list uploads")
	}
	res := make([]UploadResponse, 0, len(uploads))
	for _, u := range uploads {
		res = append(res, UploadResponse{
			ID:         u.ID.String(),
			FileName:   u.FileName,
			MimeType:   u.MimeType,
			SizeBytes:  u.SizeBytes,
			URL:        u.URL,
			UploadedBy: u.UploadedBy.String(),
			UploadedAt: u.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, nil
}

func (s *complianceService) ExportChecklist(ctx context.Context, actor auth.Actor, projectID string) (*ExportFile, error) {
	project, err := s.loadProject(ctx, actor, projectID, s.parties.RequireProjectMember)
	if err != nil {
		return nil, err
	}
	cl, err := s.checklist(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteChecklist(&buf, project.Title, cl); err != nil {
		return nil, apperror.Internal(err, "failed to render checklist")
	}
	return &ExportFile{
		FileName:    fmt.Sprintf("compliance_%s_%s.xlsx", project.ID, time.Now().Format("20060102")),
		ContentType: export.XLSXContentType,
		Data:        buf.Bytes(),
	}, nil
}

// UploadDocument stores a checklist file and moves the row to SUBMITTED.
// A linked request that is still open follows to UPLOADED.
func (s *complianceService) UploadDocument(ctx context.Context, actor auth.Actor, projectID, category, docName string, file upload.File) (*ComplianceDocResponse, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	docName = strings.TrimSpace(docName)
	if docName == "" {
		return nil, apperror.Validation("doc_name is required")
	}
	if category == "" {
		category, _ = compliance.CategoryOf(docName)
	}
	if _, ok := compliance.LookupCategory(category); !ok {
		return nil, apperror.Validation("unknown compliance category %q", category)
	}
	if !compliance.IsListed(category, docName) {
		return nil, apperror.Validation("%q is not a checklist document of category %s", docName, category)
	}

	project, err := s.loadProject(ctx, actor, projectID, s.parties.RequireProjectNGO)
	if err != nil {
		return nil, err
	}

	checked, err := s.validator.Check(config.ClassProjectCompliance, file)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey(fmt.Sprintf("projects/%s/compliance/%s", project.ID, category), checked.Name)
	url, err := s.store.Put(ctx, key, checked.ContentType, checked.Reader(), checked.Size)
	if err != nil {
		return nil, err
	}

	var doc *model.ComplianceDoc
	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		now := time.Now()
		existing, err := s.docs.FindByKeyForUpdate(txCtx, project.ID, category, docName)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			doc = &model.ComplianceDoc{
				ID:          uuid.New(),
				ProjectID:   project.ID,
				Category:    category,
				DocName:     docName,
				URL:         url,
				Status:      model.DocStatusSubmitted,
				LastUpdated: now,
				Version:     1,
			}
			if err := s.docs.Create(txCtx, doc); err != nil {
				return apperror.Internal(err, "failed to create compliance document")
			}
		case err != nil:
			return apperror.Internal(err, "failed to load compliance document")
		default:
			if !compliance.DocLifecycle.CanTransition(existing.Status, model.DocStatusSubmitted) {
				return apperror.Conflict("document is %s and cannot be replaced", existing.Status)
			}
			existing.URL = url
			existing.Status = model.DocStatusSubmitted
			existing.VerifiedBy = nil
			existing.LastUpdated = now
			if err := s.docs.UpdateWithVersion(txCtx, existing); err != nil {
				return saveErr(err, "compliance document")
			}
			doc = existing
		}

		if err := s.uploads.Create(txCtx, &model.DocumentUpload{
			ComplianceDocID:   &doc.ID,
			DocumentRequestID: doc.RequestID,
			UploadedBy:        actor.UserID,
			FileName:          checked.Name,
			MimeType:          checked.ContentType,
			SizeBytes:         checked.Size,
			StorageKey:        key,
			URL:               url,
		}); err != nil {
			return apperror.Internal(err, "failed to record upload")
		}

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionUploadDocument, doc.ID.String(), doc.DocName, map[string]interface{}{
			"project_id": project.ID.String(),
			"category":   category,
			"url":        url,
		}); err != nil {
			return err
		}

		if doc.RequestID == nil {
			return nil
		}
		return s.advanceRequest(txCtx, *doc.RequestID, url, now, project)
	})
	if err != nil {
		return nil, err
	}

	res := toComplianceDocResponse(doc)
	return &res, nil
}

// advanceRequest moves an open request to UPLOADED and tells its corporate
func (s *complianceService) advanceRequest(ctx context.Context, requestID uuid.UUID, url string, at time.Time, project *model.Project) error {
	req, err := s.requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return loadErr(err, "document request")
	}
	if req.Status != model.RequestStatusPending && req.Status != model.RequestStatusRejected {
		return nil
	}
	req.Status = model.RequestStatusUploaded
	req.FileURL = url
	req.UploadedAt = &at
	if err := s.requests.UpdateWithVersion(ctx, req); err != nil {
		return saveErr(err, "document request")
	}

	corp, err := s.parties.Corporate(ctx, req.CorporateID)
	if err != nil {
		return err
	}
	return s.notifier.Notify(ctx, NotificationInput{
		UserID:   corp.UserID,
		UserRole: model.RoleCorporate,
		Type:     model.NotifyDocumentUploaded,
		Title:    "Requested document uploaded",
		Message:  fmt.Sprintf("%s uploaded %s for %s", ngoName(project), req.DocName, project.Title),
		Link:     fmt.Sprintf("/document-requests/%s", req.ID),
		Metadata: map[string]interface{}{
			"request_id": req.ID.String(),
			"project_id": project.ID.String(),
			"doc_name":   req.DocName,
		},
	})
}

// VerifyDocument records a reviewer decision. Tranches are not affected.
func (s *complianceService) VerifyDocument(ctx context.Context, actor auth.Actor, docID string, req VerifyDocumentRequest) (*ComplianceDocResponse, error) {
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	remarks := strings.TrimSpace(req.Remarks)
	switch status {
	case model.DocStatusVerified, model.DocStatusApproved:
	case model.DocStatusRejected:
		if remarks == "" {
			return nil, apperror.Validation("remarks are required when rejecting a document")
		}
	default:
		return nil, apperror.Validation("status must be VERIFIED, APPROVED or REJECTED")
	}

	id, err := parseID(docID, "document")
	if err != nil {
		return nil, err
	}
	current, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "compliance document")
	}
	project, err := s.projects.GetByID(ctx, current.ProjectID)
	if err != nil {
		return nil, loadErr(err, "project")
	}
	if err := s.parties.RequireProjectFunder(ctx, actor, project); err != nil {
		return nil, err
	}

	var doc *model.ComplianceDoc
	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.docs.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "compliance document")
		}
		switch locked.Status {
		case model.DocStatusSubmitted, model.DocStatusUploaded, model.DocStatusVerified:
		default:
			return apperror.Conflict("document is %s and cannot be reviewed", locked.Status)
		}
		if err := compliance.DocLifecycle.Check(locked.Status, status); err != nil {
			return apperror.Conflict("%s: %v", locked.DocName, err)
		}

		now := time.Now()
		locked.Status = status
		locked.VerifiedBy = actorRef(actor)
		locked.Remarks = remarks
		locked.LastUpdated = now
		if err := s.docs.UpdateWithVersion(txCtx, locked); err != nil {
			return saveErr(err, "compliance document")
		}
		doc = locked

		if locked.RequestID != nil {
			if err := s.mirrorToRequest(txCtx, *locked.RequestID, status, remarks, actor, now); err != nil {
				return err
			}
		}

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionVerifyDocument, locked.ID.String(), locked.DocName, map[string]interface{}{
			"project_id": project.ID.String(),
			"status":     status,
			"remarks":    remarks,
		}); err != nil {
			return err
		}

		if project.NGO == nil {
			return nil
		}
		notifType, title := model.NotifyDocumentVerified, "Document verified"
		message := fmt.Sprintf("%s for %s was marked %s", locked.DocName, project.Title, status)
		if status == model.DocStatusRejected {
			notifType, title = model.NotifyDocumentRejected, "Document rejected"
			message = fmt.Sprintf("%s for %s was rejected: %s", locked.DocName, project.Title, remarks)
		}
		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   project.NGO.UserID,
			UserRole: model.RoleNGO,
			Type:     notifType,
			Title:    title,
			Message:  message,
			Link:     fmt.Sprintf("/projects/%s/compliance", project.ID),
			Metadata: map[string]interface{}{
				"project_id": project.ID.String(),
				"doc_id":     locked.ID.String(),
				"status":     status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("compliance document reviewed",
		zap.String("doc_id", doc.ID.String()),
		zap.String("status", status),
	)
	res := toComplianceDocResponse(doc)
	return &res, nil
}

// mirrorToRequest reflects a checklist decision on the originating request
func (s *complianceService) mirrorToRequest(ctx context.Context, requestID uuid.UUID, docStatus, remarks string, actor auth.Actor, at time.Time) error {
	target := model.RequestStatusVerified
	if docStatus == model.DocStatusRejected {
		target = model.RequestStatusRejected
	}
	req, err := s.requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return loadErr(err, "document request")
	}
	if req.Status == target || !compliance.RequestLifecycle.CanTransition(req.Status, target) {
		return nil
	}
	req.Status = target
	req.ReviewedBy = actorRef(actor)
	req.ReviewedAt = &at
	req.Remarks = remarks
	if err := s.requests.UpdateWithVersion(ctx, req); err != nil {
		return saveErr(err, "document request")
	}
	return nil
}
