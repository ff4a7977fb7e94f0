package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/compliance"
	"csrhub/internal/config"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/internal/storage"
	"csrhub/internal/upload"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type CreateDocumentRequestRequest struct {
	NGOID       string  `json:"ngo_id" binding:"required"`
	ProjectID   *string `json:"project_id"`
	Category    string  `json:"category"`
	DocName     string  `json:"doc_name" binding:"required"`
	Description string  `json:"description"`
	Priority    string  `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Deadline    string  `json:"deadline"` // YYYY-MM-DD
}

type ReviewDocumentRequestRequest struct {
	Status  string `json:"status" binding:"required,oneof=VERIFIED REJECTED"`
	Remarks string `json:"remarks"`
}

type DocumentRequestFilter struct {
	NGOID       string
	CorporateID string
	ProjectID   string
	Status      string
	Page        int
	Limit       int
}

type DocumentRequestResponse struct {
	ID              string  `json:"id"`
	CorporateID     string  `json:"corporate_id"`
	CorporateName   string  `json:"corporate_name,omitempty"`
	NGOID           string  `json:"ngo_id"`
	NGOName         string  `json:"ngo_name,omitempty"`
	ProjectID       *string `json:"project_id"`
	Category        string  `json:"category"`
	DocName         string  `json:"doc_name"`
	RequestType     string  `json:"request_type"`
	Description     string  `json:"description"`
	Priority        string  `json:"priority"`
	Deadline        *string `json:"deadline"`
	Status          string  `json:"status"`
	FileURL         string  `json:"file_url,omitempty"`
	UploadedAt      *string `json:"uploaded_at"`
	ComplianceDocID *string `json:"compliance_doc_id"`
	ReviewedBy      *string `json:"reviewed_by"`
	ReviewedAt      *string `json:"reviewed_at"`
	Remarks         string  `json:"remarks,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type DocumentRequestListResponse struct {
	Items []DocumentRequestResponse `json:"items"`
	Total int64                     `json:"total"`
}

func toDocumentRequestResponse(r *model.DocumentRequest) DocumentRequestResponse {
	res := DocumentRequestResponse{
		ID:              r.ID.String(),
		CorporateID:     r.CorporateID.String(),
		NGOID:           r.NGOID.String(),
		ProjectID:       uuidPtrString(r.ProjectID),
		Category:        r.Category,
		DocName:         r.DocName,
		RequestType:     r.RequestType,
		Description:     r.Description,
		Priority:        r.Priority,
		Status:          r.Status,
		FileURL:         r.FileURL,
		UploadedAt:      formatTimePtr(r.UploadedAt),
		ComplianceDocID: uuidPtrString(r.ComplianceDocID),
		ReviewedBy:      uuidPtrString(r.ReviewedBy),
		ReviewedAt:      formatTimePtr(r.ReviewedAt),
		Remarks:         r.Remarks,
		CreatedAt:       r.CreatedAt.Format(timeLayout),
	}
	if r.Deadline != nil {
		d := r.Deadline.Format(dateLayout)
		res.Deadline = &d
	}
	if r.Corporate != nil {
		res.CorporateName = r.Corporate.CompanyName
	}
	if r.NGO != nil {
		res.NGOName = r.NGO.OrgName
	}
	return res
}

// --- Interface ---

type DocumentRequestService interface {
	RequestDocument(ctx context.Context, actor auth.Actor, req CreateDocumentRequestRequest) (*DocumentRequestResponse, error)
	ListRequests(ctx context.Context, actor auth.Actor, filter DocumentRequestFilter) (*DocumentRequestListResponse, error)
	UploadRequestedDocument(ctx context.Context, actor auth.Actor, requestID string, file upload.File) (*DocumentRequestResponse, error)
	ReviewRequest(ctx context.Context, actor auth.Actor, requestID string, req ReviewDocumentRequestRequest) (*DocumentRequestResponse, error)
}

type documentRequestService struct {
	tm        repository.TransactionManager
	requests  repository.DocumentRequestRepository
	docs      repository.ComplianceDocRepository
	projects  repository.ProjectRepository
	uploads   repository.DocumentUploadRepository
	audit     repository.AuditRepository
	parties   *Parties
	notifier  Notifier
	store     storage.ObjectStore
	validator *upload.Validator
	log       *zap.Logger
}

func NewDocumentRequestService(
	tm repository.TransactionManager,
	requests repository.DocumentRequestRepository,
	docs repository.ComplianceDocRepository,
	projects repository.ProjectRepository,
	uploads repository.DocumentUploadRepository,
	audit repository.AuditRepository,
	parties *Parties,
	notifier Notifier,
	store storage.ObjectStore,
	validator *upload.Validator,
	log *zap.Logger,
) DocumentRequestService {
	return &documentRequestService{
		tm:        tm,
		requests:  requests,
		docs:      docs,
		projects:  projects,
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

// RequestDocument opens a request from a corporate to an NGO. Listed documents
// tied to a project also get their checklist row created or linked.
func (s *documentRequestService) RequestDocument(ctx context.Context, actor auth.Actor, in CreateDocumentRequestRequest) (*DocumentRequestResponse, error) {
	corp, err := s.parties.CorporateOf(ctx, actor)
	if err != nil {
		return nil, err
	}

	docName := strings.TrimSpace(in.DocName)
	category := strings.ToUpper(strings.TrimSpace(in.Category))
	description := strings.TrimSpace(in.Description)
	requestType := model.RequestTypeCompliance

	if compliance.IsCustom(docName) {
		if description == "" {
			return nil, apperror.Validation("description is required for a custom document request")
		}
		requestType = model.RequestTypeCustom
		if category != "" {
			if _, ok := compliance.LookupCategory(category); !ok {
				return nil, apperror.Validation("unknown compliance category %q", category)
			}
		}
	} else {
		if category == "" {
			category, _ = compliance.CategoryOf(docName)
		}
		if !compliance.IsListed(category, docName) {
			return nil, apperror.Validation("%q is not a checklist document of category %q", docName, category)
		}
	}

	priority := strings.ToUpper(strings.TrimSpace(in.Priority))
	switch priority {
	case "":
		priority = model.PriorityMedium
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		return nil, apperror.Validation("priority must be LOW, MEDIUM or HIGH")
	}

	var deadline *time.Time
	if strings.TrimSpace(in.Deadline) != "" {
		d, err := time.Parse(dateLayout, strings.TrimSpace(in.Deadline))
		if err != nil {
			return nil, apperror.Validation("deadline must be formatted as YYYY-MM-DD")
		}
		deadline = &d
	}

	ngoID, err := parseID(in.NGOID, "NGO")
	if err != nil {
		return nil, err
	}
	ngo, err := s.parties.NGO(ctx, ngoID)
	if err != nil {
		return nil, err
	}

	var project *model.Project
	if in.ProjectID != nil && strings.TrimSpace(*in.ProjectID) != "" {
		pid, err := parseID(*in.ProjectID, "project")
		if err != nil {
			return nil, err
		}
		if project, err = s.projects.GetByID(ctx, pid); err != nil {
			return nil, loadErr(err, "project")
		}
		if project.NGOID != ngo.ID {
			return nil, apperror.Validation("project does not belong to this NGO")
		}
		if err := s.parties.RequireProjectFunder(ctx, actor, project); err != nil {
			return nil, err
		}
	}

	request := &model.DocumentRequest{
		ID:          uuid.New(),
		CorporateID: corp.ID,
		NGOID:       ngo.ID,
		Category:    category,
		DocName:     docName,
		RequestType: requestType,
		Description: description,
		Priority:    priority,
		Deadline:    deadline,
		Status:      model.RequestStatusPending,
		Version:     1,
	}
	if project != nil {
		request.ProjectID = &project.ID
	}

	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		var linked *model.ComplianceDoc
		isNew := false
		if project != nil && requestType == model.RequestTypeCompliance {
			existing, err := s.docs.FindByKeyForUpdate(txCtx, project.ID, category, docName)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				linked = &model.ComplianceDoc{
					ID:          uuid.New(),
					ProjectID:   project.ID,
					Category:    category,
					DocName:     docName,
					Status:      model.DocStatusPending,
					LastUpdated: time.Now(),
					Version:     1,
				}
				isNew = true
			case err != nil:
				return apperror.Internal(err, "failed to load compliance document")
			default:
				if err := s.ensureNoOpenRequest(txCtx, existing); err != nil {
					return err
				}
				linked = existing
			}
			request.ComplianceDocID = &linked.ID
		}

		if err := s.requests.Create(txCtx, request); err != nil {
			return apperror.Internal(err, "failed to create document request")
		}

		if linked != nil {
			linked.RequestID = &request.ID
			if isNew {
				if err := s.docs.Create(txCtx, linked); err != nil {
					return apperror.Internal(err, "failed to create compliance document")
				}
			} else if err := s.docs.UpdateWithVersion(txCtx, linked); err != nil {
				return saveErr(err, "compliance document")
			}
		}

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionRequestDocument, request.ID.String(), docName, map[string]interface{}{
			"ngo_id":       ngo.ID.String(),
			"category":     category,
			"request_type": requestType,
			"priority":     priority,
		}); err != nil {
			return err
		}

		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   ngo.UserID,
			UserRole: model.RoleNGO,
			Type:     model.NotifyDocumentRequested,
			Title:    "Document requested",
			Message:  fmt.Sprintf("%s requested %s", corp.CompanyName, requestLabel(request)),
			Link:     fmt.Sprintf("/document-requests/%s", request.ID),
			Metadata: map[string]interface{}{
				"request_id": request.ID.String(),
				"doc_name":   docName,
				"priority":   priority,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	request.Corporate = corp
	request.NGO = ngo
	res := toDocumentRequestResponse(request)
	return &res, nil
}

// ensureNoOpenRequest refuses a second request while the one linked to doc is
// still waiting on the NGO or on review.
func (s *documentRequestService) ensureNoOpenRequest(ctx context.Context, doc *model.ComplianceDoc) error {
	if doc.RequestID == nil {
		return nil
	}
	prev, err := s.requests.GetByIDForUpdate(ctx, *doc.RequestID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return apperror.Internal(err, "failed to load linked document request")
	}
	if prev.Status == model.RequestStatusPending || prev.Status == model.RequestStatusUploaded {
		return apperror.Conflict("%s already has an open request (%s)", doc.DocName, prev.Status)
	}
	return nil
}

func requestLabel(r *model.DocumentRequest) string {
	if r.RequestType == model.RequestTypeCustom {
		return fmt.Sprintf("an additional document: %s", r.Description)
	}
	return r.DocName
}

// ListRequests shows NGOs and corporates their own requests. Admins may filter freely.
func (s *documentRequestService) ListRequests(ctx context.Context, actor auth.Actor, filter DocumentRequestFilter) (*DocumentRequestListResponse, error) {
	repoFilter := repository.DocumentRequestFilter{
		Status: strings.ToUpper(strings.TrimSpace(filter.Status)),
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.ProjectID != "" {
		pid, err := parseID(filter.ProjectID, "project")
		if err != nil {
			return nil, err
		}
		repoFilter.ProjectID = &pid
	}

	switch {
	case actor.IsNGO():
		ngo, err := s.parties.NGOOf(ctx, actor)
		if err != nil {
			return nil, err
		}
		repoFilter.NGOID = &ngo.ID
	case actor.IsCorporate():
		corp, err := s.parties.CorporateOf(ctx, actor)
		if err != nil {
			return nil, err
		}
		repoFilter.CorporateID = &corp.ID
	default:
		if filter.NGOID != "" {
			id, err := parseID(filter.NGOID, "NGO")
			if err != nil {
				return nil, err
			}
			repoFilter.NGOID = &id
		}
		if filter.CorporateID != "" {
			id, err := parseID(filter.CorporateID, "corporate")
			if err != nil {
				return nil, err
			}
			repoFilter.CorporateID = &id
		}
	}

	requests, total, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, apperror.Internal(err, "failed to fetch document requests")
	}
	items := make([]DocumentRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, toDocumentRequestResponse(&requests[i]))
	}
	return &DocumentRequestListResponse{Items: items, Total: total}, nil
}

// UploadRequestedDocument answers a request directly. A linked checklist row
// moves to SUBMITTED when its lifecycle allows it.
func (s *documentRequestService) UploadRequestedDocument(ctx context.Context, actor auth.Actor, requestID string, file upload.File) (*DocumentRequestResponse, error) {
	id, err := parseID(requestID, "document request")
	if err != nil {
		return nil, err
	}
	ngo, err := s.parties.NGOOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "document request")
	}
	if current.NGOID != ngo.ID {
		return nil, apperror.Forbidden("request was sent to another NGO")
	}
	if err := compliance.RequestLifecycle.Check(current.Status, model.RequestStatusUploaded); err != nil {
		return nil, apperror.Conflict("request no longer accepts uploads: %v", err)
	}

	checked, err := s.validator.Check(config.ClassNGOCompliance, file)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey(fmt.Sprintf("ngos/%s/requests/%s", ngo.ID, id), checked.Name)
	url, err := s.store.Put(ctx, key, checked.ContentType, checked.Reader(), checked.Size)
	if err != nil {
		return nil, err
	}

	var result *model.DocumentRequest
	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "document request")
		}
		if err := compliance.RequestLifecycle.Check(req.Status, model.RequestStatusUploaded); err != nil {
			return apperror.Conflict("request no longer accepts uploads: %v", err)
		}

		now := time.Now()
		req.Status = model.RequestStatusUploaded
		req.FileURL = url
		req.UploadedAt = &now
		if err := s.requests.UpdateWithVersion(txCtx, req); err != nil {
			return saveErr(err, "document request")
		}
		result = req

		if req.ComplianceDocID != nil {
			doc, err := s.docs.GetByIDForUpdate(txCtx, *req.ComplianceDocID)
			if err != nil {
				return loadErr(err, "compliance document")
			}
			if compliance.DocLifecycle.CanTransition(doc.Status, model.DocStatusSubmitted) {
				doc.Status = model.DocStatusSubmitted
				doc.URL = url
				doc.VerifiedBy = nil
				doc.LastUpdated = now
				if err := s.docs.UpdateWithVersion(txCtx, doc); err != nil {
					return saveErr(err, "compliance document")
				}
			}
		}

		if err := s.uploads.Create(txCtx, &model.DocumentUpload{
			ComplianceDocID:   req.ComplianceDocID,
			DocumentRequestID: &req.ID,
			UploadedBy:        actor.UserID,
			FileName:          checked.Name,
			MimeType:          checked.ContentType,
			SizeBytes:         checked.Size,
			StorageKey:        key,
			URL:               url,
		}); err != nil {
			return apperror.Internal(err, "failed to record upload")
		}

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionUploadDocument, req.ID.String(), req.DocName, map[string]interface{}{
			"request_id": req.ID.String(),
			"url":        url,
		}); err != nil {
			return err
		}

		corp := current.Corporate
		if corp == nil {
			if corp, err = s.parties.Corporate(txCtx, req.CorporateID); err != nil {
				return err
			}
		}
		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   corp.UserID,
			UserRole: model.RoleCorporate,
			Type:     model.NotifyDocumentUploaded,
			Title:    "Requested document uploaded",
			Message:  fmt.Sprintf("%s uploaded %s", ngo.OrgName, requestLabel(req)),
			Link:     fmt.Sprintf("/document-requests/%s", req.ID),
			Metadata: map[string]interface{}{
				"request_id": req.ID.String(),
				"doc_name":   req.DocName,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	result.Corporate = current.Corporate
	result.NGO = ngo
	res := toDocumentRequestResponse(result)
	return &res, nil
}

// ReviewRequest lets the requesting corporate accept or reject an uploaded document
func (s *documentRequestService) ReviewRequest(ctx context.Context, actor auth.Actor, requestID string, in ReviewDocumentRequestRequest) (*DocumentRequestResponse, error) {
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	remarks := strings.TrimSpace(in.Remarks)
	switch status {
	case model.RequestStatusVerified:
	case model.RequestStatusRejected:
		if remarks == "" {
			return nil, apperror.Validation("remarks are required when rejecting a document")
		}
	default:
		return nil, apperror.Validation("status must be VERIFIED or REJECTED")
	}

	id, err := parseID(requestID, "document request")
	if err != nil {
		return nil, err
	}
	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "document request")
	}
	if !actor.IsAdmin() {
		corp, err := s.parties.CorporateOf(ctx, actor)
		if err != nil {
			return nil, err
		}
		if corp.ID != current.CorporateID {
			return nil, apperror.Forbidden("request was raised by another corporate")
		}
	}

	var result *model.DocumentRequest
	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "document request")
		}
		if req.Status != model.RequestStatusUploaded {
			return apperror.Conflict("request is %s, only UPLOADED requests can be reviewed", req.Status)
		}

		now := time.Now()
		req.Status = status
		req.ReviewedBy = actorRef(actor)
		req.ReviewedAt = &now
		req.Remarks = remarks
		if err := s.requests.UpdateWithVersion(txCtx, req); err != nil {
			return saveErr(err, "document request")
		}
		result = req

		if req.ComplianceDocID != nil {
			doc, err := s.docs.GetByIDForUpdate(txCtx, *req.ComplianceDocID)
			if err != nil {
				return loadErr(err, "compliance document")
			}
			target := model.DocStatusVerified
			if status == model.RequestStatusRejected {
				target = model.DocStatusRejected
			}
			if compliance.DocLifecycle.CanTransition(doc.Status, target) {
				doc.Status = target
				doc.VerifiedBy = actorRef(actor)
				doc.Remarks = remarks
				doc.LastUpdated = now
				if err := s.docs.UpdateWithVersion(txCtx, doc); err != nil {
					return saveErr(err, "compliance document")
				}
			}
		}

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionReviewRequest, req.ID.String(), req.DocName, map[string]interface{}{
			"status":  status,
			"remarks": remarks,
		}); err != nil {
			return err
		}

		ngo := current.NGO
		if ngo == nil {
			if ngo, err = s.parties.NGO(txCtx, req.NGOID); err != nil {
				return err
			}
		}
		notifType, title := model.NotifyDocumentVerified, "Document verified"
		message := fmt.Sprintf("%s was accepted", requestLabel(req))
		if status == model.RequestStatusRejected {
			notifType, title = model.NotifyDocumentRejected, "Document rejected"
			message = fmt.Sprintf("%s was rejected: %s", requestLabel(req), remarks)
		}
		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   ngo.UserID,
			UserRole: model.RoleNGO,
			Type:     notifType,
			Title:    title,
			Message:  message,
			Link:     fmt.Sprintf("/document-requests/%s", req.ID),
			Metadata: map[string]interface{}{
				"request_id": req.ID.String(),
				"status":     status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	result.Corporate = current.Corporate
	result.NGO = current.NGO
	res := toDocumentRequestResponse(result)
	return &res, nil
}
