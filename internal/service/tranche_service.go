package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/config"
	"csrhub/internal/disbursal"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/internal/storage"
	"csrhub/internal/upload"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Review actions
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// --- DTOs ---

type ReviewTrancheRequest struct {
	Action  string `json:"action" binding:"required,oneof=APPROVE REJECT"`
	Remarks string `json:"remarks"`
}

// EvidenceInput carries the release artifacts. Either part may be omitted
// when it was uploaded earlier.
type EvidenceInput struct {
	UtilizationCertificate *upload.File
	GeoTag                 string
}

type TrancheResponse struct {
	ID               string   `json:"id"`
	ProjectID        string   `json:"project_id"`
	Sequence         int      `json:"sequence"`
	Percentage       string   `json:"percentage"`
	Amount           int64    `json:"amount"`
	UnlockCondition  string   `json:"unlock_condition"`
	Status           string   `json:"status"`
	ReleaseRequested bool     `json:"release_requested"`
	IsBlocked        bool     `json:"is_blocked"`
	BlockReason      string   `json:"block_reason,omitempty"`
	ProofDocURL      string   `json:"proof_doc_url,omitempty"`
	GeoTag           string   `json:"geo_tag,omitempty"`
	Remarks          string   `json:"remarks,omitempty"`
	RequestedAt      *string  `json:"requested_at"`
	ApprovedBy       *string  `json:"approved_by"`
	ApprovedAt       *string  `json:"approved_at"`
	DisbursedAt      *string  `json:"disbursed_at"`
	NextStatuses     []string `json:"next_statuses"`
	Version          int      `json:"version"`
}

func toTrancheResponse(t *model.Tranche) TrancheResponse {
	return TrancheResponse{
		ID:               t.ID.String(),
		ProjectID:        t.ProjectID.String(),
		Sequence:         t.Sequence,
		Percentage:       t.Percentage.StringFixed(2),
		Amount:           t.Amount,
		UnlockCondition:  t.UnlockCondition,
		Status:           t.Status,
		ReleaseRequested: t.ReleaseRequested,
		IsBlocked:        t.IsBlocked,
		BlockReason:      t.BlockReason,
		ProofDocURL:      t.ProofDocURL,
		GeoTag:           t.GeoTag,
		Remarks:          t.Remarks,
		RequestedAt:      formatTimePtr(t.RequestedAt),
		ApprovedBy:       uuidPtrString(t.ApprovedBy),
		ApprovedAt:       formatTimePtr(t.ApprovedAt),
		DisbursedAt:      formatTimePtr(t.DisbursedAt),
		NextStatuses:     disbursal.TrancheLifecycle.GetAllowedTransitions(t.Status),
		Version:          t.Version,
	}
}

// --- Interface ---

type TrancheService interface {
	ListTranches(ctx context.Context, actor auth.Actor, projectID string) ([]TrancheResponse, error)
	GetTranche(ctx context.Context, actor auth.Actor, id string) (*TrancheResponse, error)
	UploadEvidence(ctx context.Context, actor auth.Actor, id string, in EvidenceInput) (*TrancheResponse, error)
	RequestRelease(ctx context.Context, actor auth.Actor, id string) (*TrancheResponse, error)
	Review(ctx context.Context, actor auth.Actor, id string, req ReviewTrancheRequest) (*TrancheResponse, error)
	MarkDisbursed(ctx context.Context, actor auth.Actor, id string) (*TrancheResponse, error)
}

type trancheService struct {
	tm        repository.TransactionManager
	tranches  repository.TrancheRepository
	projects  repository.ProjectRepository
	uploads   repository.DocumentUploadRepository
	audit     repository.AuditRepository
	parties   *Parties
	notifier  Notifier
	store     storage.ObjectStore
	validator *upload.Validator
	log       *zap.Logger
}

func NewTrancheService(
	tm repository.TransactionManager,
	tranches repository.TrancheRepository,
	projects repository.ProjectRepository,
	uploads repository.DocumentUploadRepository,
	audit repository.AuditRepository,
	parties *Parties,
	notifier Notifier,
	store storage.ObjectStore,
	validator *upload.Validator,
	log *zap.Logger,
) TrancheService {
	return &trancheService{
		tm:        tm,
		tranches:  tranches,
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

func (s *trancheService) ListTranches(ctx context.Context, actor auth.Actor, projectID string) ([]TrancheResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, pid)
	if err != nil {
		return nil, loadErr(err, "project")
	}
	if err := s.parties.RequireProjectMember(ctx, actor, project); err != nil {
		return nil, err
	}

	tranches, err := s.tranches.ListByProject(ctx, pid)
	if err != nil {
		return nil, apperror.Internal(err, "failed to fetch tranches")
	}
	result := make([]TrancheResponse, 0, len(tranches))
	for i := range tranches {
		result = append(result, toTrancheResponse(&tranches[i]))
	}
	return result, nil
}

func (s *trancheService) GetTranche(ctx context.Context, actor auth.Actor, id string) (*TrancheResponse, error) {
	tranche, _, err := s.loadWithProject(ctx, actor, id, s.parties.RequireProjectMember)
	if err != nil {
		return nil, err
	}
	res := toTrancheResponse(tranche)
	return &res, nil
}

type projectGuard func(ctx context.Context, actor auth.Actor, project *model.Project) error

func (s *trancheService) loadWithProject(ctx context.Context, actor auth.Actor, id string, guard projectGuard) (*model.Tranche, *model.Project, error) {
	tid, err := parseID(id, "tranche")
	if err != nil {
		return nil, nil, err
	}
	tranche, err := s.tranches.GetByID(ctx, tid)
	if err != nil {
		return nil, nil, loadErr(err, "tranche")
	}
	project, err := s.projects.GetByID(ctx, tranche.ProjectID)
	if err != nil {
		return nil, nil, loadErr(err, "project")
	}
	if err := guard(ctx, actor, project); err != nil {
		return nil, nil, err
	}
	return tranche, project, nil
}

// mutate re-reads the tranche under a row lock, applies fn and saves it with
// a version check. fn must leave the tranche in its new state.
func (s *trancheService) mutate(ctx context.Context, id uuid.UUID, fn func(txCtx context.Context, t *model.Tranche) error) (*model.Tranche, error) {
	var result *model.Tranche
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		tranche, err := s.tranches.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "tranche")
		}
		if err := fn(txCtx, tranche); err != nil {
			return err
		}
		if err := s.tranches.UpdateWithVersion(txCtx, tranche); err != nil {
			return saveErr(err, "tranche")
		}
		result = tranche
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func moveTranche(t *model.Tranche, to string) error {
	if !disbursal.TrancheLifecycle.CanTransition(t.Status, to) {
		return apperror.Conflict("tranche %d is %s and cannot move to %s", t.Sequence, t.Status, to)
	}
	t.SetStatus(to)
	return nil
}

func (s *trancheService) UploadEvidence(ctx context.Context, actor auth.Actor, id string, in EvidenceInput) (*TrancheResponse, error) {
	if in.UtilizationCertificate == nil && strings.TrimSpace(in.GeoTag) == "" {
		return nil, apperror.Validation("a utilization certificate or a geo-tag is required")
	}

	current, project, err := s.loadWithProject(ctx, actor, id, s.parties.RequireProjectNGO)
	if err != nil {
		return nil, err
	}
	if current.Status != model.TrancheLocked && current.Status != model.TrancheBlocked {
		return nil, apperror.Conflict("evidence can only be attached to a locked or blocked tranche, tranche is %s", current.Status)
	}

	var geoTag string
	if strings.TrimSpace(in.GeoTag) != "" {
		if geoTag, err = disbursal.NormalizeGeoTag(in.GeoTag); err != nil {
			return nil, err
		}
	}

	// The file goes to storage before the row lock is taken
	var stored *model.DocumentUpload
	if in.UtilizationCertificate != nil {
		checked, err := s.validator.Check(config.ClassProjectCompliance, *in.UtilizationCertificate)
		if err != nil {
			return nil, err
		}
		key := storage.ObjectKey(fmt.Sprintf("tranches/%s/%s", project.ID, current.ID), checked.Name)
		url, err := s.store.Put(ctx, key, checked.ContentType, checked.Reader(), checked.Size)
		if err != nil {
			return nil, err
		}
		stored = &model.DocumentUpload{
			UploadedBy: actor.UserID,
			FileName:   checked.Name,
			MimeType:   checked.ContentType,
			SizeBytes:  checked.Size,
			StorageKey: key,
			URL:        url,
		}
	}

	wasBlocked := false
	tranche, err := s.mutate(ctx, current.ID, func(txCtx context.Context, t *model.Tranche) error {
		if t.Status == model.TrancheBlocked {
			if err := moveTranche(t, model.TrancheLocked); err != nil {
				return err
			}
			wasBlocked = true
		} else if t.Status != model.TrancheLocked {
			return apperror.Conflict("tranche %d is %s", t.Sequence, t.Status)
		}

		if stored != nil {
			if err := s.uploads.Create(txCtx, stored); err != nil {
				return apperror.Internal(err, "failed to record upload")
			}
			t.ProofDocURL = stored.URL
		}
		if geoTag != "" {
			t.GeoTag = geoTag
		}

		return writeAudit(txCtx, s.audit, actorRef(actor), model.ActionUploadEvidence, t.ID.String(), describeTranche(t), map[string]interface{}{
			"project_id": t.ProjectID.String(),
			"has_uc":     stored != nil,
			"has_geotag": geoTag != "",
			"unblocked":  wasBlocked,
		})
	})
	if err != nil {
		return nil, err
	}

	res := toTrancheResponse(tranche)
	return &res, nil
}

func (s *trancheService) RequestRelease(ctx context.Context, actor auth.Actor, id string) (*TrancheResponse, error) {
	current, project, err := s.loadWithProject(ctx, actor, id, s.parties.RequireProjectNGO)
	if err != nil {
		return nil, err
	}

	tranche, err := s.mutate(ctx, current.ID, func(txCtx context.Context, t *model.Tranche) error {
		if t.Status != model.TrancheLocked {
			return apperror.Conflict("only a locked tranche can request release, tranche %d is %s", t.Sequence, t.Status)
		}
		if !t.HasEvidence() {
			return apperror.Validation("utilization certificate and geo-tag are both required before requesting release")
		}
		if err := moveTranche(t, model.TranchePendingApproval); err != nil {
			return err
		}
		now := time.Now()
		t.RequestedAt = &now

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionRequestRelease, t.ID.String(), describeTranche(t), map[string]interface{}{
			"project_id": t.ProjectID.String(),
			"amount":     t.Amount,
		}); err != nil {
			return err
		}

		if project.Corporate == nil {
			return nil
		}
		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   project.Corporate.UserID,
			UserRole: model.RoleCorporate,
			Type:     model.NotifyTrancheReleaseRequested,
			Title:    "Tranche release requested",
			Message:  fmt.Sprintf("%s requested release of tranche %d (%d) for %s", ngoName(project), t.Sequence, t.Amount, project.Title),
			Link:     fmt.Sprintf("/projects/%s/tranches", project.ID),
			Metadata: trancheMeta(project, t),
		})
	})
	if err != nil {
		return nil, err
	}

	res := toTrancheResponse(tranche)
	return &res, nil
}

func (s *trancheService) Review(ctx context.Context, actor auth.Actor, id string, req ReviewTrancheRequest) (*TrancheResponse, error) {
	action := strings.ToUpper(strings.TrimSpace(req.Action))
	remarks := strings.TrimSpace(req.Remarks)
	switch action {
	case ActionApprove:
	case ActionReject:
		if remarks == "" {
			return nil, apperror.Validation("a reason is required to reject a release request")
		}
	default:
		return nil, apperror.Validation("action must be APPROVE or REJECT")
	}

	current, project, err := s.loadWithProject(ctx, actor, id, s.parties.RequireProjectFunder)
	if err != nil {
		return nil, err
	}

	tranche, err := s.mutate(ctx, current.ID, func(txCtx context.Context, t *model.Tranche) error {
		if t.Status != model.TranchePendingApproval {
			return apperror.Conflict("tranche %d is %s, only PENDING_APPROVAL can be reviewed", t.Sequence, t.Status)
		}

		var (
			notifType, title, message, auditAction string
		)
		if action == ActionApprove {
			if err := moveTranche(t, model.TrancheReleased); err != nil {
				return err
			}
			now := time.Now()
			t.ApprovedBy = actorRef(actor)
			t.ApprovedAt = &now
			t.Remarks = remarks
			notifType, auditAction = model.NotifyTrancheApproved, model.ActionApproveTranche
			title = "Tranche approved"
			message = fmt.Sprintf("Tranche %d of %s (%d) was approved for release", t.Sequence, project.Title, t.Amount)
		} else {
			if err := moveTranche(t, model.TrancheBlocked); err != nil {
				return err
			}
			t.BlockReason = remarks
			t.Remarks = remarks
			notifType, auditAction = model.NotifyTrancheRejected, model.ActionRejectTranche
			title = "Tranche release rejected"
			message = fmt.Sprintf("Tranche %d of %s was rejected: %s", t.Sequence, project.Title, remarks)
		}

		if err := writeAudit(txCtx, s.audit, actorRef(actor), auditAction, t.ID.String(), describeTranche(t), map[string]interface{}{
			"project_id": t.ProjectID.String(),
			"remarks":    remarks,
		}); err != nil {
			return err
		}

		if project.NGO == nil {
			return nil
		}
		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   project.NGO.UserID,
			UserRole: model.RoleNGO,
			Type:     notifType,
			Title:    title,
			Message:  message,
			Link:     fmt.Sprintf("/projects/%s/tranches", project.ID),
			Metadata: trancheMeta(project, t),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tranche reviewed",
		zap.String("tranche_id", tranche.ID.String()),
		zap.String("action", action),
		zap.String("status", tranche.Status),
	)
	res := toTrancheResponse(tranche)
	return &res, nil
}

func (s *trancheService) MarkDisbursed(ctx context.Context, actor auth.Actor, id string) (*TrancheResponse, error) {
	current, project, err := s.loadWithProject(ctx, actor, id, s.parties.RequireProjectFunder)
	if err != nil {
		return nil, err
	}

	tranche, err := s.mutate(ctx, current.ID, func(txCtx context.Context, t *model.Tranche) error {
		if err := moveTranche(t, model.TrancheDisbursed); err != nil {
			return err
		}
		now := time.Now()
		t.DisbursedAt = &now

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionDisburseTranche, t.ID.String(), describeTranche(t), map[string]interface{}{
			"project_id": t.ProjectID.String(),
			"amount":     t.Amount,
		}); err != nil {
			return err
		}

		if project.NGO == nil {
			return nil
		}
		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   project.NGO.UserID,
			UserRole: model.RoleNGO,
			Type:     model.NotifyTrancheDisbursed,
			Title:    "Funds disbursed",
			Message:  fmt.Sprintf("Tranche %d of %s (%d) has been disbursed", t.Sequence, project.Title, t.Amount),
			Link:     fmt.Sprintf("/projects/%s/tranches", project.ID),
			Metadata: trancheMeta(project, t),
		})
	})
	if err != nil {
		return nil, err
	}

	res := toTrancheResponse(tranche)
	return &res, nil
}

func trancheMeta(project *model.Project, t *model.Tranche) map[string]interface{} {
	return map[string]interface{}{
		"project_id": project.ID.String(),
		"tranche_id": t.ID.String(),
		"sequence":   t.Sequence,
		"amount":     t.Amount,
		"status":     t.Status,
	}
}

func ngoName(project *model.Project) string {
	if project.NGO != nil && project.NGO.OrgName != "" {
		return project.NGO.OrgName
	}
	return "The NGO"
}
