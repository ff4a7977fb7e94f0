package service

import (
	"context"
	"fmt"
	"strings"

	"csrhub/internal/auth"
	"csrhub/internal/disbursal"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"

	"go.uber.org/zap"
)

// --- DTOs ---

type CreateProjectRequest struct {
	Title        string                `json:"title" binding:"required"`
	Description  string                `json:"description"`
	TargetAmount int64                 `json:"target_amount" binding:"required,gt=0"`
	Location     string                `json:"location"`
	Sector       string                `json:"sector"`
	Milestones   []disbursal.Milestone `json:"milestones" binding:"required,min=1"`
}

type DonationRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Note   string `json:"note"`
}

type ProjectFilter struct {
	Status string
	Sector string
	Page   int
	Limit  int
}

type ProjectResponse struct {
	ID                string            `json:"id"`
	NGOID             string            `json:"ngo_id"`
	NGOName           string            `json:"ngo_name"`
	CorporateID       *string           `json:"corporate_id"`
	CorporateName     string            `json:"corporate_name,omitempty"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	TargetAmount      int64             `json:"target_amount"`
	RaisedAmount      int64             `json:"raised_amount"`
	FundingPercentage int               `json:"funding_percentage"`
	Location          string            `json:"location"`
	Sector            string            `json:"sector"`
	Status            string            `json:"status"`
	Tranches          []TrancheResponse `json:"tranches,omitempty"`
	CreatedAt         string            `json:"created_at"`
}

type ProjectListResponse struct {
	Items []ProjectResponse `json:"items"`
	Total int64             `json:"total"`
}

type DonationResponse struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	CorporateID string `json:"corporate_id"`
	Amount      int64  `json:"amount"`
	Note        string `json:"note"`
	CreatedAt   string `json:"created_at"`
}

func toProjectResponse(p *model.Project) ProjectResponse {
	res := ProjectResponse{
		ID:                p.ID.String(),
		NGOID:             p.NGOID.String(),
		CorporateID:       uuidPtrString(p.CorporateID),
		Title:             p.Title,
		Description:       p.Description,
		TargetAmount:      p.TargetAmount,
		RaisedAmount:      p.RaisedAmount,
		FundingPercentage: p.FundingPercentage(),
		Location:          p.Location,
		Sector:            p.Sector,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt.Format(timeLayout),
	}
	if p.NGO != nil {
		res.NGOName = p.NGO.OrgName
	}
	if p.Corporate != nil {
		res.CorporateName = p.Corporate.CompanyName
	}
	for i := range p.Tranches {
		res.Tranches = append(res.Tranches, toTrancheResponse(&p.Tranches[i]))
	}
	return res
}

// --- Interface ---

type ProjectService interface {
	CreateProject(ctx context.Context, actor auth.Actor, req CreateProjectRequest) (*ProjectResponse, error)
	ListProjects(ctx context.Context, actor auth.Actor, filter ProjectFilter) (*ProjectListResponse, error)
	GetProject(ctx context.Context, actor auth.Actor, id string) (*ProjectResponse, error)
	RecordDonation(ctx context.Context, actor auth.Actor, projectID string, req DonationRequest) (*DonationResponse, error)
}

type projectService struct {
	tm        repository.TransactionManager
	projects  repository.ProjectRepository
	tranches  repository.TrancheRepository
	donations repository.DonationRepository
	audit     repository.AuditRepository
	parties   *Parties
	notifier  Notifier
	log       *zap.Logger
}

func NewProjectService(
	tm repository.TransactionManager,
	projects repository.ProjectRepository,
	tranches repository.TrancheRepository,
	donations repository.DonationRepository,
	audit repository.AuditRepository,
	parties *Parties,
	notifier Notifier,
	log *zap.Logger,
) ProjectService {
	return &projectService{
		tm:        tm,
		projects:  projects,
		tranches:  tranches,
		donations: donations,
		audit:     audit,
		parties:   parties,
		notifier:  notifier,
		log:       log,
	}
}

// --- Implementation ---

func (s *projectService) CreateProject(ctx context.Context, actor auth.Actor, req CreateProjectRequest) (*ProjectResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperror.Validation("title is required")
	}
	ngo, err := s.parties.NGOOf(ctx, actor)
	if err != nil {
		return nil, err
	}

	allocations, err := disbursal.Split(req.TargetAmount, req.Milestones)
	if err != nil {
		return nil, err
	}

	project := &model.Project{
		NGOID:        ngo.ID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		Location:     req.Location,
		Sector:       req.Sector,
		Status:       model.ProjectStatusActive,
	}

	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.Create(txCtx, project); err != nil {
			return apperror.Internal(err, "failed to create project")
		}

		tranches := make([]model.Tranche, 0, len(allocations))
		for _, a := range allocations {
			tranches = append(tranches, model.Tranche{
				ProjectID:       project.ID,
				Sequence:        a.Sequence,
				Percentage:      a.Percentage,
				Amount:          a.Amount,
				UnlockCondition: a.UnlockCondition,
				Status:          model.TrancheLocked,
				Version:         1,
			})
		}
		if err := s.tranches.CreateBatch(txCtx, tranches); err != nil {
			return apperror.Internal(err, "failed to create tranche plan")
		}
		project.Tranches = tranches

		return writeAudit(txCtx, s.audit, actorRef(actor), model.ActionCreateProject, project.ID.String(), project.Title, map[string]interface{}{
			"target_amount": project.TargetAmount,
			"tranches":      len(tranches),
		})
	})
	if err != nil {
		return nil, err
	}

	project.NGO = ngo
	s.log.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("ngo_id", ngo.ID.String()),
		zap.Int("tranches", len(project.Tranches)),
	)
	res := toProjectResponse(project)
	return &res, nil
}

// ListProjects scopes NGOs to their own projects. Corporates and admins browse everything.
func (s *projectService) ListProjects(ctx context.Context, actor auth.Actor, filter ProjectFilter) (*ProjectListResponse, error) {
	repoFilter := repository.ProjectFilter{
		Status: filter.Status,
		Sector: filter.Sector,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if actor.IsNGO() {
		ngo, err := s.parties.NGOOf(ctx, actor)
		if err != nil {
			return nil, err
		}
		repoFilter.NGOID = &ngo.ID
	}

	projects, total, err := s.projects.List(ctx, repoFilter)
	if err != nil {
		return nil, apperror.Internal(err, "failed to fetch projects")
	}
	items := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectResponse(&projects[i]))
	}
	return &ProjectListResponse{Items: items, Total: total}, nil
}

func (s *projectService) GetProject(ctx context.Context, actor auth.Actor, id string) (*ProjectResponse, error) {
	pid, err := parseID(id, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, pid)
	if err != nil {
		return nil, loadErr(err, "project")
	}
	if actor.IsNGO() {
		if err := s.parties.RequireProjectNGO(ctx, actor, project); err != nil {
			return nil, err
		}
	}
	res := toProjectResponse(project)
	return &res, nil
}

// RecordDonation adds to the raised amount. The first donor becomes the project's
// funding corporate; other corporates are turned away once one is set.
func (s *projectService) RecordDonation(ctx context.Context, actor auth.Actor, projectID string, req DonationRequest) (*DonationResponse, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("donation amount must be positive")
	}
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	corp, err := s.parties.CorporateOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, pid)
	if err != nil {
		return nil, loadErr(err, "project")
	}

	donation := &model.Donation{
		ProjectID:   pid,
		CorporateID: corp.ID,
		Amount:      req.Amount,
		Note:        req.Note,
	}

	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.projects.GetByIDForUpdate(txCtx, pid)
		if err != nil {
			return loadErr(err, "project")
		}
		if locked.Status != model.ProjectStatusActive {
			return apperror.Conflict("project is %s and no longer accepts donations", locked.Status)
		}
		if locked.CorporateID != nil && *locked.CorporateID != corp.ID {
			return apperror.Conflict("project is already funded by another corporate")
		}
		if locked.CorporateID == nil {
			if err := s.projects.SetCorporate(txCtx, pid, corp.ID); err != nil {
				return apperror.Internal(err, "failed to link funding corporate")
			}
		}

		if err := s.donations.Create(txCtx, donation); err != nil {
			return apperror.Internal(err, "failed to record donation")
		}
		if err := s.projects.AddRaised(txCtx, pid, req.Amount); err != nil {
			return apperror.Internal(err, "failed to update raised amount")
		}

		if err := writeAudit(txCtx, s.audit, actorRef(actor), model.ActionRecordDonation, pid.String(), project.Title, map[string]interface{}{
			"amount":       req.Amount,
			"corporate_id": corp.ID.String(),
		}); err != nil {
			return err
		}

		if project.NGO == nil {
			return nil
		}
		return s.notifier.Notify(txCtx, NotificationInput{
			UserID:   project.NGO.UserID,
			UserRole: model.RoleNGO,
			Type:     model.NotifyDonationReceived,
			Title:    "Donation received",
			Message:  fmt.Sprintf("%s donated %d to %s", corp.CompanyName, req.Amount, project.Title),
			Link:     fmt.Sprintf("/projects/%s", pid),
			Metadata: map[string]interface{}{
				"project_id":   pid.String(),
				"corporate_id": corp.ID.String(),
				"amount":       req.Amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return &DonationResponse{
		ID:          donation.ID.String(),
		ProjectID:   pid.String(),
		CorporateID: corp.ID.String(),
		Amount:      donation.Amount,
		Note:        donation.Note,
		CreatedAt:   donation.CreatedAt.Format(timeLayout),
	}, nil
}
