package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s id", what)
	}
	return id, nil
}

// loadErr turns a repository read failure into NotFound or Internal
func loadErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s not found", what)
	}
	return apperror.Internal(err, "failed to load %s", what)
}

// saveErr turns a versioned write failure into StateConflict or Internal
func saveErr(err error, what string) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperror.Conflict("%s was modified by another request, reload and retry", what)
	}
	return apperror.Internal(err, "failed to update %s", what)
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return apperror.Internal(err, "failed to encode audit details")
	}
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, &entry); err != nil {
		return apperror.Internal(err, "failed to write audit log")
	}
	return nil
}

func actorRef(actor auth.Actor) *uuid.UUID {
	id := actor.UserID
	return &id
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// Parties resolves who may act on a project
type Parties struct {
	repoNGOs       repository.NGORepository
	repoCorporates repository.CorporateRepository
}

func NewParties(ngos repository.NGORepository, corporates repository.CorporateRepository) *Parties {
	return &Parties{repoNGOs: ngos, repoCorporates: corporates}
}

// NGOOf returns the NGO profile owned by actor
func (p *Parties) NGOOf(ctx context.Context, actor auth.Actor) (*model.NGO, error) {
	if !actor.IsNGO() {
		return nil, apperror.Forbidden("only NGO users can perform this action")
	}
	ngo, err := p.repoNGOs.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Forbidden("no NGO profile is linked to this user")
		}
		return nil, apperror.Internal(err, "failed to load NGO profile")
	}
	return ngo, nil
}

// CorporateOf returns the corporate profile owned by actor
func (p *Parties) CorporateOf(ctx context.Context, actor auth.Actor) (*model.Corporate, error) {
	if !actor.IsCorporate() {
		return nil, apperror.Forbidden("only corporate users can perform this action")
	}
	corp, err := p.repoCorporates.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Forbidden("no corporate profile is linked to this user")
		}
		return nil, apperror.Internal(err, "failed to load corporate profile")
	}
	return corp, nil
}

// RequireProjectNGO allows only the NGO that owns project
func (p *Parties) RequireProjectNGO(ctx context.Context, actor auth.Actor, project *model.Project) error {
	ngo, err := p.NGOOf(ctx, actor)
	if err != nil {
		return err
	}
	if ngo.ID != project.NGOID {
		return apperror.Forbidden("project belongs to another NGO")
	}
	return nil
}

// RequireProjectFunder allows admins and the corporate funding project
func (p *Parties) RequireProjectFunder(ctx context.Context, actor auth.Actor, project *model.Project) error {
	if actor.IsAdmin() {
		return nil
	}
	corp, err := p.CorporateOf(ctx, actor)
	if err != nil {
		return err
	}
	if project.CorporateID == nil || *project.CorporateID != corp.ID {
		return apperror.Forbidden("project is funded by another corporate")
	}
	return nil
}

// RequireProjectMember allows admins, the owning NGO and the funding corporate
func (p *Parties) RequireProjectMember(ctx context.Context, actor auth.Actor, project *model.Project) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsNGO():
		return p.RequireProjectNGO(ctx, actor, project)
	case actor.IsCorporate():
		return p.RequireProjectFunder(ctx, actor, project)
	}
	return apperror.Forbidden("access denied")
}

func describeTranche(t *model.Tranche) string {
	return fmt.Sprintf("Tranche %d", t.Sequence)
}

// NGO loads an NGO profile by id
func (p *Parties) NGO(ctx context.Context, id uuid.UUID) (*model.NGO, error) {
	ngo, err := p.repoNGOs.GetByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "NGO")
	}
	return ngo, nil
}

// Corporate loads a corporate profile by id
func (p *Parties) Corporate(ctx context.Context, id uuid.UUID) (*model.Corporate, error) {
	corp, err := p.repoCorporates.GetByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "corporate")
	}
	return corp, nil
}
