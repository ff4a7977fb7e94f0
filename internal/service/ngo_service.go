package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/compliance"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

// UpdateCertificatesRequest carries YYYY-MM-DD dates. An empty string clears the date,
// a missing field leaves it unchanged.
type UpdateCertificatesRequest struct {
	Validity12A     *string `json:"validity_12a"`
	Validity80G     *string `json:"validity_80g"`
	FCRARenewalDate *string `json:"fcra_renewal_date"`
}

type FreshnessResponse struct {
	NGOID string `json:"ngo_id"`
	compliance.Report
}

type NGOResponse struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	OrgName         string            `json:"org_name"`
	RegistrationNo  string            `json:"registration_no"`
	Validity12A     *string           `json:"validity_12a"`
	Validity80G     *string           `json:"validity_80g"`
	FCRARenewalDate *string           `json:"fcra_renewal_date"`
	TrustScore      int               `json:"trust_score"`
	Freshness       compliance.Report `json:"freshness"`
}

type TrustScoreResponse struct {
	NGOID           string            `json:"ngo_id"`
	TrustScore      int               `json:"trust_score"`
	AvgCompleteness int               `json:"avg_completeness"`
	SubmittedDocs   int               `json:"submitted_docs"`
	VerifiedDocs    int               `json:"verified_docs"`
	Freshness       compliance.Report `json:"freshness"`
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func (s *ngoService) toNGOResponse(n *model.NGO, now time.Time) NGOResponse {
	return NGOResponse{
		ID:              n.ID.String(),
		UserID:          n.UserID.String(),
		OrgName:         n.OrgName,
		RegistrationNo:  n.RegistrationNo,
		Validity12A:     formatDatePtr(n.Validity12A),
		Validity80G:     formatDatePtr(n.Validity80G),
		FCRARenewalDate: formatDatePtr(n.FCRARenewalDate),
		TrustScore:      n.TrustScore,
		Freshness:       compliance.Evaluate(*n, now, s.threshold),
	}
}

// --- Interface ---

type NGOService interface {
	GetNGO(ctx context.Context, id string) (*NGOResponse, error)
	UpdateCertificates(ctx context.Context, actor auth.Actor, id string, req UpdateCertificatesRequest) (*NGOResponse, error)
	GetFreshness(ctx context.Context, id string) (*FreshnessResponse, error)
	RefreshTrustScore(ctx context.Context, actor auth.Actor, id string) (*TrustScoreResponse, error)

	// Sweep operations used by the scheduler
	RefreshAllTrustScores(ctx context.Context) (int, error)
	RemindExpiring(ctx context.Context, now time.Time) (int, error)
}

type ngoService struct {
	tm        repository.TransactionManager
	ngos      repository.NGORepository
	projects  repository.ProjectRepository
	docs      repository.ComplianceDocRepository
	notifs    repository.NotificationRepository
	audit     repository.AuditRepository
	parties   *Parties
	notifier  Notifier
	threshold time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewNGOService(
	tm repository.TransactionManager,
	ngos repository.NGORepository,
	projects repository.ProjectRepository,
	docs repository.ComplianceDocRepository,
	notifs repository.NotificationRepository,
	audit repository.AuditRepository,
	parties *Parties,
	notifier Notifier,
	threshold time.Duration,
	log *zap.Logger,
) NGOService {
	if threshold <= 0 {
		threshold = compliance.DefaultExpiryThreshold
	}
	return &ngoService{
		tm:        tm,
		ngos:      ngos,
		projects:  projects,
		docs:      docs,
		notifs:    notifs,
		audit:     audit,
		parties:   parties,
		notifier:  notifier,
		threshold: threshold,
		log:       log,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *ngoService) load(ctx context.Context, id string) (*model.NGO, error) {
	ngoID, err := parseID(id, "NGO")
	if err != nil {
		return nil, err
	}
	return s.parties.NGO(ctx, ngoID)
}

func (s *ngoService) GetNGO(ctx context.Context, id string) (*NGOResponse, error) {
	ngo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res := s.toNGOResponse(ngo, s.now())
	return &res, nil
}

func (s *ngoService) GetFreshness(ctx context.Context, id string) (*FreshnessResponse, error) {
	ngo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FreshnessResponse{
		NGOID:  ngo.ID.String(),
		Report: compliance.Evaluate(*ngo, s.now(), s.threshold),
	}, nil
}

func (s *ngoService) requireOwnerOrAdmin(ctx context.Context, actor auth.Actor, ngo *model.NGO) error {
	if actor.IsAdmin() {
		return nil
	}
	own, err := s.parties.NGOOf(ctx, actor)
	if err != nil {
		return err
	}
	if own.ID != ngo.ID {
		return apperror.Forbidden("cannot modify another NGO")
	}
	return nil
}

func parseDateField(raw *string, current *time.Time, field string) (*time.Time, error) {
	if raw == nil {
		return current, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, apperror.Validation("%s must be formatted as YYYY-MM-DD", field)
	}
	return &d, nil
}

func (s *ngoService) UpdateCertificates(ctx context.Context, actor auth.Actor, id string, req UpdateCertificatesRequest) (*NGOResponse, error) {
	ngo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrAdmin(ctx, actor, ngo); err != nil {
		return nil, err
	}

	if ngo.Validity12A, err = parseDateField(req.Validity12A, ngo.Validity12A, "validity_12a"); err != nil {
		return nil, err
	}
	if ngo.Validity80G, err = parseDateField(req.Validity80G, ngo.Validity80G, "validity_80g"); err != nil {
		return nil, err
	}
	if ngo.FCRARenewalDate, err = parseDateField(req.FCRARenewalDate, ngo.FCRARenewalDate, "fcra_renewal_date"); err != nil {
		return nil, err
	}

	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ngos.UpdateCertificates(txCtx, ngo); err != nil {
			return apperror.Internal(err, "failed to update certificates")
		}
		return writeAudit(txCtx, s.audit, actorRef(actor), model.ActionUpdateCertificates, ngo.ID.String(), ngo.OrgName, map[string]interface{}{
			"validity_12a":      formatDatePtr(ngo.Validity12A),
			"validity_80g":      formatDatePtr(ngo.Validity80G),
			"fcra_renewal_date": formatDatePtr(ngo.FCRARenewalDate),
		})
	})
	if err != nil {
		return nil, err
	}

	res := s.toNGOResponse(ngo, s.now())
	return &res, nil
}

// computeTrust gathers the score inputs across every project of the NGO
func (s *ngoService) computeTrust(ctx context.Context, ngo *model.NGO, now time.Time) (compliance.TrustInputs, error) {
	in := compliance.TrustInputs{Freshness: compliance.Evaluate(*ngo, now, s.threshold)}

	projectIDs, err := s.projects.ListIDsByNGO(ctx, ngo.ID)
	if err != nil {
		return in, apperror.Internal(err, "failed to list NGO projects")
	}
	docs, err := s.docs.ListByProjects(ctx, projectIDs)
	if err != nil {
		return in, apperror.Internal(err, "failed to fetch compliance documents")
	}

	byProject := make(map[uuid.UUID][]model.ComplianceDoc, len(projectIDs))
	for _, d := range docs {
		byProject[d.ProjectID] = append(byProject[d.ProjectID], d)
		if compliance.CountsAsSubmitted(d.Status) {
			in.SubmittedDocs++
			if compliance.CountsAsVerified(d.Status) {
				in.VerifiedDocs++
			}
		}
	}

	if len(projectIDs) > 0 {
		sum := 0
		for _, pid := range projectIDs {
			sum += compliance.BuildChecklist(byProject[pid]).Completeness
		}
		in.AvgCompleteness = (sum + len(projectIDs)/2) / len(projectIDs)
	}
	return in, nil
}

func (s *ngoService) refresh(ctx context.Context, ngo *model.NGO, actorID *uuid.UUID) (*TrustScoreResponse, error) {
	in, err := s.computeTrust(ctx, ngo, s.now())
	if err != nil {
		return nil, err
	}
	score := compliance.TrustScore(in)

	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ngos.UpdateTrustScore(txCtx, ngo.ID, score); err != nil {
			return apperror.Internal(err, "failed to save trust score")
		}
		return writeAudit(txCtx, s.audit, actorID, model.ActionRefreshTrustScore, ngo.ID.String(), ngo.OrgName, map[string]interface{}{
			"previous": ngo.TrustScore,
			"score":    score,
		})
	})
	if err != nil {
		return nil, err
	}
	ngo.TrustScore = score

	return &TrustScoreResponse{
		NGOID:           ngo.ID.String(),
		TrustScore:      score,
		AvgCompleteness: in.AvgCompleteness,
		SubmittedDocs:   in.SubmittedDocs,
		VerifiedDocs:    in.VerifiedDocs,
		Freshness:       in.Freshness,
	}, nil
}

func (s *ngoService) RefreshTrustScore(ctx context.Context, actor auth.Actor, id string) (*TrustScoreResponse, error) {
	ngo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrAdmin(ctx, actor, ngo); err != nil {
		return nil, err
	}
	return s.refresh(ctx, ngo, actorRef(actor))
}

// RefreshAllTrustScores recomputes every NGO. One failure does not stop the sweep.
func (s *ngoService) RefreshAllTrustScores(ctx context.Context) (int, error) {
	ngos, err := s.ngos.ListAll(ctx)
	if err != nil {
		return 0, apperror.Internal(err, "failed to list NGOs")
	}
	updated := 0
	for i := range ngos {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}
		if _, err := s.refresh(ctx, &ngos[i], nil); err != nil {
			s.log.Warn("trust score refresh failed", zap.String("ngo_id", ngos[i].ID.String()), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

func certificateDate(ngo *model.NGO, label string) *time.Time {
	switch label {
	case "12A":
		return ngo.Validity12A
	case "80G":
		return ngo.Validity80G
	case "FCRA":
		return ngo.FCRARenewalDate
	}
	return nil
}

// RemindExpiring notifies NGO users about certificates that expired or expire
// within the threshold, at most once per NGO and certificate per day.
func (s *ngoService) RemindExpiring(ctx context.Context, now time.Time) (int, error) {
	ngos, err := s.ngos.ListAll(ctx)
	if err != nil {
		return 0, apperror.Internal(err, "failed to list NGOs")
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sent := 0
	for i := range ngos {
		ngo := &ngos[i]
		urgent := compliance.Evaluate(*ngo, now, s.threshold).Urgent()
		labels := make([]string, 0, len(urgent))
		for label := range urgent {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		for _, label := range labels {
			exists, err := s.notifs.ExistsSince(ctx, ngo.UserID, model.NotifyComplianceExpiring, "certificate", label, dayStart)
			if err != nil {
				return sent, apperror.Internal(err, "failed to check reminder history")
			}
			if exists {
				continue
			}

			state := urgent[label]
			date := formatDatePtr(certificateDate(ngo, label))
			msg := fmt.Sprintf("Your %s certificate expires on %s", label, *date)
			if state == compliance.FreshnessExpired {
				msg = fmt.Sprintf("Your %s certificate expired on %s", label, *date)
			}

			err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
				if err := s.notifier.Notify(txCtx, NotificationInput{
					UserID:   ngo.UserID,
					UserRole: model.RoleNGO,
					Type:     model.NotifyComplianceExpiring,
					Title:    fmt.Sprintf("%s certificate %s", label, strings.ToLower(strings.ReplaceAll(string(state), "_", " "))),
					Message:  msg,
					Link:     fmt.Sprintf("/ngos/%s", ngo.ID),
					Metadata: map[string]interface{}{
						"ngo_id":      ngo.ID.String(),
						"certificate": label,
						"freshness":   string(state),
						"date":        *date,
					},
				}); err != nil {
					return err
				}
				return writeAudit(txCtx, s.audit, nil, model.ActionComplianceReminder, ngo.ID.String(), ngo.OrgName, map[string]interface{}{
					"certificate": label,
					"freshness":   string(state),
				})
			})
			if err != nil {
				s.log.Warn("compliance reminder failed",
					zap.String("ngo_id", ngo.ID.String()),
					zap.String("certificate", label),
					zap.Error(err),
				)
				continue
			}
			sent++
		}
	}
	return sent, nil
}
