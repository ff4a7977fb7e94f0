package service

import (
	"context"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"
)

const rankingLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor auth.Actor, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	repo    repository.StatisticsRepository
	parties *Parties
}

func NewStatisticsService(repo repository.StatisticsRepository, parties *Parties) StatisticsService {
	return &statisticsService{repo: repo, parties: parties}
}

// GetStatistics aggregates funding within the range. NGOs and corporates only see their own projects.
func (s *statisticsService) GetStatistics(ctx context.Context, actor auth.Actor, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	if endDate.Before(startDate) {
		return response, apperror.Validation("end_date must not be before start_date")
	}
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	scope, err := statsScope(ctx, s.parties, actor)
	if err != nil {
		return response, err
	}

	totals, err := s.repo.GetProjectTotals(ctx, scope, startDate, endDate)
	if err != nil {
		return response, apperror.Internal(err, "failed to load project totals")
	}
	response.TotalProjects = totals.Count
	response.TotalTarget = totals.Target
	response.TotalRaised = totals.Raised

	counts, amounts, err := s.repo.GetTrancheTotals(ctx, scope, startDate, endDate)
	if err != nil {
		return response, apperror.Internal(err, "failed to load tranche totals")
	}
	response.TranchesByStatus = counts
	response.TotalDisbursed = amounts[model.TrancheDisbursed]
	response.PendingRelease = amounts[model.TranchePendingApproval]

	if response.TopSectors, err = s.repo.GetTopSectors(ctx, scope, startDate, endDate, rankingLimit); err != nil {
		return response, apperror.Internal(err, "failed to rank sectors")
	}
	if actor.IsAdmin() || actor.IsCorporate() {
		if response.TopNGOs, err = s.repo.GetTopNGOs(ctx, rankingLimit); err != nil {
			return response, apperror.Internal(err, "failed to rank NGOs")
		}
	}

	return response, nil
}

// statsScope narrows NGOs and corporates to their own projects
func statsScope(ctx context.Context, parties *Parties, actor auth.Actor) (repository.StatsScope, error) {
	var scope repository.StatsScope
	switch {
	case actor.IsNGO():
		ngo, err := parties.NGOOf(ctx, actor)
		if err != nil {
			return scope, err
		}
		scope.NGOID = &ngo.ID
	case actor.IsCorporate():
		corp, err := parties.CorporateOf(ctx, actor)
		if err != nil {
			return scope, err
		}
		scope.CorporateID = &corp.ID
	}
	return scope, nil
}
