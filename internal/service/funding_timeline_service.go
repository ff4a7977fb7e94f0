package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"csrhub/internal/auth"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"
)

// --- DTOs ---

type FundingDataPoint struct {
	Period            string `json:"period"`
	TotalDonated      int64  `json:"total_donated"`
	TotalDisbursed    int64  `json:"total_disbursed"`
	TranchesDisbursed int64  `json:"tranches_disbursed"`
	// UtilizationRate is cumulative disbursed over cumulative donated, in percent
	UtilizationRate string `json:"utilization_rate"`
}

type FundingTimelineFilter struct {
	GroupBy   string // week, month, quarter, year
	StartDate time.Time
	EndDate   time.Time
}

// --- Interface ---

type FundingTimelineService interface {
	GetFundingTimeline(ctx context.Context, actor auth.Actor, filter FundingTimelineFilter) ([]FundingDataPoint, error)
}

type fundingTimelineService struct {
	repo    repository.FundingTimelineRepository
	parties *Parties
}

func NewFundingTimelineService(repo repository.FundingTimelineRepository, parties *Parties) FundingTimelineService {
	return &fundingTimelineService{repo: repo, parties: parties}
}

// --- Implementation ---

func (s *fundingTimelineService) GetFundingTimeline(ctx context.Context, actor auth.Actor, filter FundingTimelineFilter) ([]FundingDataPoint, error) {
	if filter.EndDate.Before(filter.StartDate) {
		return nil, apperror.Validation("end_date must not be before start_date")
	}

	groupBy := filter.GroupBy
	switch groupBy {
	case "week", "month", "quarter", "year":
		// valid
	default:
		groupBy = "month"
	}

	scope, err := statsScope(ctx, s.parties, actor)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.GetFundingTimeline(ctx, scope, groupBy, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load funding timeline")
	}

	result := make([]FundingDataPoint, 0, len(rows))
	var donated, disbursed int64
	for _, r := range rows {
		donated += r.TotalDonated
		disbursed += r.TotalDisbursed
		result = append(result, FundingDataPoint{
			Period:            r.Period,
			TotalDonated:      r.TotalDonated,
			TotalDisbursed:    r.TotalDisbursed,
			TranchesDisbursed: r.TranchesDisbursed,
			UtilizationRate:   utilizationRate(disbursed, donated),
		})
	}

	return result, nil
}

func utilizationRate(disbursed, donated int64) string {
	if donated <= 0 {
		return "0.00"
	}
	return decimal.NewFromInt(disbursed).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(donated)).
		StringFixed(2)
}
