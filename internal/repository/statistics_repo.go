package repository

import (
	"context"
	"fmt"
	"time"

	"csrhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatsScope narrows statistics to one NGO or one corporate. Empty means platform wide.
type StatsScope struct {
	NGOID       *uuid.UUID
	CorporateID *uuid.UUID
}

func (s StatsScope) apply(table string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if s.NGOID != nil {
			q = q.Where(table+".ngo_id = ?", *s.NGOID)
		}
		if s.CorporateID != nil {
			q = q.Where(table+".corporate_id = ?", *s.CorporateID)
		}
		return q
	}
}

type ProjectTotals struct {
	Count  int64
	Target int64
	Raised int64
}

type StatisticsRepository interface {
	GetProjectTotals(ctx context.Context, scope StatsScope, start, end time.Time) (ProjectTotals, error)
	GetTrancheTotals(ctx context.Context, scope StatsScope, start, end time.Time) (counts map[string]int64, amounts map[string]int64, err error)
	GetTopNGOs(ctx context.Context, limit int) ([]model.NGORanking, error)
	GetTopSectors(ctx context.Context, scope StatsScope, start, end time.Time, limit int) ([]model.SectorRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetProjectTotals(ctx context.Context, scope StatsScope, start, end time.Time) (ProjectTotals, error) {
	var result ProjectTotals
	if err := GetDB(ctx, r.db).Table("projects").
		Select("COUNT(*) as count, COALESCE(SUM(target_amount), 0) as target, COALESCE(SUM(raised_amount), 0) as raised").
		Scopes(scope.apply("projects")).
		Where("projects.created_at >= ? AND projects.created_at <= ?", start, end).
		Scan(&result).Error; err != nil {
		return result, fmt.Errorf("failed to query project totals: %w", err)
	}
	return result, nil
}

func (r *statisticsRepository) GetTrancheTotals(ctx context.Context, scope StatsScope, start, end time.Time) (map[string]int64, map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
		Amount int64
	}
	if err := GetDB(ctx, r.db).Table("tranches").
		Select("tranches.status as status, COUNT(*) as count, COALESCE(SUM(tranches.amount), 0) as amount").
		Joins("JOIN projects ON projects.id = tranches.project_id").
		Scopes(scope.apply("projects")).
		Where("tranches.updated_at >= ? AND tranches.updated_at <= ?", start, end).
		Group("tranches.status").
		Scan(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to query tranche totals: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	amounts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
		amounts[row.Status] = row.Amount
	}
	return counts, amounts, nil
}

func (r *statisticsRepository) GetTopNGOs(ctx context.Context, limit int) ([]model.NGORanking, error) {
	var rankings []model.NGORanking
	if err := GetDB(ctx, r.db).Table("ngos").
		Select("CAST(ngos.id AS TEXT) as ngo_id, ngos.org_name as org_name, ngos.trust_score as trust_score, COUNT(projects.id) as projects").
		Joins("LEFT JOIN projects ON projects.ngo_id = ngos.id").
		Group("ngos.id, ngos.org_name, ngos.trust_score").
		Order("trust_score DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top NGOs: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) GetTopSectors(ctx context.Context, scope StatsScope, start, end time.Time, limit int) ([]model.SectorRanking, error) {
	var rankings []model.SectorRanking
	if err := GetDB(ctx, r.db).Table("projects").
		Select("projects.sector as sector, COUNT(*) as projects, COALESCE(SUM(projects.raised_amount), 0) as total_raised").
		Scopes(scope.apply("projects")).
		Where("projects.created_at >= ? AND projects.created_at <= ? AND projects.sector <> ''", start, end).
		Group("projects.sector").
		Order("total_raised DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top sectors: %w", err)
	}
	return rankings, nil
}
