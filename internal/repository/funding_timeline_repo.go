package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"csrhub/internal/model"
)

type FundingTimelineRow struct {
	Period            string `gorm:"column:period"`
	TotalDonated      int64  `gorm:"column:total_donated"`
	TotalDisbursed    int64  `gorm:"column:total_disbursed"`
	TranchesDisbursed int64  `gorm:"column:tranches_disbursed"`
}

type FundingTimelineRepository interface {
	GetFundingTimeline(ctx context.Context, scope StatsScope, groupBy string, start, end time.Time) ([]FundingTimelineRow, error)
}

type fundingTimelineRepository struct {
	db *gorm.DB
}

func NewFundingTimelineRepository(db *gorm.DB) FundingTimelineRepository {
	return &fundingTimelineRepository{db: db}
}

// scopeSQL renders the scope as a filter on the projects alias p
func (s StatsScope) scopeSQL() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if s.NGOID != nil {
		clauses = append(clauses, "p.ngo_id = ?")
		args = append(args, *s.NGOID)
	}
	if s.CorporateID != nil {
		clauses = append(clauses, "p.corporate_id = ?")
		args = append(args, *s.CorporateID)
	}
	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

// GetFundingTimeline buckets donations and disbursed tranches by DATE_TRUNC(groupBy).
// groupBy must already be one of week, month, quarter, year.
func (r *fundingTimelineRepository) GetFundingTimeline(ctx context.Context, scope StatsScope, groupBy string, start, end time.Time) ([]FundingTimelineRow, error) {
	where, scopeArgs := scope.scopeSQL()
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC(?, e.at), 'YYYY-MM-DD') AS period,
			COALESCE(SUM(e.donated), 0) AS total_donated,
			COALESCE(SUM(e.disbursed), 0) AS total_disbursed,
			COUNT(*) FILTER (WHERE e.disbursed > 0) AS tranches_disbursed
		FROM (
			SELECT d.created_at AS at, d.amount AS donated, 0 AS disbursed
			FROM donations d JOIN projects p ON p.id = d.project_id
			WHERE ` + where + `
			UNION ALL
			SELECT t.disbursed_at AS at, 0 AS donated, t.amount AS disbursed
			FROM tranches t JOIN projects p ON p.id = t.project_id
			WHERE t.status = ? AND t.disbursed_at IS NOT NULL AND ` + where + `
		) e
		WHERE e.at >= ? AND e.at <= ?
		GROUP BY DATE_TRUNC(?, e.at)
		ORDER BY period
	`

	args := []interface{}{groupBy}
	args = append(args, scopeArgs...)
	args = append(args, model.TrancheDisbursed)
	args = append(args, scopeArgs...)
	args = append(args, start, end, groupBy)

	var rows []FundingTimelineRow
	if err := GetDB(ctx, r.db).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query funding timeline: %w", err)
	}

	return rows, nil
}
