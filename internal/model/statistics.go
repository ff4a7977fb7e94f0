package model

import (
	"time"
)

// StatisticsResponse aggregates funding totals and rankings for a time range
type StatisticsResponse struct {
	TotalProjects      int64            `json:"total_projects"`
	TotalTarget        int64            `json:"total_target"`
	TotalRaised        int64            `json:"total_raised"`
	TotalDisbursed     int64            `json:"total_disbursed"`
	PendingRelease     int64            `json:"pending_release"` // amount awaiting approval
	TranchesByStatus   map[string]int64 `json:"tranches_by_status"`
	TopNGOs            []NGORanking     `json:"top_ngos"`
	TopSectors         []SectorRanking  `json:"top_sectors"`
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
}

// NGORanking ranks an NGO by trust score
type NGORanking struct {
	NGOID      string `json:"ngo_id"`
	OrgName    string `json:"org_name"`
	TrustScore int    `json:"trust_score"`
	Projects   int    `json:"projects"`
}

// SectorRanking ranks a sector by money raised
type SectorRanking struct {
	Sector      string `json:"sector"`
	Projects    int    `json:"projects"`
	TotalRaised int64  `json:"total_raised"`
}
