package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"
)

var (
	statsStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	statsEnd   = time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
)

func TestStatisticsScopedToNGO(t *testing.T) {
	w := newWorld(t)
	repo := new(MockStatisticsRepository)
	svc := NewStatisticsService(repo, w.parties)

	ngoScope := mock.MatchedBy(func(s repository.StatsScope) bool {
		return s.NGOID != nil && *s.NGOID == w.ngo.ID && s.CorporateID == nil
	})
	repo.On("GetProjectTotals", mock.Anything, ngoScope, statsStart, statsEnd).Return(repository.ProjectTotals{Count: 2, Target: 300000, Raised: 120000}, nil)
	repo.On("GetTrancheTotals", mock.Anything, ngoScope, statsStart, statsEnd).Return(
		map[string]int64{model.TrancheLocked: 3, model.TrancheDisbursed: 1, model.TranchePendingApproval: 1},
		map[string]int64{model.TrancheDisbursed: 40000, model.TranchePendingApproval: 30000},
		nil,
	)
	repo.On("GetTopSectors", mock.Anything, ngoScope, statsStart, statsEnd, rankingLimit).Return([]model.SectorRanking{{Sector: "Water", Projects: 2, TotalRaised: 120000}}, nil)

	res, err := svc.GetStatistics(context.Background(), w.ngoActor, statsStart, statsEnd)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.TotalProjects)
	assert.Equal(t, int64(120000), res.TotalRaised)
	assert.Equal(t, int64(40000), res.TotalDisbursed)
	assert.Equal(t, int64(30000), res.PendingRelease)
	assert.Equal(t, int64(3), res.TranchesByStatus[model.TrancheLocked])
	assert.Len(t, res.TopSectors, 1)
	assert.Nil(t, res.TopNGOs)
	repo.AssertNotCalled(t, "GetTopNGOs", mock.Anything, mock.Anything)
}

func TestStatisticsAdminSeesRankings(t *testing.T) {
	w := newWorld(t)
	repo := new(MockStatisticsRepository)
	svc := NewStatisticsService(repo, w.parties)

	everything := repository.StatsScope{}
	repo.On("GetProjectTotals", mock.Anything, everything, statsStart, statsEnd).Return(repository.ProjectTotals{}, nil)
	repo.On("GetTrancheTotals", mock.Anything, everything, statsStart, statsEnd).Return(map[string]int64{}, map[string]int64{}, nil)
	repo.On("GetTopSectors", mock.Anything, everything, statsStart, statsEnd, rankingLimit).Return([]model.SectorRanking{}, nil)
	repo.On("GetTopNGOs", mock.Anything, rankingLimit).Return([]model.NGORanking{{OrgName: "Green Earth Trust", TrustScore: 640}}, nil).Once()

	res, err := svc.GetStatistics(context.Background(), w.adminActor, statsStart, statsEnd)
	require.NoError(t, err)
	require.Len(t, res.TopNGOs, 1)
	assert.Equal(t, 640, res.TopNGOs[0].TrustScore)
	repo.AssertExpectations(t)
}

func TestStatisticsRejectsInvertedRange(t *testing.T) {
	w := newWorld(t)
	svc := NewStatisticsService(new(MockStatisticsRepository), w.parties)

	_, err := svc.GetStatistics(context.Background(), w.adminActor, statsEnd, statsStart)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
