package disbursal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrhub/internal/model"
	"csrhub/pkg/apperror"
)

func milestones(pcts ...string) []Milestone {
	out := make([]Milestone, len(pcts))
	for i, p := range pcts {
		out[i] = Milestone{UnlockCondition: "milestone", Percentage: decimal.RequireFromString(p)}
	}
	return out
}

func sum(allocs []Allocation) int64 {
	var s int64
	for _, a := range allocs {
		s += a.Amount
	}
	return s
}

func TestSplitAmountsAddUpToTarget(t *testing.T) {
	tests := []struct {
		name   string
		target int64
		pcts   []string
		want   []int64
	}{
		{"even", 1000000, []string{"30", "30", "40"}, []int64{300000, 300000, 400000}},
		{"thirds", 100, []string{"33.33", "33.33", "33.34"}, []int64{33, 33, 34}},
		{"thirds of odd target", 1000001, []string{"33.33", "33.33", "33.34"}, []int64{333300, 333300, 333401}},
		{"rounding half up", 5, []string{"50", "50"}, []int64{3, 2}},
		{"single", 42, []string{"100"}, []int64{42}},
		{"seven milestones", 999999, []string{"10", "15", "15", "15", "15", "15", "15"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs, err := Split(tt.target, milestones(tt.pcts...))
			require.NoError(t, err)
			assert.Equal(t, tt.target, sum(allocs))
			for i, a := range allocs {
				assert.Equal(t, i+1, a.Sequence)
				assert.Positive(t, a.Amount)
				if tt.want != nil {
					assert.Equal(t, tt.want[i], a.Amount)
				}
			}
		})
	}
}

func TestSplitRejectsBadPlans(t *testing.T) {
	tests := []struct {
		name   string
		target int64
		ms     []Milestone
	}{
		{"sum below 100", 1000, milestones("50", "49.99")},
		{"sum above 100", 1000, milestones("60", "41")},
		{"no milestones", 1000, nil},
		{"zero target", 0, milestones("100")},
		{"negative percentage", 1000, milestones("120", "-20")},
		{"tiny tranche rounds to zero", 10, milestones("99.9", "0.1")},
		{"more than two decimals", 1000, milestones("33.333", "33.333", "33.334")},
		{"missing condition", 1000, []Milestone{{Percentage: decimal.NewFromInt(100)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.target, tt.ms)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestParseGeoTag(t *testing.T) {
	p, err := ParseGeoTag("19.0760, 72.8777")
	require.NoError(t, err)
	assert.InDelta(t, 19.0760, p.Lat(), 1e-9)
	assert.InDelta(t, 72.8777, p.Lon(), 1e-9)

	p, err = ParseGeoTag(`{"type":"Point","coordinates":[77.5946,12.9716]}`)
	require.NoError(t, err)
	assert.InDelta(t, 12.9716, p.Lat(), 1e-9)

	p, err = ParseGeoTag(`{"type":"Feature","geometry":{"type":"Point","coordinates":[88.3639,22.5726]},"properties":{}}`)
	require.NoError(t, err)
	assert.InDelta(t, 88.3639, p.Lon(), 1e-9)

	for _, bad := range []string{
		"",
		"north",
		"91,10",
		"10,181",
		`{"type":"LineString","coordinates":[[1,2],[3,4]]}`,
		`{"type":`,
	} {
		_, err := ParseGeoTag(bad)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), "input %q", bad)
	}
}

func TestNormalizeGeoTag(t *testing.T) {
	out, err := NormalizeGeoTag("12.5,77.25")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[77.25,12.5]}`, out)
}

func TestTrancheLifecycle(t *testing.T) {
	assert.True(t, TrancheLifecycle.CanTransition(model.TrancheLocked, model.TranchePendingApproval))
	assert.True(t, TrancheLifecycle.CanTransition(model.TranchePendingApproval, model.TrancheBlocked))
	assert.True(t, TrancheLifecycle.CanTransition(model.TrancheBlocked, model.TrancheLocked))
	assert.False(t, TrancheLifecycle.CanTransition(model.TrancheLocked, model.TrancheReleased))
	assert.False(t, TrancheLifecycle.CanTransition(model.TrancheReleased, model.TrancheReleased))
	assert.True(t, TrancheLifecycle.IsTerminal(model.TrancheDisbursed))
}
