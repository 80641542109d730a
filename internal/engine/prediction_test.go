package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
)

func TestProject_FootballProjections(t *testing.T) {
	summary := &engine.FusionSummary{
		MatchID:     "match-1",
		Sport:       models.SportFootball,
		FusionScore: 80,
		Metrics: &engine.SummaryMetrics{
			Power:    50,
			Momentum: 40,
			Pace:     60,
			Risk:     30,
		},
	}

	out, err := engine.Project(summary)
	require.NoError(t, err)

	// (0.8 + 0.5*0.6 + 0.4*0.5) * (80/80) = 1.3
	assert.InDelta(t, 1.3, out.TotalGoals, 0.001)
	assert.InDelta(t, 0.585, out.HalfTimeGoals, 0.001)
	assert.InDelta(t, 0.715, out.HomeGoals, 0.001)
	assert.InDelta(t, 0.585, out.AwayGoals, 0.001)
	assert.InDelta(t, 11.7, out.Corners, 0.001)
	assert.InDelta(t, 3.8, out.Cards, 0.001)
	assert.InDelta(t, 92, out.Confidence, 0.001)
}

func TestProject_BasketballPointSplit(t *testing.T) {
	summary := &engine.FusionSummary{
		MatchID:     "match-2",
		Sport:       models.SportBasketball,
		FusionScore: 70,
		Metrics: &engine.SummaryMetrics{
			Power: 80,
			Pace:  90,
		},
	}

	out, err := engine.Project(summary)
	require.NoError(t, err)

	// 80*1.1 + 90*1.4 = 214, split 52/48.
	assert.InDelta(t, 214, out.TotalPoints, 0.001)
	assert.InDelta(t, 111.28, out.HomePoints, 0.001)
	assert.InDelta(t, 102.72, out.AwayPoints, 0.001)
	assert.Zero(t, out.TotalGoals)
}

func TestProject_ConfidenceCappedAt100(t *testing.T) {
	summary := &engine.FusionSummary{
		MatchID:     "match-3",
		Sport:       models.SportFootball,
		FusionScore: 99,
		Metrics:     &engine.SummaryMetrics{},
	}

	out, err := engine.Project(summary)
	require.NoError(t, err)

	assert.InDelta(t, 100, out.Confidence, 0.001)
}

func TestProject_InvalidSummaryFailsFast(t *testing.T) {
	cases := []struct {
		name    string
		summary *engine.FusionSummary
	}{
		{"nil summary", nil},
		{"missing metrics", &engine.FusionSummary{Sport: models.SportFootball, FusionScore: 70}},
		{"missing sport", &engine.FusionSummary{FusionScore: 70, Metrics: &engine.SummaryMetrics{}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := engine.Project(tc.summary)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, engine.ErrInvalidSummary)
		})
	}
}

func TestProject_Deterministic(t *testing.T) {
	summary := &engine.FusionSummary{
		MatchID:     "match-4",
		Sport:       models.SportFootball,
		FusionScore: 72,
		Metrics: &engine.SummaryMetrics{
			Power:    65,
			Momentum: 55,
			Pace:     70,
			Risk:     45,
		},
	}

	first, err := engine.Project(summary)
	require.NoError(t, err)
	second, err := engine.Project(summary)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
