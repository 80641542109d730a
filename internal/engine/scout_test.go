package engine_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
)

func newMatch(sport models.Sport, status models.MatchStatus, stats models.MatchStats) *models.Match {
	return &models.Match{
		ID:       uuid.New(),
		Sport:    sport,
		HomeTeam: "Home FC",
		AwayTeam: "Away FC",
		Status:   status,
		Stats:    stats,
	}
}

func TestAnalyzeMatch_PreGameUsesPriorOnly(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusScheduled, models.MatchStats{})

	result := engine.AnalyzeMatch(match, engine.DefaultCalibration())

	// Default football prior: 55 + 0.5*10 = 60.
	assert.Equal(t, 60, result.Probability)
	assert.Equal(t, engine.SignalNeutral, result.Signal)
	assert.Equal(t, "pre-game, prior only", result.Details)
	assert.False(t, result.IsHotGame)
	assert.False(t, result.SpikeDetected)
}

func TestAnalyzeMatch_LiveFootballBlendsPriorAndLive(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{
		Minute: 45,
		XGHome: 1.5,
		XGAway: 0.9,
	})

	result := engine.AnalyzeMatch(match, engine.DefaultCalibration())

	// liveWeight = min(45/90, 0.8) = 0.5, so the blend sits strictly
	// between the prior (60) and the pure live estimate.
	assert.Greater(t, result.Probability, 60)
	assert.Less(t, result.Probability, 88)
	assert.Equal(t, 74, result.Probability)
	assert.Equal(t, engine.SignalStrongOver, result.Signal)
	assert.Contains(t, result.Details, "live blend")
}

func TestAnalyzeMatch_LiveWeightCappedLateGame(t *testing.T) {
	// Minute 89 of 90 would give liveWeight 0.99 without the cap; the prior
	// must retain at least 20% weight.
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{
		Minute: 89,
		XGHome: 4.0,
		XGAway: 3.0,
	})

	result := engine.AnalyzeMatch(match, engine.DefaultCalibration())

	// Pure live estimate is clamped at 95; with the 0.8 cap the blend is
	// at most 0.2*60 + 0.8*95 = 88.
	assert.LessOrEqual(t, result.Probability, 88)
}

func TestAnalyzeMatch_UnsupportedSportFallsBackToNeutral(t *testing.T) {
	match := newMatch(models.Sport("cricket"), models.StatusLive, models.MatchStats{Minute: 30})

	result := engine.AnalyzeMatch(match, engine.DefaultCalibration())

	assert.Equal(t, 55, result.Probability)
	assert.Equal(t, engine.SignalNeutral, result.Signal)
	assert.Contains(t, result.Details, "unsupported sport")
}

func TestAnalyzeMatch_ProbabilityAlwaysWithinRange(t *testing.T) {
	cases := []struct {
		name  string
		sport models.Sport
		stats models.MatchStats
	}{
		{"football blowout", models.SportFootball, models.MatchStats{Minute: 80, XGHome: 5.0, XGAway: 4.5}},
		{"basketball shootout", models.SportBasketball, models.MatchStats{Period: "Q4", Pace: 140}},
		{"frozen hockey game", models.SportIceHockey, models.MatchStats{Minute: 55}},
		{"volleyball deciding set", models.SportVolleyball, models.MatchStats{Period: "SET5", HomeScore: 24, AwayScore: 24}},
		{"esports bloodbath", models.SportESports, models.MatchStats{Minute: 30, Pace: 12}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			match := newMatch(tc.sport, models.StatusLive, tc.stats)
			result := engine.AnalyzeMatch(match, engine.DefaultCalibration())
			assert.GreaterOrEqual(t, result.Probability, 0)
			assert.LessOrEqual(t, result.Probability, 99)
		})
	}
}

func TestAnalyzeMatch_HotGameThresholds(t *testing.T) {
	cases := []struct {
		name    string
		sport   models.Sport
		stats   models.MatchStats
		wantHot bool
	}{
		{"football pressure above threshold", models.SportFootball,
			models.MatchStats{Minute: 30, DangerousAttacks: 30}, true},
		{"football pressure below threshold", models.SportFootball,
			models.MatchStats{Minute: 30, DangerousAttacks: 20}, false},
		{"basketball pace above 102", models.SportBasketball,
			models.MatchStats{Period: "Q2", Pace: 105}, true},
		{"basketball first quarter scoring burst", models.SportBasketball,
			models.MatchStats{Period: "Q1", HomeScore: 34, AwayScore: 30}, true},
		{"basketball ordinary pace", models.SportBasketball,
			models.MatchStats{Period: "Q3", Pace: 98}, false},
		{"volleyball near set point", models.SportVolleyball,
			models.MatchStats{Period: "SET4", HomeScore: 24, AwayScore: 23}, true},
		{"volleyball mid set", models.SportVolleyball,
			models.MatchStats{Period: "SET2", HomeScore: 15, AwayScore: 10}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			match := newMatch(tc.sport, models.StatusLive, tc.stats)
			result := engine.AnalyzeMatch(match, engine.DefaultCalibration())
			assert.Equal(t, tc.wantHot, result.IsHotGame)
		})
	}
}

func TestAnalyzeMatch_SpikeThresholdsAreSharperThanHotGame(t *testing.T) {
	// 1.2 attacks/min: hot but not a spike.
	hot := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{Minute: 30, DangerousAttacks: 36})
	result := engine.AnalyzeMatch(hot, engine.DefaultCalibration())
	assert.True(t, result.IsHotGame)
	assert.False(t, result.SpikeDetected)

	// 1.67 attacks/min crosses the spike threshold.
	storming := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{Minute: 30, DangerousAttacks: 50})
	result = engine.AnalyzeMatch(storming, engine.DefaultCalibration())
	assert.True(t, result.SpikeDetected)
	assert.Contains(t, result.SpikeDetails, "pressure storm")

	run := newMatch(models.SportBasketball, models.StatusLive, models.MatchStats{Period: "Q3", Pace: 112})
	result = engine.AnalyzeMatch(run, engine.DefaultCalibration())
	assert.True(t, result.SpikeDetected)
	assert.Contains(t, result.SpikeDetails, "scoring run")
}

func TestAnalyzeMatch_BasketballPaceFromPeriodBuckets(t *testing.T) {
	// No feed pace: 60 combined points by the Q2 bucket (18 elapsed
	// minutes) extrapolates to 160 per 48, well into hot territory.
	match := newMatch(models.SportBasketball, models.StatusLive, models.MatchStats{
		Period:    "Q2",
		HomeScore: 32,
		AwayScore: 28,
	})

	result := engine.AnalyzeMatch(match, engine.DefaultCalibration())

	assert.True(t, result.IsHotGame)
	assert.Equal(t, engine.SignalStrongOver, result.Signal)
}
