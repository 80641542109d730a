package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
)

func scoutFixture(probability int, signal engine.Signal, hot bool) engine.ScoutResult {
	return engine.ScoutResult{
		Probability: probability,
		Signal:      signal,
		IsHotGame:   hot,
	}
}

func TestFuse_AITipAgreementBoostsScore(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalStrongOver, false)
	tip := &engine.TipInput{Prediction: "Over 2.5", Odds: 1.90}

	result := engine.Fuse(match, scout, tip, 0, engine.OddsPolicyFixed)

	assert.Equal(t, 80, result.FinalConfidence)
	assert.Equal(t, engine.LevelHigh, result.ConfidenceLevel)
	assert.InDelta(t, 52.63, 100/result.MarketOdd, 0.01)
	assert.InDelta(t, 27.37, result.EV, 0.01)
	assert.Equal(t, engine.VerdictGreenLight, result.Verdict)
	assert.Equal(t, "Over 2.5", result.AIContext)
}

func TestFuse_AITipDisagreementPenalizesHarder(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalStrongOver, false)
	tip := &engine.TipInput{Prediction: "Under 2.5", Odds: 1.90}

	result := engine.Fuse(match, scout, tip, 0, engine.OddsPolicyFixed)

	// Disagreement costs 15, agreement only earns 10.
	assert.Equal(t, 55, result.FinalConfidence)
	assert.Equal(t, engine.LevelLow, result.ConfidenceLevel)
	assert.Equal(t, engine.VerdictRedAlert, result.Verdict)
}

func TestFuse_StrongUnderAgreement(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(68, engine.SignalStrongUnder, false)
	tip := &engine.TipInput{Prediction: "Under 2.5 goals", Odds: 2.10}

	result := engine.Fuse(match, scout, tip, 0, engine.OddsPolicyFixed)

	assert.Equal(t, 78, result.FinalConfidence)
}

func TestFuse_HotGameBoostOnlyForOverSignals(t *testing.T) {
	match := newMatch(models.SportBasketball, models.StatusLive, models.MatchStats{})

	over := engine.Fuse(match, scoutFixture(70, engine.SignalStrongOver, true), nil, 0, engine.OddsPolicyFixed)
	assert.Equal(t, 75, over.FinalConfidence)

	under := engine.Fuse(match, scoutFixture(70, engine.SignalStrongUnder, true), nil, 0, engine.OddsPolicyFixed)
	assert.Equal(t, 70, under.FinalConfidence)
}

func TestFuse_NewsImpactAddedUnmodified(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalNeutral, false)

	lifted := engine.Fuse(match, scout, nil, 12, engine.OddsPolicyFixed)
	assert.Equal(t, 82, lifted.FinalConfidence)

	dragged := engine.Fuse(match, scout, nil, -25, engine.OddsPolicyFixed)
	assert.Equal(t, 45, dragged.FinalConfidence)
}

func TestFuse_FinalConfidenceClamped(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})

	high := engine.Fuse(match, scoutFixture(95, engine.SignalStrongOver, true),
		&engine.TipInput{Prediction: "Over 1.5", Odds: 1.50}, 20, engine.OddsPolicyFixed)
	assert.Equal(t, 99, high.FinalConfidence)

	low := engine.Fuse(match, scoutFixture(10, engine.SignalStrongOver, false),
		&engine.TipInput{Prediction: "Under 3.5", Odds: 1.50}, -30, engine.OddsPolicyFixed)
	assert.Equal(t, 0, low.FinalConfidence)
}

func TestFuse_DefaultOddsPolicies(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalNeutral, false)

	fixed := engine.Fuse(match, scout, nil, 0, engine.OddsPolicyFixed)
	assert.InDelta(t, 1.90, fixed.MarketOdd, 0.001)
	assert.InDelta(t, 70-100/1.90, fixed.EV, 0.01)

	even := engine.Fuse(match, scout, nil, 0, engine.OddsPolicyImpliedEven)
	assert.Zero(t, even.MarketOdd)
	assert.InDelta(t, 20.0, even.EV, 0.001)
}

func TestFuse_TipOddsOverrideDefaultPolicy(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalNeutral, false)
	tip := &engine.TipInput{Prediction: "Over 2.5", Odds: 2.50}

	result := engine.Fuse(match, scout, tip, 0, engine.OddsPolicyImpliedEven)

	assert.InDelta(t, 2.50, result.MarketOdd, 0.001)
	assert.InDelta(t, 30.0, result.EV, 0.01)
}

func TestFuse_VerdictMonotoneInScore(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	rank := map[engine.Verdict]int{
		engine.VerdictRedAlert:      0,
		engine.VerdictYellowWarning: 1,
		engine.VerdictGreenLight:    2,
	}

	previous := -1
	for probability := 40; probability <= 99; probability++ {
		result := engine.Fuse(match, scoutFixture(probability, engine.SignalNeutral, false),
			nil, 0, engine.OddsPolicyFixed)
		current := rank[result.Verdict]
		assert.GreaterOrEqual(t, current, previous,
			"verdict downgraded when score rose to %d", probability)
		previous = current
	}
}

func TestFuseWithDefaultOdd_ConfiguredOddDrivesEV(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalNeutral, false)

	result := engine.FuseWithDefaultOdd(match, scout, nil, 0, engine.OddsPolicyFixed, 2.50)

	assert.Equal(t, 70, result.FinalConfidence)
	assert.InDelta(t, 2.50, result.MarketOdd, 0.001)
	assert.InDelta(t, 30.00, result.EV, 0.01)
}

func TestFuseWithDefaultOdd_UnpayableOddFallsBack(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalNeutral, false)

	for _, odd := range []float64{0, 1.0, -3} {
		result := engine.FuseWithDefaultOdd(match, scout, nil, 0, engine.OddsPolicyFixed, odd)
		assert.InDelta(t, 1.90, result.MarketOdd, 0.001, "odd %v", odd)
		assert.InDelta(t, 17.37, result.EV, 0.01, "odd %v", odd)
	}
}

func TestFuseWithDefaultOdd_TipOddsStillWin(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(70, engine.SignalStrongOver, false)
	tip := &engine.TipInput{Prediction: "Over 2.5", Odds: 1.60}

	result := engine.FuseWithDefaultOdd(match, scout, tip, 0, engine.OddsPolicyFixed, 2.50)

	assert.InDelta(t, 1.60, result.MarketOdd, 0.001)
}

func TestFuse_HighScoreWithNegativeEVNeverGreenLit(t *testing.T) {
	match := newMatch(models.SportFootball, models.StatusLive, models.MatchStats{})
	scout := scoutFixture(78, engine.SignalNeutral, false)
	// Odds of 1.20 imply 83.3%: the EV is negative despite the high score.
	tip := &engine.TipInput{Prediction: "Over 2.5", Odds: 1.20}

	result := engine.Fuse(match, scout, tip, 0, engine.OddsPolicyFixed)

	assert.Negative(t, result.EV)
	assert.Equal(t, engine.VerdictRedAlert, result.Verdict)
}
