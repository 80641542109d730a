package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/stitts-dev/bet-intel/internal/models"
)

// Signal is the qualitative direction the scout reads from a match.
type Signal string

const (
	SignalStrongOver  Signal = "STRONG_OVER"
	SignalStrongUnder Signal = "STRONG_UNDER"
	SignalNeutral     Signal = "NEUTRAL"
)

// ScoutResult is the output of one scout analysis. It is a pure function of
// (match, calibration) and is recomputed fresh on every call.
type ScoutResult struct {
	MatchID       string `json:"match_id"`
	Probability   int    `json:"calculated_probability"` // 0-99
	Signal        Signal `json:"signal"`
	Details       string `json:"details"`
	IsHotGame     bool   `json:"is_hot_game"`
	SpikeDetected bool   `json:"spike_detected"`
	SpikeDetails  string `json:"spike_details,omitempty"`
}

const (
	maxProbability = 99
	maxLiveWeight  = 0.8 // the prior never fully vanishes
	neutralPrior   = 55.0

	overSignalThreshold  = 65.0
	underSignalThreshold = 45.0

	footballHotAttacksPerMin   = 0.8
	footballSpikeAttacksPerMin = 1.5
	basketballHotPace          = 102.0
	basketballSpikePace        = 110.0
	basketballHotQ1Points      = 60
	volleyballSetPointFloor    = 23
	volleyballSetPointMargin   = 2
)

// Elapsed-time buckets keyed by period label, used where the feed reports
// no running clock.
var (
	basketballElapsedMin = map[string]float64{"Q1": 6, "Q2": 18, "Q3": 30, "Q4": 42}
	volleyballElapsed    = map[string]float64{"SET1": 0.15, "SET2": 0.35, "SET3": 0.55, "SET4": 0.75, "SET5": 0.9}
)

// AnalyzeMatch converts a match's live or pre-game statistics into a
// calibrated probability and qualitative signal. Pre-game matches return the
// calibration prior directly; live matches blend the prior with a telemetry
// estimate, weighted by elapsed time.
func AnalyzeMatch(match *models.Match, config CalibrationConfig) ScoutResult {
	cal, supported := config.For(match.Sport)
	if !supported {
		// Unknown sports never block the pipeline.
		return ScoutResult{
			MatchID:     match.ID.String(),
			Probability: int(neutralPrior),
			Signal:      SignalNeutral,
			Details:     "unsupported sport, neutral default",
		}
	}

	prior := priorProbability(match.Sport, cal)

	if !match.IsLive() {
		return ScoutResult{
			MatchID:     match.ID.String(),
			Probability: clampProbability(prior),
			Signal:      signalFor(prior),
			Details:     "pre-game, prior only",
		}
	}

	live := liveProbability(match)
	elapsed := elapsedFraction(match)
	liveWeight := math.Min(elapsed, maxLiveWeight)
	priorWeight := 1 - liveWeight
	blended := prior*priorWeight + live*liveWeight

	result := ScoutResult{
		MatchID:     match.ID.String(),
		Probability: clampProbability(blended),
		Signal:      signalFor(blended),
		Details: fmt.Sprintf("live blend: prior %.1f (w %.2f) + live %.1f (w %.2f)",
			prior, priorWeight, live, liveWeight),
		IsHotGame: isHotGame(match),
	}
	result.SpikeDetected, result.SpikeDetails = detectSpike(match)
	return result
}

// priorProbability computes the pre-game prior from sport-specific
// calibration weights.
func priorProbability(sport models.Sport, cal SportCalibration) float64 {
	switch sport {
	case models.SportFootball:
		return 55 + cal.WeightRecentForm*10
	case models.SportBasketball:
		return 60 + cal.PaceWeight*10
	case models.SportVolleyball:
		return 52 + cal.WeightRecentForm*10
	case models.SportIceHockey:
		return 54 + cal.WeightRecentForm*10
	case models.SportESports:
		return 58 + cal.PaceWeight*10
	default:
		return neutralPrior
	}
}

// liveProbability estimates the over probability from current telemetry.
func liveProbability(match *models.Match) float64 {
	stats := match.Stats
	switch match.Sport {
	case models.SportFootball:
		totalXG := stats.XGHome + stats.XGAway
		if totalXG == 0 {
			// Estimate expected goals from shots on target when the feed
			// carries no xG.
			totalXG = float64(stats.ShotsOnTarget) * 0.3
		}
		frac := elapsedFraction(match)
		if frac <= 0 {
			return neutralPrior
		}
		projectedGoals := totalXG / frac
		return clampRange(30+projectedGoals*12, 5, 95)

	case models.SportBasketball:
		pace := currentPace(stats)
		if pace <= 0 {
			return neutralPrior
		}
		return clampRange(50+(pace-100)*1.5, 5, 95)

	case models.SportVolleyball:
		combined := float64(stats.HomeScore + stats.AwayScore)
		return clampRange(50+(combined-40)*1.2, 5, 95)

	case models.SportIceHockey:
		frac := elapsedFraction(match)
		if frac <= 0 {
			return neutralPrior
		}
		projected := float64(stats.HomeScore+stats.AwayScore) / frac
		return clampRange(30+projected*14, 5, 95)

	case models.SportESports:
		return clampRange(45+stats.Pace*5, 5, 95)

	default:
		return neutralPrior
	}
}

// currentPace returns the feed pace when present, otherwise extrapolates
// the current combined score to a 48-minute game using the period bucket.
func currentPace(stats models.MatchStats) float64 {
	if stats.Pace > 0 {
		return stats.Pace
	}
	elapsedMin, ok := basketballElapsedMin[stats.Period]
	if !ok || elapsedMin <= 0 {
		return 0
	}
	return float64(stats.HomeScore+stats.AwayScore) / elapsedMin * 48
}

func elapsedFraction(match *models.Match) float64 {
	stats := match.Stats
	switch match.Sport {
	case models.SportFootball:
		return clampRange(float64(stats.Minute)/90, 0, 1)
	case models.SportIceHockey:
		return clampRange(float64(stats.Minute)/60, 0, 1)
	case models.SportBasketball:
		if elapsed, ok := basketballElapsedMin[stats.Period]; ok {
			return elapsed / 48
		}
		return clampRange(float64(stats.Minute)/48, 0, 1)
	case models.SportVolleyball:
		if frac, ok := volleyballElapsed[stats.Period]; ok {
			return frac
		}
		return 0
	case models.SportESports:
		return clampRange(float64(stats.Minute)/40, 0, 1)
	default:
		return 0
	}
}

// isHotGame applies sport-specific static thresholds for elevated pace or
// pressure.
func isHotGame(match *models.Match) bool {
	stats := match.Stats
	switch match.Sport {
	case models.SportFootball:
		if stats.Minute <= 0 {
			return false
		}
		return float64(stats.DangerousAttacks)/float64(stats.Minute) > footballHotAttacksPerMin
	case models.SportBasketball:
		if currentPace(stats) > basketballHotPace {
			return true
		}
		return stats.Period == "Q1" && stats.HomeScore+stats.AwayScore > basketballHotQ1Points
	case models.SportVolleyball:
		high := stats.HomeScore
		if stats.AwayScore > high {
			high = stats.AwayScore
		}
		diff := stats.HomeScore - stats.AwayScore
		if diff < 0 {
			diff = -diff
		}
		return high >= volleyballSetPointFloor && diff <= volleyballSetPointMargin
	default:
		return false
	}
}

// detectSpike applies the sharper, rarer burst thresholds that signal an
// imminent scoring event.
func detectSpike(match *models.Match) (bool, string) {
	stats := match.Stats
	switch match.Sport {
	case models.SportFootball:
		if stats.Minute > 0 && float64(stats.DangerousAttacks)/float64(stats.Minute) > footballSpikeAttacksPerMin {
			return true, "pressure storm: dangerous attacks surging"
		}
	case models.SportBasketball:
		if currentPace(stats) > basketballSpikePace {
			return true, "scoring run: pace well above ceiling"
		}
	}
	return false, ""
}

func signalFor(probability float64) Signal {
	switch {
	case probability >= overSignalThreshold:
		return SignalStrongOver
	case probability <= underSignalThreshold:
		return SignalStrongUnder
	default:
		return SignalNeutral
	}
}

// IsOver reports whether the signal points in the over direction.
func (s Signal) IsOver() bool {
	return strings.Contains(string(s), "OVER")
}

func clampProbability(p float64) int {
	rounded := int(math.Round(p))
	if rounded > maxProbability {
		return maxProbability
	}
	if rounded < 0 {
		return 0
	}
	return rounded
}

func clampRange(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
