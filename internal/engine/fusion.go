package engine

import (
	"math"
	"strings"

	"github.com/stitts-dev/bet-intel/internal/models"
)

// ConfidenceLevel is the three-tier band derived from the final score.
type ConfidenceLevel string

const (
	LevelLow    ConfidenceLevel = "LOW"
	LevelMedium ConfidenceLevel = "MEDIUM"
	LevelHigh   ConfidenceLevel = "HIGH"
)

// Verdict is the actionability classification derived from the final score
// and expected value together.
type Verdict string

const (
	VerdictGreenLight    Verdict = "GREEN_LIGHT"
	VerdictYellowWarning Verdict = "YELLOW_WARNING"
	VerdictRedAlert      Verdict = "RED_ALERT"
)

// OddsPolicy selects the default market odd used when no AI tip carries one.
type OddsPolicy string

const (
	// OddsPolicyFixed falls back to a fixed 1.90 decimal odd.
	OddsPolicyFixed OddsPolicy = "fixed"
	// OddsPolicyImpliedEven reports no market odd and assumes a 50% implied
	// probability.
	OddsPolicyImpliedEven OddsPolicy = "implied_even"
)

const fixedDefaultOdd = 1.90

// TipInput is the slice of an AI-origin tip the fusion engine reads. The
// engine never validates or originates tip content.
type TipInput struct {
	Prediction string  `json:"prediction"`
	Odds       float64 `json:"odds"`
}

// FusionAnalysis is the final decision artifact for one (match, instant)
// evaluation. It is never mutated after creation.
type FusionAnalysis struct {
	MatchID         string          `json:"match_id"`
	Scout           ScoutResult     `json:"scout"`
	AIContext       string          `json:"ai_context"`
	FinalConfidence int             `json:"final_confidence"` // 0-99
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	EV              float64         `json:"ev"`
	MarketOdd       float64         `json:"market_odd"`
	Verdict         Verdict         `json:"verdict"`
	NewsImpactScore float64         `json:"news_impact_score"`
}

// Fuse combines the scout probability, an optional AI tip, an optional news
// impact score and market odds into one confidence, EV and verdict. Pure
// function over its inputs; persistence and alerting belong to the caller.
func Fuse(match *models.Match, scout ScoutResult, tip *TipInput, newsImpact float64, policy OddsPolicy) FusionAnalysis {
	return FuseWithDefaultOdd(match, scout, tip, newsImpact, policy, fixedDefaultOdd)
}

// FuseWithDefaultOdd is Fuse with an operator-configured fallback odd for
// the fixed policy. Odds at or below 1.0 carry no payout and fall back to
// the stock 1.90.
func FuseWithDefaultOdd(match *models.Match, scout ScoutResult, tip *TipInput, newsImpact float64, policy OddsPolicy, defaultOdd float64) FusionAnalysis {
	if defaultOdd <= 1 {
		defaultOdd = fixedDefaultOdd
	}
	score := float64(scout.Probability)

	// AI agreement is rewarded +10, disagreement penalized -15: genuine model
	// conflict suppresses confidence harder than agreement inflates it.
	aiContext := ""
	if tip != nil {
		aiContext = tip.Prediction
		prediction := strings.ToLower(tip.Prediction)
		switch scout.Signal {
		case SignalStrongOver:
			if strings.Contains(prediction, "over") {
				score += 10
			} else if strings.Contains(prediction, "under") {
				score -= 15
			}
		case SignalStrongUnder:
			if strings.Contains(prediction, "under") {
				score += 10
			} else if strings.Contains(prediction, "over") {
				score -= 15
			}
		}
	}

	if scout.IsHotGame && scout.Signal.IsOver() {
		score += 5
	}

	score += newsImpact

	final := clampProbability(score)

	marketOdd := 0.0
	if tip != nil && tip.Odds > 0 {
		marketOdd = tip.Odds
	} else if policy != OddsPolicyImpliedEven {
		marketOdd = defaultOdd
	}

	implied := 50.0
	if marketOdd > 0 {
		implied = 100 / marketOdd
	}

	ev := round2(float64(final) - implied)

	return FusionAnalysis{
		MatchID:         match.ID.String(),
		Scout:           scout,
		AIContext:       aiContext,
		FinalConfidence: final,
		ConfidenceLevel: confidenceLevelFor(final),
		EV:              ev,
		MarketOdd:       marketOdd,
		Verdict:         verdictFor(final, ev),
		NewsImpactScore: newsImpact,
	}
}

func confidenceLevelFor(score int) ConfidenceLevel {
	switch {
	case score >= 80:
		return LevelHigh
	case score >= 60:
		return LevelMedium
	default:
		return LevelLow
	}
}

// verdictFor requires both conditions of each rule: a high score with
// negative EV is never green-lit.
func verdictFor(score int, ev float64) Verdict {
	switch {
	case score > 75 && ev > 5:
		return VerdictGreenLight
	case score > 60 && ev > 0:
		return VerdictYellowWarning
	default:
		return VerdictRedAlert
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
