package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/stitts-dev/bet-intel/internal/models"
)

// ErrInvalidSummary is returned when a fusion summary lacks the nested
// fields the projector needs.
var ErrInvalidSummary = errors.New("invalid fusion summary")

// SummaryMetrics are the live signal magnitudes a projection is built from,
// each on a 0-100 scale.
type SummaryMetrics struct {
	Power    float64 `json:"power"`
	Momentum float64 `json:"momentum"`
	Pace     float64 `json:"pace"`
	Risk     float64 `json:"risk"`
}

// FusionSummary is the condensed fusion (or scout) state fed to the
// projector.
type FusionSummary struct {
	MatchID     string          `json:"match_id"`
	Sport       models.Sport    `json:"sport"`
	FusionScore float64         `json:"fusion_score"` // 0-99
	Metrics     *SummaryMetrics `json:"metrics"`
}

// PredictionOutput holds the quantitative projections for a match. Goal
// fields apply to football-shaped sports, point fields to basketball.
type PredictionOutput struct {
	MatchID       string       `json:"match_id"`
	Sport         models.Sport `json:"sport"`
	TotalGoals    float64      `json:"total_goals"`
	HomeGoals     float64      `json:"home_goals"`
	AwayGoals     float64      `json:"away_goals"`
	HalfTimeGoals float64      `json:"half_time_goals"`
	Corners       float64      `json:"corners"`
	Cards         float64      `json:"cards"`
	TotalPoints   float64      `json:"total_points"`
	HomePoints    float64      `json:"home_points"`
	AwayPoints    float64      `json:"away_points"`
	Confidence    float64      `json:"confidence"`
}

// Home/away splits are fixed documented simplifications, not dynamically
// inferred.
const (
	footballHomeShare   = 0.55
	basketballHomeShare = 0.52
	halfTimeShare       = 0.45
)

// Project turns a fused summary into quantitative projections. Deterministic
// given its input; fails fast when the summary is missing required fields.
func Project(summary *FusionSummary) (*PredictionOutput, error) {
	if summary == nil {
		return nil, fmt.Errorf("%w: summary is nil", ErrInvalidSummary)
	}
	if summary.Metrics == nil {
		return nil, fmt.Errorf("%w: summary metrics missing", ErrInvalidSummary)
	}
	if summary.Sport == "" {
		return nil, fmt.Errorf("%w: sport missing", ErrInvalidSummary)
	}

	out := &PredictionOutput{
		MatchID:    summary.MatchID,
		Sport:      summary.Sport,
		Confidence: math.Min(100, summary.FusionScore*1.15),
	}
	metrics := summary.Metrics

	switch summary.Sport {
	case models.SportBasketball:
		out.TotalPoints = metrics.Power*1.1 + metrics.Pace*1.4
		out.HomePoints = out.TotalPoints * basketballHomeShare
		out.AwayPoints = out.TotalPoints * (1 - basketballHomeShare)

	default:
		// Football model, shared by the other goal-scoring sports.
		power := metrics.Power / 100
		momentum := metrics.Momentum / 100
		goals := (0.8 + power*0.6 + momentum*0.5) * (summary.FusionScore / 80)
		out.TotalGoals = goals
		out.HalfTimeGoals = goals * halfTimeShare
		out.HomeGoals = goals * footballHomeShare
		out.AwayGoals = goals * (1 - footballHomeShare)
		out.Corners = 7.5 + metrics.Pace*0.05 + metrics.Momentum*0.03
		out.Cards = 2.5 + metrics.Risk*0.03 + metrics.Momentum*0.01
	}

	return out, nil
}
