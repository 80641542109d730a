package engine

import (
	"fmt"
)

// Fixed-ratio scaling applied to the prediction output for in-play display.
const (
	fullTimeScale  = 1.8
	halfTimeScale  = 0.9
	homeSplitShare = 0.55
)

// LiveReport derives half-time, full-time and team-split projections for
// in-play display. Presentational aggregation only.
type LiveReport struct {
	MatchID        string  `json:"match_id"`
	Signal         Signal  `json:"signal"`
	Verdict        Verdict `json:"verdict"`
	FTProjection   float64 `json:"ft_projection"`
	HTProjection   float64 `json:"ht_projection"`
	HomeProjection float64 `json:"home_projection"`
	AwayProjection float64 `json:"away_projection"`
}

// BuildLiveReport scales the prediction output into the in-play view.
// Fails fast on a missing prediction: no partial reports.
func BuildLiveReport(scout ScoutResult, fusion FusionAnalysis, prediction *PredictionOutput) (*LiveReport, error) {
	if prediction == nil {
		return nil, fmt.Errorf("%w: prediction is nil", ErrInvalidSummary)
	}

	ft := prediction.TotalGoals * fullTimeScale
	return &LiveReport{
		MatchID:        fusion.MatchID,
		Signal:         scout.Signal,
		Verdict:        fusion.Verdict,
		FTProjection:   ft,
		HTProjection:   prediction.TotalGoals * halfTimeScale,
		HomeProjection: ft * homeSplitShare,
		AwayProjection: ft * (1 - homeSplitShare),
	}, nil
}
