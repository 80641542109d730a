package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
)

func TestBuildLiveReport_FixedRatioScaling(t *testing.T) {
	scout := engine.ScoutResult{Signal: engine.SignalStrongOver}
	fusion := engine.FusionAnalysis{MatchID: "match-1", Verdict: engine.VerdictGreenLight}
	prediction := &engine.PredictionOutput{Sport: models.SportFootball, TotalGoals: 2.0}

	report, err := engine.BuildLiveReport(scout, fusion, prediction)
	require.NoError(t, err)

	assert.InDelta(t, 3.6, report.FTProjection, 0.001)
	assert.InDelta(t, 1.8, report.HTProjection, 0.001)
	assert.InDelta(t, 1.98, report.HomeProjection, 0.001)
	assert.InDelta(t, 1.62, report.AwayProjection, 0.001)
	assert.Equal(t, engine.SignalStrongOver, report.Signal)
	assert.Equal(t, engine.VerdictGreenLight, report.Verdict)
	assert.Equal(t, "match-1", report.MatchID)
}

func TestBuildLiveReport_MissingPredictionFails(t *testing.T) {
	report, err := engine.BuildLiveReport(engine.ScoutResult{}, engine.FusionAnalysis{}, nil)

	assert.Nil(t, report)
	assert.ErrorIs(t, err, engine.ErrInvalidSummary)
}
