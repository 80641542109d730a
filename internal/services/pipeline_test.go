package services_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/internal/services"
)

func newPipeline(t *testing.T, defaultOdd float64) *services.PipelineService {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return services.NewPipelineService(nil, nil, nil, nil, log, engine.OddsPolicyFixed, defaultOdd)
}

func previewMatch() *models.Match {
	return &models.Match{
		ID:        uuid.New(),
		Sport:     models.SportFootball,
		HomeTeam:  "Flamengo",
		AwayTeam:  "Palmeiras",
		Status:    models.StatusScheduled,
		StartTime: time.Now().Add(2 * time.Hour),
	}
}

func TestPreview_UsesConfiguredDefaultOdd(t *testing.T) {
	pipeline := newPipeline(t, 2.50)

	analysis := pipeline.Preview(previewMatch(), nil, 0)

	require.NotNil(t, analysis)
	assert.InDelta(t, 2.50, analysis.Fusion.MarketOdd, 0.001)
	// Implied probability of a 2.50 odd is 40.
	assert.InDelta(t, float64(analysis.Fusion.FinalConfidence)-40, analysis.Fusion.EV, 0.01)
}

func TestUpdateCalibration_ChangesScoutOutput(t *testing.T) {
	pipeline := newPipeline(t, 1.90)

	before := pipeline.Preview(previewMatch(), nil, 0)
	assert.Equal(t, 60, before.Scout.Probability)

	cal := engine.DefaultCalibration()
	football := cal.Sports[models.SportFootball]
	football.WeightRecentForm = 0.9
	cal.Sports[models.SportFootball] = football
	pipeline.UpdateCalibration(cal)

	after := pipeline.Preview(previewMatch(), nil, 0)
	assert.Equal(t, 64, after.Scout.Probability)
	assert.InDelta(t, 0.9, pipeline.Calibration().Sports[models.SportFootball].WeightRecentForm, 0.001)
}
