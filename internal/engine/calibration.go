package engine

import (
	"github.com/stitts-dev/bet-intel/internal/models"
)

// SportCalibration holds the per-sport tunable weights and thresholds used by
// the scout analyzer. Instructions is free text consumed only as AI prompt
// context, never by the deterministic engines.
type SportCalibration struct {
	WeightRecentForm float64 `json:"weight_recent_form" mapstructure:"weight_recent_form"`
	PaceWeight       float64 `json:"pace_weight" mapstructure:"pace_weight"`
	Over25Threshold  float64 `json:"over25_threshold" mapstructure:"over25_threshold"`
	Instructions     string  `json:"instructions" mapstructure:"instructions"`
}

// CalibrationConfig is the process-wide calibration, loaded once and passed
// explicitly into every engine call. The pipeline never mutates it.
type CalibrationConfig struct {
	Sports map[models.Sport]SportCalibration `json:"sports"`
}

// DefaultCalibration returns the stock calibration used when the admin has
// not tuned any sport.
func DefaultCalibration() CalibrationConfig {
	return CalibrationConfig{
		Sports: map[models.Sport]SportCalibration{
			models.SportFootball: {
				WeightRecentForm: 0.5,
				PaceWeight:       0.4,
				Over25Threshold:  2.5,
			},
			models.SportBasketball: {
				WeightRecentForm: 0.4,
				PaceWeight:       0.5,
				Over25Threshold:  215,
			},
			models.SportVolleyball: {
				WeightRecentForm: 0.5,
				PaceWeight:       0.3,
			},
			models.SportIceHockey: {
				WeightRecentForm: 0.4,
				PaceWeight:       0.4,
			},
			models.SportESports: {
				WeightRecentForm: 0.3,
				PaceWeight:       0.6,
			},
		},
	}
}

// For returns the calibration for a sport, reporting whether the sport is
// recognized.
func (c CalibrationConfig) For(sport models.Sport) (SportCalibration, bool) {
	if c.Sports == nil {
		return SportCalibration{}, false
	}
	cal, ok := c.Sports[sport]
	return cal, ok
}
