package engine

import (
	"math"
)

// Fixed alert thresholds. Independent: any subset of zero to five alerts
// may fire.
const (
	pressureAlertThreshold    = 120.0
	momentumAlertThreshold    = 80.0
	riskAlertThreshold        = 70.0
	dominanceAlertThreshold   = 75.0
	dangerIndexAlertThreshold = 65.0
)

// MetricsUnavailableAlert is emitted when no metrics payload was provided
// at all. Alerting degrades instead of crashing a live monitoring loop.
const MetricsUnavailableAlert = "live metrics unavailable, alert evaluation skipped"

type alertRule struct {
	key       string
	threshold float64
	message   string
}

var alertRules = []alertRule{
	{"pressure", pressureAlertThreshold, "Extreme offensive pressure: pressure index above 120"},
	{"momentum", momentumAlertThreshold, "Momentum surge: momentum index above 80"},
	{"risk", riskAlertThreshold, "Elevated risk profile: risk index above 70"},
	{"dominance", dominanceAlertThreshold, "One-sided dominance: dominance index above 75"},
	{"dangerIndex", dangerIndexAlertThreshold, "Imminent danger: danger index above 65"},
}

// EvaluateAlerts inspects live signal magnitudes and emits human-readable
// alert strings. Total function: it never returns an error. Absent,
// non-numeric or NaN metrics are skipped; a nil payload yields a single
// diagnostic alert.
func EvaluateAlerts(metrics map[string]interface{}) []string {
	if metrics == nil {
		return []string{MetricsUnavailableAlert}
	}

	alerts := []string{}
	for _, rule := range alertRules {
		raw, present := metrics[rule.key]
		if !present {
			continue
		}
		value, ok := toFloat(raw)
		if !ok || math.IsNaN(value) {
			continue
		}
		if value > rule.threshold {
			alerts = append(alerts, rule.message)
		}
	}
	return alerts
}

// toFloat coerces the numeric types a decoded JSON payload can carry.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}
