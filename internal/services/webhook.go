package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/bet-intel/internal/engine"
)

// WebhookDispatcher delivers FusionAnalysis-derived payloads to configured
// sinks.
type WebhookDispatcher struct {
	urls           []string
	httpClient     *http.Client
	circuitBreaker *CircuitBreakerService
	logger         *logrus.Logger
	retryAttempts  int
}

// AnalysisPayload is the wire shape delivered to webhook sinks.
type AnalysisPayload struct {
	MatchID         string    `json:"match_id"`
	FinalConfidence int       `json:"final_confidence"`
	ConfidenceLevel string    `json:"confidence_level"`
	EV              float64   `json:"ev"`
	MarketOdd       float64   `json:"market_odd"`
	Verdict         string    `json:"verdict"`
	Signal          string    `json:"signal"`
	IsHotGame       bool      `json:"is_hot_game"`
	Alerts          []string  `json:"alerts,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

func NewWebhookDispatcher(urls []string, cb *CircuitBreakerService, timeout time.Duration, logger *logrus.Logger) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		urls:           urls,
		httpClient:     &http.Client{Timeout: timeout},
		circuitBreaker: cb,
		logger:         logger,
		retryAttempts:  3,
	}
}

// BuildPayload maps a fusion analysis and its alerts into the wire shape.
func BuildPayload(analysis engine.FusionAnalysis, alerts []string) AnalysisPayload {
	return AnalysisPayload{
		MatchID:         analysis.MatchID,
		FinalConfidence: analysis.FinalConfidence,
		ConfidenceLevel: string(analysis.ConfidenceLevel),
		EV:              analysis.EV,
		MarketOdd:       analysis.MarketOdd,
		Verdict:         string(analysis.Verdict),
		Signal:          string(analysis.Scout.Signal),
		IsHotGame:       analysis.Scout.IsHotGame,
		Alerts:          alerts,
		GeneratedAt:     time.Now().UTC(),
	}
}

// Dispatch delivers the payload to every configured sink. Failures are
// logged per sink and never abort the remaining deliveries.
func (w *WebhookDispatcher) Dispatch(ctx context.Context, payload AnalysisPayload) {
	if len(w.urls) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		w.logger.WithError(err).Error("Failed to marshal webhook payload")
		return
	}

	for _, url := range w.urls {
		if err := w.deliver(ctx, url, body); err != nil {
			w.logger.WithError(err).WithFields(logrus.Fields{
				"url":      url,
				"match_id": payload.MatchID,
			}).Warn("Webhook delivery failed")
			continue
		}
		w.logger.WithFields(logrus.Fields{
			"url":      url,
			"match_id": payload.MatchID,
			"verdict":  payload.Verdict,
		}).Debug("Webhook delivered")
	}
}

func (w *WebhookDispatcher) deliver(ctx context.Context, url string, body []byte) error {
	_, err := w.circuitBreaker.Execute("webhook", func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt < w.retryAttempts; attempt++ {
			if attempt > 0 {
				backoff := time.Duration(1<<uint(attempt)) * time.Second
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}

			req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := w.httpClient.Do(req)
			if err != nil {
				lastErr = err
				continue
			}
			resp.Body.Close()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil, nil
			}
			lastErr = fmt.Errorf("sink responded with status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed after %d attempts: %w", w.retryAttempts, lastErr)
	})
	return err
}
