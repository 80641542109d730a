package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/pkg/database"
	"github.com/stitts-dev/bet-intel/pkg/logger"
)

// AnalysisBroadcaster pushes finished analyses to connected clients.
// Implemented by the websocket hub.
type AnalysisBroadcaster interface {
	BroadcastAnalysis(payload AnalysisPayload)
}

// MatchAnalysis aggregates one full pipeline evaluation for a match.
type MatchAnalysis struct {
	Match      *models.Match            `json:"match,omitempty"`
	Scout      engine.ScoutResult       `json:"scout"`
	Fusion     engine.FusionAnalysis    `json:"fusion"`
	Prediction *engine.PredictionOutput `json:"prediction,omitempty"`
	LiveReport *engine.LiveReport       `json:"live_report,omitempty"`
	Alerts     []string                 `json:"alerts"`
}

// PipelineService owns the I/O the pure engines refuse: loading matches,
// fetching AI tips, persisting fusion records, broadcasting and webhook
// delivery. Engines stay side-effect free underneath it.
type PipelineService struct {
	db          *database.DB
	cache       *CacheService
	ai          *AIClient
	broadcaster AnalysisBroadcaster
	webhooks    *WebhookDispatcher
	logger      *logrus.Logger

	mu          sync.RWMutex
	calibration engine.CalibrationConfig
	oddsPolicy  engine.OddsPolicy
	defaultOdd  float64
}

func NewPipelineService(
	db *database.DB,
	cache *CacheService,
	ai *AIClient,
	webhooks *WebhookDispatcher,
	logger *logrus.Logger,
	oddsPolicy engine.OddsPolicy,
	defaultOdd float64,
) *PipelineService {
	// Calibration survives restarts through the cache snapshot written on
	// every admin update.
	calibration := engine.DefaultCalibration()
	if cache != nil {
		var cached engine.CalibrationConfig
		if err := cache.GetCalibration(&cached); err == nil && len(cached.Sports) > 0 {
			calibration = cached
			logger.WithField("sports", len(cached.Sports)).Info("Calibration restored from cache")
		}
	}

	return &PipelineService{
		db:          db,
		cache:       cache,
		ai:          ai,
		webhooks:    webhooks,
		logger:      logger,
		calibration: calibration,
		oddsPolicy:  oddsPolicy,
		defaultOdd:  defaultOdd,
	}
}

// SetBroadcaster wires the websocket hub after construction.
func (p *PipelineService) SetBroadcaster(b AnalysisBroadcaster) {
	p.broadcaster = b
}

// Calibration returns the current calibration snapshot.
func (p *PipelineService) Calibration() engine.CalibrationConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calibration
}

// UpdateCalibration hot-reloads the per-sport weights. Admin-only path;
// the pipeline itself never mutates calibration.
func (p *PipelineService) UpdateCalibration(cal engine.CalibrationConfig) {
	p.mu.Lock()
	p.calibration = cal
	p.mu.Unlock()

	if p.cache != nil {
		if err := p.cache.SetCalibration(cal); err != nil {
			p.logger.WithError(err).Warn("Failed to persist calibration snapshot")
		}
	}
	p.logger.Info("Calibration config reloaded")
}

// AnalyzeMatch runs the full fusion pipeline for a stored match: scout,
// news impact, optional AI tip, fusion, persistence, alerts, broadcast and
// webhook delivery.
func (p *PipelineService) AnalyzeMatch(ctx context.Context, matchID uuid.UUID) (*MatchAnalysis, error) {
	var match models.Match
	if err := p.db.WithContext(ctx).First(&match, "id = ?", matchID).Error; err != nil {
		return nil, fmt.Errorf("loading match %s: %w", matchID, err)
	}

	newsImpact := p.newsImpactFor(ctx, &match)

	var tip *engine.TipInput
	aiContext := ""
	if p.ai != nil && p.ai.IsConfigured() {
		suggestion, err := p.ai.SuggestTip(ctx, &match, p.sportCalibration(match.Sport))
		if err != nil {
			// A missing tip degrades the fusion input, it never blocks it.
			logger.WithMatch(match.ID.String()).WithError(err).Warn("AI tip unavailable, fusing without it")
		} else {
			tip = &engine.TipInput{Prediction: suggestion.Prediction, Odds: suggestion.Odds}
			aiContext = suggestion.Reasoning
		}
	}

	analysis := p.evaluate(&match, tip, newsImpact)
	if aiContext != "" {
		analysis.Fusion.AIContext = aiContext
	}

	if err := p.persist(ctx, &analysis.Fusion); err != nil {
		return nil, err
	}
	if p.cache != nil {
		if err := p.cache.SetAnalysisSnapshot(match.ID.String(), analysis); err != nil {
			p.logger.WithError(err).Debug("Failed to cache analysis snapshot")
		}
	}

	payload := BuildPayload(analysis.Fusion, analysis.Alerts)
	if p.broadcaster != nil {
		p.broadcaster.BroadcastAnalysis(payload)
	}
	if p.webhooks != nil {
		go p.webhooks.Dispatch(context.WithoutCancel(ctx), payload)
	}

	logger.WithAnalysisContext(match.ID.String(), string(match.Sport)).WithFields(logrus.Fields{
		"confidence": analysis.Fusion.FinalConfidence,
		"verdict":    analysis.Fusion.Verdict,
		"ev":         analysis.Fusion.EV,
	}).Info("Match analysis completed")

	return analysis, nil
}

// Preview evaluates a caller-supplied match payload without touching
// storage, AI or delivery. Used by the stateless preview endpoint.
func (p *PipelineService) Preview(match *models.Match, tip *engine.TipInput, newsImpact float64) *MatchAnalysis {
	return p.evaluate(match, tip, newsImpact)
}

// evaluate runs the pure engine chain for one match.
func (p *PipelineService) evaluate(match *models.Match, tip *engine.TipInput, newsImpact float64) *MatchAnalysis {
	p.mu.RLock()
	calibration := p.calibration
	oddsPolicy := p.oddsPolicy
	defaultOdd := p.defaultOdd
	p.mu.RUnlock()

	scout := engine.AnalyzeMatch(match, calibration)
	fusion := engine.FuseWithDefaultOdd(match, scout, tip, newsImpact, oddsPolicy, defaultOdd)

	analysis := &MatchAnalysis{
		Match:  match,
		Scout:  scout,
		Fusion: fusion,
		Alerts: engine.EvaluateAlerts(deriveLiveMetrics(match)),
	}

	prediction, err := engine.Project(buildSummary(match, fusion))
	if err != nil {
		p.logger.WithError(err).WithField("match_id", match.ID).Warn("Projection skipped")
		return analysis
	}
	analysis.Prediction = prediction

	if match.IsLive() {
		report, err := engine.BuildLiveReport(scout, fusion, prediction)
		if err == nil {
			analysis.LiveReport = report
		}
	}

	return analysis
}

func (p *PipelineService) persist(ctx context.Context, fusion *engine.FusionAnalysis) error {
	matchID, err := uuid.Parse(fusion.MatchID)
	if err != nil {
		return fmt.Errorf("fusion carries invalid match id %q: %w", fusion.MatchID, err)
	}

	record := models.FusionRecord{
		MatchID:          matchID,
		ScoutProbability: fusion.Scout.Probability,
		ScoutSignal:      string(fusion.Scout.Signal),
		IsHotGame:        fusion.Scout.IsHotGame,
		AIContext:        fusion.AIContext,
		FinalConfidence:  fusion.FinalConfidence,
		ConfidenceLevel:  string(fusion.ConfidenceLevel),
		EV:               fusion.EV,
		MarketOdd:        fusion.MarketOdd,
		Verdict:          string(fusion.Verdict),
		NewsImpactScore:  fusion.NewsImpactScore,
	}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("persisting fusion record: %w", err)
	}
	return nil
}

// newsImpactFor derives the signed news impact for a match from the most
// recent unarchived items mentioning either team. The strongest signal
// wins. Per-team cached classifications from the ingest job are folded in
// alongside the stored items.
func (p *PipelineService) newsImpactFor(ctx context.Context, match *models.Match) float64 {
	strongest := 0.0
	if p.cache != nil {
		for _, team := range []string{match.HomeTeam, match.AwayTeam} {
			var cached engine.NewsClassification
			if err := p.cache.GetNewsImpact(team, &cached); err == nil {
				if signal := cached.ImpactSignal(); math.Abs(signal) > math.Abs(strongest) {
					strongest = signal
				}
			}
		}
	}

	var items []models.NewsItem
	cutoff := time.Now().Add(-24 * time.Hour)
	err := p.db.WithContext(ctx).
		Where("archived = ?", false).
		Where("team IN ?", []string{match.HomeTeam, match.AwayTeam}).
		Where("created_at > ?", cutoff).
		Order("created_at DESC").
		Limit(10).
		Find(&items).Error
	if err != nil {
		p.logger.WithError(err).WithField("match_id", match.ID).Warn("News lookup failed, using cached impact only")
		return strongest
	}

	for _, item := range items {
		classification := engine.NewsClassification{
			Category:  item.Category,
			Relevance: item.Relevance,
			Impact:    item.Impact,
			NewsScore: item.NewsScore,
		}
		signal := classification.ImpactSignal()
		if math.Abs(signal) > math.Abs(strongest) {
			strongest = signal
		}
	}
	return strongest
}

func (p *PipelineService) sportCalibration(sport models.Sport) engine.SportCalibration {
	cal, _ := p.Calibration().For(sport)
	return cal
}

// deriveLiveMetrics maps raw telemetry to the index scales the alerts
// evaluator checks. Pre-game matches carry no live metrics.
func deriveLiveMetrics(match *models.Match) map[string]interface{} {
	if !match.IsLive() {
		return map[string]interface{}{}
	}

	stats := match.Stats
	metrics := map[string]interface{}{}

	if stats.Minute > 0 {
		metrics["pressure"] = float64(stats.DangerousAttacks) / float64(stats.Minute) * 100
	}
	metrics["momentum"] = stats.Possession*1.2 + float64(stats.ShotsOnTarget)*2
	metrics["risk"] = float64(stats.Cards)*15 + scoreGap(stats)*5
	metrics["dominance"] = stats.Possession + scoreGap(stats)*10
	metrics["dangerIndex"] = (stats.XGHome+stats.XGAway)*20 + float64(stats.ShotsOnTarget)*3

	return metrics
}

func scoreGap(stats models.MatchStats) float64 {
	gap := stats.HomeScore - stats.AwayScore
	if gap < 0 {
		gap = -gap
	}
	return float64(gap)
}

// buildSummary condenses a fusion analysis plus telemetry into the
// projector input.
func buildSummary(match *models.Match, fusion engine.FusionAnalysis) *engine.FusionSummary {
	stats := match.Stats

	pace := stats.Pace
	if pace == 0 && stats.Minute > 0 {
		pace = float64(stats.DangerousAttacks) / float64(stats.Minute) * 50
	}

	return &engine.FusionSummary{
		MatchID:     match.ID.String(),
		Sport:       match.Sport,
		FusionScore: float64(fusion.FinalConfidence),
		Metrics: &engine.SummaryMetrics{
			Power:    float64(fusion.FinalConfidence),
			Momentum: clamp100(stats.Possession + float64(stats.ShotsOnTarget)*2),
			Pace:     clamp100(pace),
			Risk:     clamp100(float64(stats.Cards) * 15),
		},
	}
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
