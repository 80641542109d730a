package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/internal/services"
)

// AnalysisHandler exposes the fusion pipeline over HTTP.
type AnalysisHandler struct {
	pipeline *services.PipelineService
	cache    *services.CacheService
	logger   *logrus.Logger
}

func NewAnalysisHandler(pipeline *services.PipelineService, cache *services.CacheService, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		pipeline: pipeline,
		cache:    cache,
		logger:   logger,
	}
}

// AnalyzeMatch runs the full pipeline for a stored match.
func (h *AnalysisHandler) AnalyzeMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	analysis, err := h.pipeline.AnalyzeMatch(c.Request.Context(), matchID)
	if err != nil {
		h.logger.WithError(err).WithField("match_id", matchID).Error("Match analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Match analysis failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": analysis})
}

// GetAnalysis returns the most recent cached analysis snapshot.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	var analysis services.MatchAnalysis
	if err := h.cache.GetAnalysisSnapshot(matchID.String(), &analysis); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No cached analysis for match, run an analysis first"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": analysis, "meta": gin.H{"source": "cache"}})
}

// PreviewAnalysis evaluates a caller-supplied match without touching
// storage. Useful for what-if checks against hypothetical stats.
func (h *AnalysisHandler) PreviewAnalysis(c *gin.Context) {
	var request struct {
		Match      models.Match     `json:"match" binding:"required"`
		Tip        *engine.TipInput `json:"tip"`
		NewsImpact float64          `json:"news_impact"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	if request.Match.Sport == "" || request.Match.HomeTeam == "" || request.Match.AwayTeam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "match requires sport, home_team and away_team"})
		return
	}
	if request.Match.ID == uuid.Nil {
		request.Match.ID = uuid.New()
	}

	analysis := h.pipeline.Preview(&request.Match, request.Tip, request.NewsImpact)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": analysis})
}

// EvaluateAlerts checks a raw live-metrics map against the alert rules.
func (h *AnalysisHandler) EvaluateAlerts(c *gin.Context) {
	var request struct {
		Metrics map[string]interface{} `json:"metrics"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	alerts := engine.EvaluateAlerts(request.Metrics)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"alerts": alerts, "count": len(alerts)},
	})
}

// Projection converts a fusion summary into scoreline projections.
func (h *AnalysisHandler) Projection(c *gin.Context) {
	var summary engine.FusionSummary
	if err := c.ShouldBindJSON(&summary); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	prediction, err := engine.Project(&summary)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidSummary) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid summary", "details": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Projection failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Projection failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": prediction})
}

// GetCalibration returns the active per-sport calibration profiles.
func (h *AnalysisHandler) GetCalibration(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.pipeline.Calibration()})
}

// UpdateCalibration hot-reloads calibration profiles.
func (h *AnalysisHandler) UpdateCalibration(c *gin.Context) {
	var cal engine.CalibrationConfig
	if err := c.ShouldBindJSON(&cal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	if len(cal.Sports) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "calibration requires at least one sport profile"})
		return
	}

	h.pipeline.UpdateCalibration(cal)
	h.logger.WithField("sports", len(cal.Sports)).Info("Calibration profiles updated")
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.pipeline.Calibration()})
}
