package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/bet-intel/internal/services"
	"github.com/stitts-dev/bet-intel/pkg/database"
)

// HubStats is the slice of the websocket hub the health endpoint reads.
type HubStats interface {
	GetHubStats() map[string]interface{}
	GetConnectionCount() int
}

// HealthHandler reports liveness and dependency readiness
type HealthHandler struct {
	db       *database.DB
	cache    *services.CacheService
	ai       *services.AIClient
	fetcher  *services.DataFetcher
	breakers *services.CircuitBreakerService
	hub      HubStats
	logger   *logrus.Logger
	started  time.Time
}

func NewHealthHandler(db *database.DB, cache *services.CacheService, ai *services.AIClient, fetcher *services.DataFetcher, breakers *services.CircuitBreakerService, hub HubStats, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		cache:    cache,
		ai:       ai,
		fetcher:  fetcher,
		breakers: breakers,
		hub:      hub,
		logger:   logger,
		started:  time.Now(),
	}
}

// Health is the liveness check. Carries the websocket fan-out footprint
// and per-upstream circuit states for operators.
func (h *HealthHandler) Health(c *gin.Context) {
	response := gin.H{
		"status":         "healthy",
		"service":        "bet-intel",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}

	if h.hub != nil {
		response["websocket"] = h.hub.GetHubStats()
	}
	if h.breakers != nil {
		circuits := gin.H{}
		for _, upstream := range []string{"sportsfeed", "newsfeed", "webhook"} {
			counts := h.breakers.GetCounts(upstream)
			circuits[upstream] = gin.H{
				"state":    h.breakers.GetState(upstream).String(),
				"requests": counts.Requests,
				"failures": counts.TotalFailures,
			}
		}
		response["circuits"] = circuits
	}

	c.JSON(http.StatusOK, response)
}

// Ready checks dependencies. Degraded AI does not fail readiness since
// the pipeline runs without tips.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if sqlDB, err := h.db.DB.DB(); err != nil || sqlDB.Ping() != nil {
		checks["database"] = "unreachable"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.cache.IsHealthy() {
		checks["redis"] = "ok"
	} else {
		checks["redis"] = "unreachable"
		healthy = false
	}

	if !h.ai.IsConfigured() {
		checks["ai"] = "unconfigured"
	} else if h.ai.IsHealthy() {
		checks["ai"] = "ok"
	} else {
		checks["ai"] = "degraded"
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Jobs reports background job scheduling state.
func (h *HealthHandler) Jobs(c *gin.Context) {
	if h.fetcher == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": []services.JobInfo{}, "meta": gin.H{"enabled": false}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.fetcher.Jobs(), "meta": gin.H{"enabled": true}})
}
