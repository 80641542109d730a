package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/internal/providers"
	"github.com/stitts-dev/bet-intel/internal/services"
	"github.com/stitts-dev/bet-intel/pkg/database"
)

// MatchHandler handles match listing and feed sync endpoints
type MatchHandler struct {
	db     *database.DB
	cache  *services.CacheService
	feed   *providers.SportsFeedClient
	logger *logrus.Logger
}

func NewMatchHandler(db *database.DB, cache *services.CacheService, feed *providers.SportsFeedClient, logger *logrus.Logger) *MatchHandler {
	return &MatchHandler{
		db:     db,
		cache:  cache,
		feed:   feed,
		logger: logger,
	}
}

// ListMatches returns matches filtered by sport and status.
func (h *MatchHandler) ListMatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	query := h.db.Model(&models.Match{})
	if sport := c.Query("sport"); sport != "" {
		query = query.Where("sport = ?", sport)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.logger.WithError(err).Error("Failed to count matches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list matches"})
		return
	}

	var matches []models.Match
	if err := query.Order("start_time ASC").Limit(limit).Offset(offset).Find(&matches).Error; err != nil {
		h.logger.WithError(err).Error("Failed to list matches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   matches,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetMatch returns one match by ID.
func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	var match models.Match
	if err := h.db.First(&match, "id = ?", matchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to load match")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load match"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": match})
}

// GetLiveMatches returns all in-play matches, preferring the cached feed
// snapshot over a database read.
func (h *MatchHandler) GetLiveMatches(c *gin.Context) {
	var cached []models.Match
	if err := h.cache.GetLiveSnapshot(&cached); err == nil && len(cached) > 0 {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": cached, "meta": gin.H{"source": "cache"}})
		return
	}

	var matches []models.Match
	if err := h.db.Where("status = ?", models.StatusLive).Order("start_time ASC").Find(&matches).Error; err != nil {
		h.logger.WithError(err).Error("Failed to load live matches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load live matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": matches, "meta": gin.H{"source": "database"}})
}

// SyncFixtures pulls fixtures for one sport from the feed on demand. The
// cached feed snapshot debounces repeated manual syncs inside its TTL;
// force=true bypasses it.
func (h *MatchHandler) SyncFixtures(c *gin.Context) {
	sport := c.Query("sport")
	if sport == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sport query parameter is required"})
		return
	}

	if c.Query("force") != "true" {
		var cached []models.Match
		if err := h.cache.GetFeedSnapshot(sport, &cached); err == nil && len(cached) > 0 {
			c.JSON(http.StatusOK, gin.H{
				"status": "success",
				"meta":   gin.H{"sport": sport, "fetched": len(cached), "synced": 0, "source": "cache"},
			})
			return
		}
	}

	matches, err := h.feed.FetchFixtures(c.Request.Context(), models.Sport(sport))
	if err != nil {
		h.logger.WithError(err).WithField("sport", sport).Error("Fixture sync failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Fixture sync failed", "details": err.Error()})
		return
	}

	synced := 0
	for i := range matches {
		var existing models.Match
		err := h.db.Where("external_id = ?", matches[i].ExternalID).First(&existing).Error
		if err != nil {
			if err := h.db.Create(&matches[i]).Error; err != nil {
				h.logger.WithError(err).Warn("Fixture insert failed")
				continue
			}
		} else {
			updates := map[string]interface{}{
				"start_time": matches[i].StartTime,
				"league":     matches[i].League,
				"stats":      matches[i].Stats,
			}
			if err := existing.TransitionTo(matches[i].Status); err == nil {
				updates["status"] = matches[i].Status
			}
			if err := h.db.Model(&existing).Updates(updates).Error; err != nil {
				h.logger.WithError(err).Warn("Fixture update failed")
				continue
			}
		}
		synced++
	}

	if err := h.cache.SetFeedSnapshot(sport, matches); err != nil {
		h.logger.WithError(err).Debug("Feed snapshot cache write failed")
	}

	h.logger.WithFields(logrus.Fields{"sport": sport, "synced": synced}).Info("Manual fixture sync complete")
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"meta":   gin.H{"sport": sport, "fetched": len(matches), "synced": synced, "source": "feed"},
	})
}
