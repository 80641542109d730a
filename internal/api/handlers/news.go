package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/internal/services"
	"github.com/stitts-dev/bet-intel/pkg/database"
)

// NewsHandler handles news ingestion and classification endpoints
type NewsHandler struct {
	db     *database.DB
	cache  *services.CacheService
	logger *logrus.Logger
}

func NewNewsHandler(db *database.DB, cache *services.CacheService, logger *logrus.Logger) *NewsHandler {
	return &NewsHandler{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// IngestNews classifies and stores one news item.
func (h *NewsHandler) IngestNews(c *gin.Context) {
	var request struct {
		Title   string `json:"title"`
		Content string `json:"content" binding:"required"`
		Team    string `json:"team"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	classification := engine.ClassifyNews(request.Title + " " + request.Content)

	item := models.NewsItem{
		Title:     request.Title,
		Content:   request.Content,
		Team:      request.Team,
		Category:  classification.Category,
		Relevance: classification.Relevance,
		Impact:    classification.Impact,
		NewsScore: classification.NewsScore,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&item).Error; err != nil {
		h.logger.WithError(err).Error("Failed to store news item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store news item"})
		return
	}

	if request.Team != "" {
		if err := h.cache.SetNewsImpact(request.Team, classification); err != nil {
			h.logger.WithError(err).Debug("News impact cache write failed")
		}
	}

	h.logger.WithFields(logrus.Fields{
		"news_id":  item.ID,
		"category": item.Category,
		"score":    item.NewsScore,
	}).Info("News item ingested")

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": item})
}

// ClassifyNews classifies text without storing anything.
func (h *NewsHandler) ClassifyNews(c *gin.Context) {
	var request struct {
		Text string `json:"text"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	classification := engine.ClassifyNews(request.Text)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"classification": classification,
			"impact_signal":  classification.ImpactSignal(),
		},
	})
}

// ListNews returns stored news items, newest first.
func (h *NewsHandler) ListNews(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := h.db.Model(&models.NewsItem{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if team := c.Query("team"); team != "" {
		query = query.Where("team = ?", team)
	}
	if c.Query("include_archived") != "true" {
		query = query.Where("archived = ?", false)
	}

	var items []models.NewsItem
	if err := query.Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		h.logger.WithError(err).Error("Failed to list news")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list news"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": items, "meta": gin.H{"count": len(items)}})
}

// ArchiveNews soft-deletes a news item so it stops influencing fusion.
func (h *NewsHandler) ArchiveNews(c *gin.Context) {
	newsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid news ID"})
		return
	}

	var item models.NewsItem
	if err := h.db.First(&item, "id = ?", newsID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "News item not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to load news item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load news item"})
		return
	}

	if err := h.db.Model(&item).Update("archived", true).Error; err != nil {
		h.logger.WithError(err).Error("Failed to archive news item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive news item"})
		return
	}

	if item.Team != "" && h.cache != nil {
		if err := h.cache.InvalidateNewsImpact(item.Team); err != nil {
			h.logger.WithError(err).Debug("News impact cache invalidation failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"id": newsID, "archived": true}})
}
