package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/pkg/database"
)

// TipHandler handles tip publishing and settlement endpoints
type TipHandler struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewTipHandler(db *database.DB, logger *logrus.Logger) *TipHandler {
	return &TipHandler{
		db:     db,
		logger: logger,
	}
}

// ListTips returns tips filtered by match and status.
func (h *TipHandler) ListTips(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := h.db.Model(&models.Tip{})
	if matchID := c.Query("match_id"); matchID != "" {
		id, err := uuid.Parse(matchID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match_id filter"})
			return
		}
		query = query.Where("match_id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var tips []models.Tip
	if err := query.Order("created_at DESC").Limit(limit).Find(&tips).Error; err != nil {
		h.logger.WithError(err).Error("Failed to list tips")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": tips, "meta": gin.H{"count": len(tips)}})
}

// PublishTip stores a tip against a match and stamps its publish time.
func (h *TipHandler) PublishTip(c *gin.Context) {
	var request struct {
		MatchID    string  `json:"match_id" binding:"required"`
		Prediction string  `json:"prediction" binding:"required"`
		Odds       float64 `json:"odds"`
		Confidence int     `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
		IsPremium  bool    `json:"is_premium"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	matchID, err := uuid.Parse(request.MatchID)
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
		h.logger.WithError(err).Error("Failed to load match for tip")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish tip"})
		return
	}

	now := time.Now()
	tip := models.Tip{
		MatchID:     matchID,
		Prediction:  request.Prediction,
		Odds:        request.Odds,
		Confidence:  request.Confidence,
		Reasoning:   request.Reasoning,
		IsPremium:   request.IsPremium,
		Status:      models.TipPending,
		PublishedAt: &now,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&tip).Error; err != nil {
		h.logger.WithError(err).Error("Failed to publish tip")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish tip"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"tip_id":     tip.ID,
		"match_id":   matchID,
		"prediction": tip.Prediction,
	}).Info("Tip published")

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": tip})
}

// SettleTip moves a pending tip to won, lost or void. Settled tips are
// immutable.
func (h *TipHandler) SettleTip(c *gin.Context) {
	tipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tip ID"})
		return
	}

	var request struct {
		Status models.TipStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	var tip models.Tip
	if err := h.db.First(&tip, "id = ?", tipID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tip not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to load tip")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to settle tip"})
		return
	}

	if err := tip.Settle(request.Status); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Model(&tip).Update("status", tip.Status).Error; err != nil {
		h.logger.WithError(err).Error("Failed to settle tip")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to settle tip"})
		return
	}

	h.logger.WithFields(logrus.Fields{"tip_id": tipID, "status": tip.Status}).Info("Tip settled")
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": tip})
}
