package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CacheService provides caching for feed snapshots, AI responses and
// analysis results.
type CacheService struct {
	client *redis.Client
	logger *logrus.Logger
	ctx    context.Context
}

// Cache TTLs per data class.
const (
	FeedSnapshotTTL  = 2 * time.Minute  // fixtures refresh often pre-game
	LiveSnapshotTTL  = 30 * time.Second // live telemetry goes stale fast
	AIResponseTTL    = 1 * time.Hour    // model output per prompt hash
	AnalysisTTL      = 5 * time.Minute  // fusion snapshots between sync ticks
	NewsTTL          = 10 * time.Minute // news is time-sensitive
	CalibrationTTL   = 24 * time.Hour   // admin hot-reloads invalidate explicitly
)

// NewCacheService creates a new cache service instance
func NewCacheService(redisClient *redis.Client, logger *logrus.Logger) *CacheService {
	return &CacheService{
		client: redisClient,
		logger: logger,
		ctx:    context.Background(),
	}
}

func (c *CacheService) buildCacheKey(elements ...string) string {
	return fmt.Sprintf("bet-intel:%s", strings.Join(elements, ":"))
}

// Set stores a value in cache with TTL
func (c *CacheService) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	err = c.client.Set(c.ctx, key, data, ttl).Err()
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to set cache value")
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ttl": ttl.String(),
	}).Debug("Cached value successfully")

	return nil
}

// Get retrieves a value from cache
func (c *CacheService) Get(key string, dest interface{}) error {
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("cache miss")
		}
		c.logger.WithError(err).WithField("key", key).Error("Failed to get cache value")
		return err
	}

	err = json.Unmarshal([]byte(data), dest)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to unmarshal cache value")
		return err
	}

	c.logger.WithField("key", key).Debug("Cache hit")
	return nil
}

// Delete removes a value from cache
func (c *CacheService) Delete(key string) error {
	err := c.client.Del(c.ctx, key).Err()
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to delete cache value")
		return err
	}
	return nil
}

// Exists checks if a key exists in cache
func (c *CacheService) Exists(key string) (bool, error) {
	count, err := c.client.Exists(c.ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Feed snapshot caching
func (c *CacheService) SetFeedSnapshot(sport string, snapshot interface{}) error {
	return c.Set(c.buildCacheKey("feed", sport), snapshot, FeedSnapshotTTL)
}

func (c *CacheService) GetFeedSnapshot(sport string, dest interface{}) error {
	return c.Get(c.buildCacheKey("feed", sport), dest)
}

func (c *CacheService) SetLiveSnapshot(snapshot interface{}) error {
	return c.Set(c.buildCacheKey("feed", "live"), snapshot, LiveSnapshotTTL)
}

func (c *CacheService) GetLiveSnapshot(dest interface{}) error {
	return c.Get(c.buildCacheKey("feed", "live"), dest)
}

// AI response caching per prompt hash. TTL comes from config so operators
// can tune how long model output stays warm.
func (c *CacheService) SetAIResponse(promptHash string, response interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = AIResponseTTL
	}
	return c.Set(c.buildCacheKey("ai", "response", promptHash), response, ttl)
}

func (c *CacheService) GetAIResponse(promptHash string, dest interface{}) error {
	return c.Get(c.buildCacheKey("ai", "response", promptHash), dest)
}

// Fusion analysis snapshot caching
func (c *CacheService) SetAnalysisSnapshot(matchID string, analysis interface{}) error {
	return c.Set(c.buildCacheKey("analysis", matchID), analysis, AnalysisTTL)
}

func (c *CacheService) GetAnalysisSnapshot(matchID string, dest interface{}) error {
	return c.Get(c.buildCacheKey("analysis", matchID), dest)
}

// News impact caching per team
func (c *CacheService) SetNewsImpact(team string, impact interface{}) error {
	return c.Set(c.buildCacheKey("news", "impact", team), impact, NewsTTL)
}

func (c *CacheService) GetNewsImpact(team string, dest interface{}) error {
	return c.Get(c.buildCacheKey("news", "impact", team), dest)
}

// InvalidateNewsImpact drops a team's cached classification, used when an
// item is archived so it stops influencing fusion before the TTL lapses.
func (c *CacheService) InvalidateNewsImpact(team string) error {
	return c.Delete(c.buildCacheKey("news", "impact", team))
}

// Calibration caching; rewritten on every admin hot-reload and read back
// on startup so reloaded weights survive restarts.
func (c *CacheService) SetCalibration(calibration interface{}) error {
	return c.Set(c.buildCacheKey("calibration"), calibration, CalibrationTTL)
}

func (c *CacheService) GetCalibration(dest interface{}) error {
	return c.Get(c.buildCacheKey("calibration"), dest)
}

// CleanupExpiredData scans for leftover keys. Redis handles TTL expiry
// itself; this only reports the footprint.
func (c *CacheService) CleanupExpiredData() error {
	pattern := c.buildCacheKey("*")

	keys, err := c.client.Keys(c.ctx, pattern).Result()
	if err != nil {
		return err
	}

	c.logger.WithField("key_count", len(keys)).Debug("Cache cleanup scan completed")
	return nil
}

// IsHealthy reports whether redis responds to ping
func (c *CacheService) IsHealthy() bool {
	return c.client.Ping(c.ctx).Err() == nil
}
