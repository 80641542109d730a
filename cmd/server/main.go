package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/bet-intel/internal/api/handlers"
	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/internal/providers"
	"github.com/stitts-dev/bet-intel/internal/services"
	"github.com/stitts-dev/bet-intel/internal/websocket"
	"github.com/stitts-dev/bet-intel/pkg/config"
	"github.com/stitts-dev/bet-intel/pkg/database"
	"github.com/stitts-dev/bet-intel/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger("info", cfg.IsDevelopment())
	logger.WithService("bet-intel").WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting bet-intel service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.WithService("bet-intel").Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.Match{}, &models.Tip{}, &models.NewsItem{}, &models.FusionRecord{}); err != nil {
		logger.WithService("bet-intel").Fatalf("Failed to run migrations: %v", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithService("bet-intel").Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithService("bet-intel").Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Core services
	cacheService := services.NewCacheService(redisClient, structuredLogger)
	aiClient := services.NewAIClient(cfg, cacheService, structuredLogger)
	circuitBreaker := services.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, 30*time.Second, structuredLogger)
	webhookDispatcher := services.NewWebhookDispatcher(cfg.WebhookURLs, circuitBreaker, cfg.ExternalAPITimeout, structuredLogger)
	feedClient := providers.NewSportsFeedClient(cfg.SportsFeedBaseURL, cfg.SportsFeedAPIKey, cfg.FeedTimeout, structuredLogger)

	pipeline := services.NewPipelineService(
		db,
		cacheService,
		aiClient,
		webhookDispatcher,
		structuredLogger,
		engine.OddsPolicy(cfg.DefaultOddsPolicy),
		cfg.DefaultMarketOdd,
	)

	// WebSocket hub for live analysis updates
	wsHub := websocket.NewAnalysisHub(structuredLogger)
	go wsHub.Run()
	pipeline.SetBroadcaster(wsHub)

	// Background ingestion jobs
	var fetcher *services.DataFetcher
	if cfg.EnableBackgroundJobs {
		fetcher = services.NewDataFetcher(db, cacheService, feedClient, pipeline, cfg.SupportedSports, structuredLogger)
		if err := fetcher.Start(); err != nil {
			logger.WithService("bet-intel").Fatalf("Failed to start background jobs: %v", err)
		}
		defer fetcher.Stop()
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), corsMiddleware(cfg.CorsOrigins))

	matchHandler := handlers.NewMatchHandler(db, cacheService, feedClient, structuredLogger)
	analysisHandler := handlers.NewAnalysisHandler(pipeline, cacheService, structuredLogger)
	newsHandler := handlers.NewNewsHandler(db, cacheService, structuredLogger)
	tipHandler := handlers.NewTipHandler(db, structuredLogger)
	healthHandler := handlers.NewHealthHandler(db, cacheService, aiClient, fetcher, circuitBreaker, wsHub, structuredLogger)

	apiV1 := router.Group("/api/v1")
	{
		// Matches
		apiV1.GET("/matches", matchHandler.ListMatches)
		apiV1.GET("/matches/live", matchHandler.GetLiveMatches)
		apiV1.GET("/matches/:id", matchHandler.GetMatch)
		apiV1.POST("/matches/sync", matchHandler.SyncFixtures)

		// Analysis
		apiV1.POST("/matches/:id/analyze", analysisHandler.AnalyzeMatch)
		apiV1.GET("/matches/:id/analysis", analysisHandler.GetAnalysis)
		apiV1.POST("/analysis/preview", analysisHandler.PreviewAnalysis)
		apiV1.POST("/analysis/alerts", analysisHandler.EvaluateAlerts)
		apiV1.POST("/analysis/projection", analysisHandler.Projection)
		apiV1.GET("/analysis/calibration", analysisHandler.GetCalibration)
		apiV1.PUT("/analysis/calibration", analysisHandler.UpdateCalibration)

		// News
		apiV1.POST("/news", newsHandler.IngestNews)
		apiV1.POST("/news/classify", newsHandler.ClassifyNews)
		apiV1.GET("/news", newsHandler.ListNews)
		apiV1.POST("/news/:id/archive", newsHandler.ArchiveNews)

		// Tips
		apiV1.GET("/tips", tipHandler.ListTips)
		apiV1.POST("/tips", tipHandler.PublishTip)
		apiV1.POST("/tips/:id/settle", tipHandler.SettleTip)
	}

	// WebSocket endpoint for live analysis updates
	router.GET("/ws/analysis", wsHub.HandleWebSocket)

	router.GET("/health", healthHandler.Health)
	router.HEAD("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.HEAD("/ready", healthHandler.Ready)
	router.GET("/jobs", healthHandler.Jobs)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.WithService("bet-intel").WithField("port", cfg.Port).Info("bet-intel service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService("bet-intel").Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService("bet-intel").Info("Shutting down bet-intel service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithService("bet-intel").Fatalf("Server forced to shutdown: %v", err)
	}

	logger.WithService("bet-intel").Info("bet-intel service exited")
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	wildcard := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if wildcard {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
