package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/internal/providers"
	"github.com/stitts-dev/bet-intel/pkg/database"
	"github.com/stitts-dev/bet-intel/pkg/logger"
)

// newsSeenWindow is how long a fetched headline is remembered for dedup.
const newsSeenWindow = 72 * time.Hour

// JobInfo tracks scheduling state for one background job.
type JobInfo struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	RunCount  int64      `json:"run_count"`
}

// DataFetcher runs the scheduled ingestion jobs: fixture sync, live
// refresh, news ingestion and housekeeping.
type DataFetcher struct {
	db       *database.DB
	cache    *CacheService
	feed     *providers.SportsFeedClient
	pipeline *PipelineService
	logger   *logrus.Logger

	sports []string
	cron   *cron.Cron
	jobs   map[string]*JobInfo
	mu     sync.RWMutex
}

func NewDataFetcher(
	db *database.DB,
	cache *CacheService,
	feed *providers.SportsFeedClient,
	pipeline *PipelineService,
	sports []string,
	logger *logrus.Logger,
) *DataFetcher {
	return &DataFetcher{
		db:       db,
		cache:    cache,
		feed:     feed,
		pipeline: pipeline,
		logger:   logger,
		sports:   sports,
		cron:     cron.New(),
		jobs:     make(map[string]*JobInfo),
	}
}

// Start registers and starts all scheduled jobs.
func (f *DataFetcher) Start() error {
	schedules := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"fixture_sync", "*/30 * * * *", f.runFixtureSync},
		{"live_refresh", "* * * * *", f.runLiveRefresh},
		{"news_ingest", "*/10 * * * *", f.runNewsIngest},
		{"cache_cleanup", "0 * * * *", f.runCacheCleanup},
		{"daily_housekeeping", "0 3 * * *", f.runDailyHousekeeping},
	}

	for _, job := range schedules {
		job := job
		if _, err := f.cron.AddFunc(job.schedule, job.run); err != nil {
			return err
		}
		f.jobs[job.name] = &JobInfo{Name: job.name, Schedule: job.schedule}
	}

	f.cron.Start()
	f.logger.WithField("jobs", len(f.jobs)).Info("Background data fetcher started")

	// Prime fixtures immediately so the API has data before the first tick.
	go f.runFixtureSync()
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (f *DataFetcher) Stop() {
	ctx := f.cron.Stop()
	<-ctx.Done()
	f.logger.Info("Background data fetcher stopped")
}

// Jobs returns a snapshot of all job states.
func (f *DataFetcher) Jobs() []JobInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	infos := make([]JobInfo, 0, len(f.jobs))
	for _, job := range f.jobs {
		infos = append(infos, *job)
	}
	return infos
}

func (f *DataFetcher) trackRun(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[name]
	if !ok {
		return
	}
	now := time.Now()
	job.LastRun = &now
	job.RunCount++
	if err != nil {
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
}

func (f *DataFetcher) runFixtureSync() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logger.WithJob("fixture_sync")

	var lastErr error
	total := 0
	for _, sport := range f.sports {
		matches, err := f.feed.FetchFixtures(ctx, models.Sport(sport))
		if err != nil {
			log.WithError(err).WithField("sport", sport).Error("Fixture fetch failed")
			lastErr = err
			continue
		}

		for i := range matches {
			if err := f.upsertMatch(&matches[i]); err != nil {
				log.WithError(err).WithField("external_id", matches[i].ExternalID).Warn("Fixture upsert failed")
				lastErr = err
				continue
			}
			total++
		}

		if err := f.cache.SetFeedSnapshot(sport, matches); err != nil {
			log.WithError(err).Debug("Feed snapshot cache write failed")
		}
	}

	log.WithField("synced", total).Info("Fixture sync complete")
	f.trackRun("fixture_sync", lastErr)
}

func (f *DataFetcher) runLiveRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	log := logger.WithJob("live_refresh")

	matches, err := f.feed.FetchLiveMatches(ctx)
	if err != nil {
		log.WithError(err).Error("Live fetch failed")
		f.trackRun("live_refresh", err)
		return
	}

	var lastErr error
	for i := range matches {
		stored, err := f.refreshLiveMatch(&matches[i])
		if err != nil {
			log.WithError(err).WithField("external_id", matches[i].ExternalID).Warn("Live refresh failed for match")
			lastErr = err
			continue
		}

		if _, err := f.pipeline.AnalyzeMatch(ctx, stored.ID); err != nil {
			log.WithError(err).WithField("match_id", stored.ID).Warn("Live analysis failed")
			lastErr = err
		}
	}

	if err := f.cache.SetLiveSnapshot(matches); err != nil {
		log.WithError(err).Debug("Live snapshot cache write failed")
	}

	log.WithField("live_matches", len(matches)).Debug("Live refresh complete")
	f.trackRun("live_refresh", lastErr)
}

func (f *DataFetcher) runNewsIngest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log := logger.WithJob("news_ingest")

	items, err := f.feed.FetchNews(ctx)
	if err != nil {
		log.WithError(err).Error("News fetch failed")
		f.trackRun("news_ingest", err)
		return
	}

	stored := 0
	var lastErr error
	for _, item := range items {
		// Feeds repeat headlines across polls; skip anything already seen.
		seenKey := f.cache.buildCacheKey("news", "seen", fmt.Sprintf("%x", md5.Sum([]byte(item.Title))))
		if seen, err := f.cache.Exists(seenKey); err == nil && seen {
			continue
		}

		text := item.Title + " " + item.Body
		classification := engine.ClassifyNews(text)

		record := models.NewsItem{
			Title:     item.Title,
			Content:   item.Body,
			Team:      item.Team,
			Category:  classification.Category,
			Relevance: classification.Relevance,
			Impact:    classification.Impact,
			NewsScore: classification.NewsScore,
		}
		if err := f.db.WithContext(ctx).Create(&record).Error; err != nil {
			log.WithError(err).Warn("News insert failed")
			lastErr = err
			continue
		}
		stored++

		if err := f.cache.Set(seenKey, true, newsSeenWindow); err != nil {
			log.WithError(err).Debug("News dedup marker write failed")
		}
		if item.Team != "" {
			if err := f.cache.SetNewsImpact(item.Team, classification); err != nil {
				log.WithError(err).Debug("News impact cache write failed")
			}
		}
	}

	log.WithFields(logrus.Fields{"fetched": len(items), "stored": stored}).Info("News ingest complete")
	f.trackRun("news_ingest", lastErr)
}

func (f *DataFetcher) runCacheCleanup() {
	err := f.cache.CleanupExpiredData()
	if err != nil {
		logger.WithJob("cache_cleanup").WithError(err).Warn("Cache cleanup failed")
	}
	f.trackRun("cache_cleanup", err)
}

// runDailyHousekeeping archives stale news and finishes matches whose
// start time is long past but never received a terminal feed update.
func (f *DataFetcher) runDailyHousekeeping() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logger.WithJob("daily_housekeeping")

	var lastErr error
	newsCutoff := time.Now().Add(-72 * time.Hour)
	result := f.db.WithContext(ctx).
		Model(&models.NewsItem{}).
		Where("created_at < ? AND archived = ?", newsCutoff, false).
		Update("archived", true)
	if result.Error != nil {
		log.WithError(result.Error).Error("News archival failed")
		lastErr = result.Error
	} else if result.RowsAffected > 0 {
		log.WithField("archived", result.RowsAffected).Info("Archived stale news")
	}

	staleCutoff := time.Now().Add(-6 * time.Hour)
	result = f.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("status = ? AND start_time < ?", models.StatusLive, staleCutoff).
		Update("status", models.StatusFinished)
	if result.Error != nil {
		log.WithError(result.Error).Error("Stale match cleanup failed")
		lastErr = result.Error
	} else if result.RowsAffected > 0 {
		log.WithField("finished", result.RowsAffected).Info("Closed stale live matches")
	}

	f.trackRun("daily_housekeeping", lastErr)
}

// upsertMatch inserts a feed match or refreshes an existing row keyed by
// external ID. Status only moves forward.
func (f *DataFetcher) upsertMatch(incoming *models.Match) error {
	var existing models.Match
	err := f.db.Where("external_id = ?", incoming.ExternalID).First(&existing).Error
	if err != nil {
		return f.db.Create(incoming).Error
	}

	updates := map[string]interface{}{
		"start_time": incoming.StartTime,
		"league":     incoming.League,
		"stats":      incoming.Stats,
	}
	if err := existing.TransitionTo(incoming.Status); err == nil {
		updates["status"] = incoming.Status
	}
	if err := f.db.Model(&existing).Updates(updates).Error; err != nil {
		return err
	}
	*incoming = existing
	return nil
}

func (f *DataFetcher) refreshLiveMatch(incoming *models.Match) (*models.Match, error) {
	var existing models.Match
	err := f.db.Where("external_id = ?", incoming.ExternalID).First(&existing).Error
	if err != nil {
		incoming.Status = models.StatusLive
		if err := f.db.Create(incoming).Error; err != nil {
			return nil, err
		}
		return incoming, nil
	}

	updates := map[string]interface{}{"stats": incoming.Stats}
	if err := existing.TransitionTo(incoming.Status); err == nil {
		updates["status"] = incoming.Status
	}
	if err := f.db.Model(&existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	existing.Stats = incoming.Stats
	return &existing, nil
}
