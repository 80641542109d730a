package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/bet-intel/internal/models"
)

// SportsFeedClient talks to the third-party fixtures/live feed. Responses
// come back as Match-shaped records ready for ingestion.
type SportsFeedClient struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *logrus.Logger
}

// feedEvent is the upstream wire shape for one event.
type feedEvent struct {
	EventID   string  `json:"event_id"`
	Sport     string  `json:"sport"`
	HomeTeam  string  `json:"home_team"`
	AwayTeam  string  `json:"away_team"`
	League    string  `json:"league"`
	StartTime string  `json:"start_time"` // RFC3339
	Status    string  `json:"status"`     // "upcoming", "inplay", "ended"
	Minute    int     `json:"minute"`
	Period    string  `json:"period"`
	HomeScore int     `json:"home_score"`
	AwayScore int     `json:"away_score"`
	Stats     *feedStats `json:"stats,omitempty"`
}

type feedStats struct {
	Possession       float64 `json:"possession"`
	ShotsOnTarget    int     `json:"shots_on_target"`
	XGHome           float64 `json:"xg_home"`
	XGAway           float64 `json:"xg_away"`
	DangerousAttacks int     `json:"dangerous_attacks"`
	Corners          int     `json:"corners"`
	Cards            int     `json:"cards"`
	Pace             float64 `json:"pace"`
}

type feedResponse struct {
	Events []feedEvent `json:"events"`
}

// FeedNewsItem is one raw article from the news endpoint.
type FeedNewsItem struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Team    string `json:"team"`
}

type feedNewsResponse struct {
	Items []FeedNewsItem `json:"items"`
}

var feedStatusMap = map[string]models.MatchStatus{
	"upcoming": models.StatusScheduled,
	"inplay":   models.StatusLive,
	"ended":    models.StatusFinished,
}

func NewSportsFeedClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *SportsFeedClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sportsfeed",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("Sports feed circuit breaker state changed")
		},
	})

	return &SportsFeedClient{
		apiKey:         apiKey,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: timeout},
		circuitBreaker: cb,
		logger:         logger,
	}
}

// FetchFixtures returns upcoming matches for one sport.
func (c *SportsFeedClient) FetchFixtures(ctx context.Context, sport models.Sport) ([]models.Match, error) {
	endpoint := fmt.Sprintf("%s/fixtures?sport=%s", c.baseURL, url.QueryEscape(string(sport)))
	return c.fetchEvents(ctx, endpoint)
}

// FetchLiveMatches returns all in-play matches across sports.
func (c *SportsFeedClient) FetchLiveMatches(ctx context.Context) ([]models.Match, error) {
	return c.fetchEvents(ctx, c.baseURL+"/live")
}

// FetchNews returns the latest raw news items from the feed.
func (c *SportsFeedClient) FetchNews(ctx context.Context) ([]FeedNewsItem, error) {
	body, err := c.get(ctx, c.baseURL+"/news")
	if err != nil {
		return nil, err
	}

	var response feedNewsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding news response: %w", err)
	}
	return response.Items, nil
}

func (c *SportsFeedClient) fetchEvents(ctx context.Context, endpoint string) ([]models.Match, error) {
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response feedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding feed response: %w", err)
	}

	matches := make([]models.Match, 0, len(response.Events))
	skipped := 0
	for _, event := range response.Events {
		match, err := mapFeedEvent(event)
		if err != nil {
			skipped++
			c.logger.WithError(err).WithField("event_id", event.EventID).Debug("Skipping malformed feed event")
			continue
		}
		matches = append(matches, match)
	}

	if skipped > 0 {
		c.logger.WithFields(logrus.Fields{
			"skipped": skipped,
			"total":   len(response.Events),
		}).Warn("Some feed events were malformed")
	}

	return matches, nil
}

func (c *SportsFeedClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("feed responded with status %d", resp.StatusCode)
		}

		buf, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading feed response: %w", err)
		}
		return buf, nil
	})
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	return result.([]byte), nil
}

func mapFeedEvent(event feedEvent) (models.Match, error) {
	status, ok := feedStatusMap[event.Status]
	if !ok {
		return models.Match{}, fmt.Errorf("unknown feed status %q", event.Status)
	}
	if event.HomeTeam == "" || event.AwayTeam == "" {
		return models.Match{}, fmt.Errorf("event %s missing team names", event.EventID)
	}

	startTime, err := time.Parse(time.RFC3339, event.StartTime)
	if err != nil {
		return models.Match{}, fmt.Errorf("event %s has invalid start time: %w", event.EventID, err)
	}

	match := models.Match{
		ExternalID: event.EventID,
		Sport:      models.Sport(event.Sport),
		HomeTeam:   event.HomeTeam,
		AwayTeam:   event.AwayTeam,
		League:     event.League,
		StartTime:  startTime,
		Status:     status,
		Stats: models.MatchStats{
			Minute:    event.Minute,
			Period:    event.Period,
			HomeScore: event.HomeScore,
			AwayScore: event.AwayScore,
		},
	}
	if event.Stats != nil {
		match.Stats.Possession = event.Stats.Possession
		match.Stats.ShotsOnTarget = event.Stats.ShotsOnTarget
		match.Stats.XGHome = event.Stats.XGHome
		match.Stats.XGAway = event.Stats.XGAway
		match.Stats.DangerousAttacks = event.Stats.DangerousAttacks
		match.Stats.Corners = event.Stats.Corners
		match.Stats.Cards = event.Stats.Cards
		match.Stats.Pace = event.Stats.Pace
	}
	return match, nil
}
