package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/pkg/config"
)

// AIClient is the generative completion capability. The analytics core only
// ever reads the structured fields parsed out of its responses.
type AIClient struct {
	httpClient     *http.Client
	cache          *CacheService
	logger         *logrus.Logger
	apiKey         string
	baseURL        string
	model          string
	rateLimiter    *time.Ticker
	circuitBreaker *gobreaker.CircuitBreaker
	retryAttempts  int
	cacheTTL       time.Duration
	requestTracker *aiRateLimitTracker
	mu             sync.Mutex
}

type aiRateLimitTracker struct {
	mu             sync.Mutex
	lastReset      time.Time
	minuteRequests int
	hourlyTokens   int64
	requestLimit   int
	tokenLimit     int64
}

// completionRequest is the wire payload for the messages endpoint.
type completionRequest struct {
	Model       string              `json:"model"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature,omitempty"`
	Messages    []completionMessage `json:"messages"`
	System      string              `json:"system,omitempty"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	ID         string                   `json:"id"`
	Content    []completionContentBlock `json:"content"`
	Model      string                   `json:"model"`
	StopReason string                   `json:"stop_reason"`
	Usage      completionUsage          `json:"usage"`
}

type completionContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type completionUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type completionError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TipSuggestion is the Tip-shaped structured result parsed from a
// completion.
type TipSuggestion struct {
	Prediction string  `json:"prediction"`
	Odds       float64 `json:"odds"`
	Confidence int     `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// NewsAnalysis is the News-shaped structured result.
type NewsAnalysis struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	Teams     []string `json:"teams"`
}

// NewAIClient creates a completion client with rate limiting and a circuit
// breaker.
func NewAIClient(cfg *config.Config, cache *CacheService, logger *logrus.Logger) *AIClient {
	tracker := &aiRateLimitTracker{
		requestLimit: cfg.AIRateLimit,
		tokenLimit:   100000,
		lastReset:    time.Now(),
	}
	if tracker.requestLimit <= 0 {
		tracker.requestLimit = 60
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai-completion",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("AI completion circuit breaker state changed")
		},
	})

	return &AIClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // model calls run long
		},
		cache:          cache,
		logger:         logger,
		apiKey:         cfg.AnthropicAPIKey,
		baseURL:        cfg.AIBaseURL,
		model:          cfg.AIModel,
		rateLimiter:    time.NewTicker(1 * time.Second),
		circuitBreaker: cb,
		retryAttempts:  3,
		cacheTTL:       time.Duration(cfg.AICacheExpiration) * time.Second,
		requestTracker: tracker,
	}
}

// SuggestTip asks the model for a Tip-shaped recommendation for a match.
// Responses are cached per prompt hash; the calibration instruction string
// rides along as prompt context only.
func (c *AIClient) SuggestTip(ctx context.Context, match *models.Match, cal engine.SportCalibration) (*TipSuggestion, error) {
	prompt := buildTipPrompt(match, cal)
	promptHash := fmt.Sprintf("%x", md5.Sum([]byte(prompt)))

	if c.cache != nil {
		var cached TipSuggestion
		if err := c.cache.GetAIResponse(promptHash, &cached); err == nil {
			c.logger.WithField("match_id", match.ID).Debug("AI tip served from cache")
			return &cached, nil
		}
	}

	text, err := c.complete(ctx, prompt, tipSystemPrompt, 0.3, 1024)
	if err != nil {
		return nil, fmt.Errorf("tip completion failed: %w", err)
	}

	var suggestion TipSuggestion
	if err := decodeStructuredResponse(text, &suggestion); err != nil {
		return nil, fmt.Errorf("tip response not parseable: %w", err)
	}
	if suggestion.Prediction == "" {
		return nil, fmt.Errorf("tip response missing prediction text")
	}

	if c.cache != nil {
		if err := c.cache.SetAIResponse(promptHash, suggestion, c.cacheTTL); err != nil {
			c.logger.WithError(err).Warn("Failed to cache AI tip")
		}
	}

	return &suggestion, nil
}

// AnalyzeNewsText asks the model for a News-shaped analysis of free text.
func (c *AIClient) AnalyzeNewsText(ctx context.Context, text string) (*NewsAnalysis, error) {
	prompt := fmt.Sprintf("Analyze this sports news item and respond with JSON "+
		"{\"summary\":\"\",\"sentiment\":\"positive|negative|neutral\",\"teams\":[]}:\n\n%s", text)

	raw, err := c.complete(ctx, prompt, newsSystemPrompt, 0.2, 512)
	if err != nil {
		return nil, fmt.Errorf("news completion failed: %w", err)
	}

	var analysis NewsAnalysis
	if err := decodeStructuredResponse(raw, &analysis); err != nil {
		return nil, fmt.Errorf("news response not parseable: %w", err)
	}
	return &analysis, nil
}

const (
	tipSystemPrompt = "You are a sports betting analyst. Respond only with a JSON object " +
		"{\"prediction\":\"\",\"odds\":0.0,\"confidence\":0,\"reasoning\":\"\"} for the match provided."
	newsSystemPrompt = "You are a sports news analyst. Respond only with the requested JSON object."
)

func buildTipPrompt(match *models.Match, cal engine.SportCalibration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sport: %s\nMatch: %s vs %s\nLeague: %s\nStatus: %s\n",
		match.Sport, match.HomeTeam, match.AwayTeam, match.League, match.Status)
	if match.IsLive() {
		stats, _ := json.Marshal(match.Stats)
		fmt.Fprintf(&sb, "Live stats: %s\n", stats)
	}
	if cal.Instructions != "" {
		fmt.Fprintf(&sb, "Analyst instructions: %s\n", cal.Instructions)
	}
	sb.WriteString("Suggest the single best over/under tip for this match.")
	return sb.String()
}

// decodeStructuredResponse extracts the first JSON object from the model
// text and unmarshals it.
func decodeStructuredResponse(text string, dest interface{}) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), dest)
}

// complete sends one prompt through rate limiting and the circuit breaker
// and returns the concatenated text blocks.
func (c *AIClient) complete(ctx context.Context, prompt, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	if err := c.checkRateLimits(); err != nil {
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	request := completionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []completionMessage{
			{Role: "user", Content: prompt},
		},
		System: systemPrompt,
	}

	response, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.makeRequest(ctx, request)
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	resp := response.(*completionResponse)
	c.trackTokenUsage(resp.Usage.InputTokens + resp.Usage.OutputTokens)

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// makeRequest handles the actual HTTP request with retries
func (c *AIClient) makeRequest(ctx context.Context, request completionRequest) (*completionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Rate limiting
	<-c.rateLimiter.C
	c.trackRequest()

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewBuffer(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var completion completionResponse
			err := json.NewDecoder(resp.Body).Decode(&completion)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			return &completion, nil
		}

		var apiErr completionError
		decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr)
		resp.Body.Close()
		if decodeErr != nil {
			lastErr = fmt.Errorf("API request failed with status %d", resp.StatusCode)
			continue
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("invalid API credentials: %s", apiErr.Message)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("bad request: %s", apiErr.Message)
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limit exceeded: %s", apiErr.Message)
		default:
			lastErr = fmt.Errorf("unexpected error (status %d): %s", resp.StatusCode, apiErr.Message)
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.retryAttempts, lastErr)
}

func (c *AIClient) checkRateLimits() error {
	c.requestTracker.mu.Lock()
	defer c.requestTracker.mu.Unlock()

	now := time.Now()
	if now.Minute() != c.requestTracker.lastReset.Minute() {
		c.requestTracker.minuteRequests = 0
		c.requestTracker.lastReset = now
	}
	if now.Hour() != c.requestTracker.lastReset.Hour() {
		c.requestTracker.hourlyTokens = 0
	}

	if c.requestTracker.minuteRequests >= c.requestTracker.requestLimit {
		return fmt.Errorf("request rate limit exceeded (%d/%d per minute)",
			c.requestTracker.minuteRequests, c.requestTracker.requestLimit)
	}
	if c.requestTracker.hourlyTokens >= c.requestTracker.tokenLimit {
		return fmt.Errorf("token rate limit exceeded (%d/%d per hour)",
			c.requestTracker.hourlyTokens, c.requestTracker.tokenLimit)
	}
	return nil
}

func (c *AIClient) trackRequest() {
	c.requestTracker.mu.Lock()
	defer c.requestTracker.mu.Unlock()
	c.requestTracker.minuteRequests++
}

func (c *AIClient) trackTokenUsage(tokens int) {
	c.requestTracker.mu.Lock()
	defer c.requestTracker.mu.Unlock()

	c.requestTracker.hourlyTokens += int64(tokens)

	c.logger.WithFields(logrus.Fields{
		"tokens_used":  tokens,
		"hourly_total": c.requestTracker.hourlyTokens,
	}).Debug("Tracked AI completion token usage")
}

// IsHealthy reports whether the completion circuit is closed
func (c *AIClient) IsHealthy() bool {
	return c.circuitBreaker.State() == gobreaker.StateClosed
}

// IsConfigured reports whether an API key is present
func (c *AIClient) IsConfigured() bool {
	return c.apiKey != ""
}
