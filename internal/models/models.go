package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sport identifies the sport a match belongs to.
type Sport string

const (
	SportFootball   Sport = "football"
	SportBasketball Sport = "basketball"
	SportVolleyball Sport = "volleyball"
	SportIceHockey  Sport = "ice_hockey"
	SportESports    Sport = "esports"
)

// MatchStatus is the lifecycle state of a match. Transitions are
// one-directional: scheduled -> live -> finished.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLive      MatchStatus = "live"
	StatusFinished  MatchStatus = "finished"
)

var statusRank = map[MatchStatus]int{
	StatusScheduled: 0,
	StatusLive:      1,
	StatusFinished:  2,
}

// MatchStats holds the sport-specific telemetry payload for a match.
// Fields not relevant to a given sport stay at their zero value.
type MatchStats struct {
	Minute           int     `json:"minute"`
	Period           string  `json:"period"` // "1H", "2H", "Q1".."Q4", "SET1".."SET5"
	HomeScore        int     `json:"home_score"`
	AwayScore        int     `json:"away_score"`
	Possession       float64 `json:"possession"` // home share, 0-100
	ShotsOnTarget    int     `json:"shots_on_target"`
	XGHome           float64 `json:"xg_home"`
	XGAway           float64 `json:"xg_away"`
	DangerousAttacks int     `json:"dangerous_attacks"`
	Corners          int     `json:"corners"`
	Cards            int     `json:"cards"`
	Pace             float64 `json:"pace"` // basketball: projected points per 48min; esports: events per minute
}

// Match represents a sporting event ingested from an external feed or manual
// entry. The analytics pipeline only reads it; the ingestion layer owns writes.
type Match struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ExternalID string      `gorm:"index" json:"external_id"`
	Sport      Sport       `gorm:"not null;index" json:"sport"`
	HomeTeam   string      `gorm:"not null" json:"home_team"`
	AwayTeam   string      `gorm:"not null" json:"away_team"`
	League     string      `json:"league"`
	StartTime  time.Time   `gorm:"not null" json:"start_time"`
	Status     MatchStatus `gorm:"not null;default:scheduled;index" json:"status"`
	Stats      MatchStats  `gorm:"type:jsonb;serializer:json" json:"stats"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Match) TableName() string {
	return "matches"
}

// IsLive reports whether the match is currently in play.
func (m *Match) IsLive() bool {
	return m.Status == StatusLive
}

// TransitionTo validates the one-directional match lifecycle. A finished
// match never regresses to live or scheduled.
func (m *Match) TransitionTo(next MatchStatus) error {
	from, ok := statusRank[m.Status]
	if !ok {
		return fmt.Errorf("unknown match status %q", m.Status)
	}
	to, ok := statusRank[next]
	if !ok {
		return fmt.Errorf("unknown match status %q", next)
	}
	if to < from {
		return fmt.Errorf("match %s cannot regress from %s to %s", m.ID, m.Status, next)
	}
	m.Status = next
	return nil
}

// TipStatus is the settlement state of a published tip.
type TipStatus string

const (
	TipPending TipStatus = "pending"
	TipWon     TipStatus = "won"
	TipLost    TipStatus = "lost"
	TipVoid    TipStatus = "void"
)

// Tip is a candidate recommendation, AI-origin. The analytics pipeline treats
// it as opaque input and only reads its prediction text and odds.
type Tip struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MatchID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"match_id"`
	Match       *Match     `gorm:"foreignKey:MatchID" json:"match,omitempty"`
	Prediction  string     `gorm:"not null" json:"prediction"`
	Odds        float64    `json:"odds"`
	Confidence  int        `json:"confidence"`
	Reasoning   string     `json:"reasoning"`
	IsPremium   bool       `gorm:"default:false" json:"is_premium"`
	Status      TipStatus  `gorm:"not null;default:pending" json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Tip) TableName() string {
	return "tips"
}

// Settle moves a pending tip to a terminal settlement state. Settled tips
// are immutable.
func (t *Tip) Settle(result TipStatus) error {
	if t.Status != TipPending {
		return fmt.Errorf("tip %s already settled as %s", t.ID, t.Status)
	}
	switch result {
	case TipWon, TipLost, TipVoid:
		t.Status = result
		return nil
	default:
		return fmt.Errorf("invalid settlement status %q", result)
	}
}

// NewsItem is a raw news text plus its classification output. Items are
// classified once on ingestion and soft-deleted via the archived flag.
type NewsItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title     string    `json:"title"`
	Content   string    `gorm:"not null" json:"content"`
	Team      string    `gorm:"index" json:"team,omitempty"`
	Category  string    `gorm:"index" json:"category"`
	Relevance int       `json:"relevance"`
	Impact    int       `json:"impact"`
	NewsScore int       `json:"news_score"`
	Archived  bool      `gorm:"default:false;index" json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NewsItem) TableName() string {
	return "news_items"
}

// FusionRecord persists one FusionAnalysis evaluation for a match. Records
// are append-only; each pipeline run writes a fresh row.
type FusionRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MatchID          uuid.UUID `gorm:"type:uuid;not null;index" json:"match_id"`
	ScoutProbability int       `json:"scout_probability"`
	ScoutSignal      string    `json:"scout_signal"`
	IsHotGame        bool      `json:"is_hot_game"`
	AIContext        string    `json:"ai_context"`
	FinalConfidence  int       `json:"final_confidence"`
	ConfidenceLevel  string    `json:"confidence_level"`
	EV               float64   `json:"ev"`
	MarketOdd        float64   `json:"market_odd"`
	Verdict          string    `gorm:"index" json:"verdict"`
	NewsImpactScore  float64   `json:"news_impact_score"`
	CreatedAt        time.Time `json:"created_at"`
}

func (FusionRecord) TableName() string {
	return "fusion_records"
}
