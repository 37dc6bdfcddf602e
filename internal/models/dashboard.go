package models

import "time"

// Overview holds the headline dashboard statistics.
type Overview struct {
	TotalKeywords   int     `json:"total_keywords"`
	AveragePosition float64 `json:"average_position"`
	TotalTraffic    float64 `json:"total_traffic"`
	VisibilityScore float64 `json:"visibility_score"`
	TechnicalScore  int     `json:"technical_score"`
}

// Mover is a keyword whose position changed since the previous check.
type Mover struct {
	Keyword          string `json:"keyword"`
	CurrentPosition  int    `json:"current_position"`
	PreviousPosition int    `json:"previous_position"`
	PositionChange   int    `json:"position_change"`
}

type TopMovers struct {
	Gainers []Mover `json:"gainers"`
	Losers  []Mover `json:"losers"`
}

// KeywordTrend is a keyword's recent positions, oldest first.
type KeywordTrend struct {
	Keyword   string `json:"keyword"`
	Positions []int  `json:"positions"`
}

// ActionKind distinguishes recommended next actions.
type ActionKind string

const (
	ActionTechnicalFix ActionKind = "technical_fix"
	ActionQuickWin     ActionKind = "quick_win"
)

type NextAction struct {
	Kind           ActionKind `json:"kind"`
	Title          string     `json:"title"`
	Recommendation string     `json:"recommendation,omitempty"`
	IssueID        string     `json:"issue_id,omitempty"`
	Priority       int        `json:"priority,omitempty"`
	Keyword        string     `json:"keyword,omitempty"`
	Position       int        `json:"position,omitempty"`
	SearchVolume   int        `json:"search_volume,omitempty"`
}

// Dashboard is the read-side aggregate served to external consumers.
type Dashboard struct {
	Domain      string         `json:"domain"`
	GeneratedAt time.Time      `json:"generated_at"`
	Overview    Overview       `json:"overview"`
	TopMovers   TopMovers      `json:"top_movers"`
	Trends      []KeywordTrend `json:"trends"`
	OpenAlerts  []Alert        `json:"open_alerts"`
	NextActions []NextAction   `json:"next_actions"`
}

// WeeklyReport is the periodic summary published once per report cadence.
type WeeklyReport struct {
	ID               string       `json:"id"`
	Domain           string       `json:"domain"`
	GeneratedAt      time.Time    `json:"generated_at"`
	Overview         Overview     `json:"overview"`
	TopMovers        TopMovers    `json:"top_movers"`
	OpenAlerts       int          `json:"open_alerts"`
	CriticalAlerts   int          `json:"critical_alerts"`
	NextActions      []NextAction `json:"next_actions"`
	ExecutiveSummary string       `json:"executive_summary,omitempty"`
}
