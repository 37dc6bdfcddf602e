package models

import "time"

// MaxHistory is the retention window for a keyword's ranking history.
const MaxHistory = 90

// CompetitorPosition is a competitor's standing for a tracked keyword.
type CompetitorPosition struct {
	Domain   string `json:"domain"`
	Position int    `json:"position"`
	URL      string `json:"url"`
}

// RankingSample is a single observation of a keyword's position.
type RankingSample struct {
	Keyword          string    `json:"keyword"`
	Position         int       `json:"position"`
	URL              string    `json:"url"`
	SearchVolume     int       `json:"search_volume"`
	EstimatedTraffic float64   `json:"estimated_traffic"`
	Timestamp        time.Time `json:"timestamp"`
}

// RankingRecord holds the current and historical standing of one keyword.
//
// PreviousPosition is 0 when no prior observation exists. PositionChange is
// PreviousPosition - CurrentPosition, so a positive value is an improvement.
type RankingRecord struct {
	Keyword          string               `json:"keyword"`
	CurrentPosition  int                  `json:"current_position"`
	PreviousPosition int                  `json:"previous_position"`
	PositionChange   int                  `json:"position_change"`
	URL              string               `json:"url"`
	SearchVolume     int                  `json:"search_volume"`
	EstimatedTraffic float64              `json:"estimated_traffic"`
	Competitors      []CompetitorPosition `json:"competitors"`
	History          []RankingSample      `json:"history"`
	LastUpdated      time.Time            `json:"last_updated"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r RankingRecord) Clone() RankingRecord {
	out := r
	if r.Competitors != nil {
		out.Competitors = make([]CompetitorPosition, len(r.Competitors))
		copy(out.Competitors, r.Competitors)
	}
	if r.History != nil {
		out.History = make([]RankingSample, len(r.History))
		copy(out.History, r.History)
	}
	return out
}

// LatestSample returns the most recent history entry.
func (r RankingRecord) LatestSample() (RankingSample, bool) {
	if len(r.History) == 0 {
		return RankingSample{}, false
	}
	return r.History[len(r.History)-1], true
}

// PreviousSample returns the history entry recorded before the latest one.
func (r RankingRecord) PreviousSample() (RankingSample, bool) {
	if len(r.History) < 2 {
		return RankingSample{}, false
	}
	return r.History[len(r.History)-2], true
}

// CompetitorSummary aggregates a competitor domain's standing across tracked keywords.
type CompetitorSummary struct {
	Domain          string    `json:"domain"`
	KeywordsTracked int       `json:"keywords_tracked"`
	KeywordsAhead   int       `json:"keywords_ahead"` // keywords where the competitor outranks us
	AveragePosition float64   `json:"average_position"`
	Timestamp       time.Time `json:"timestamp"`
}
