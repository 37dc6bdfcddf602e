// Package ranking keeps the current and historical position of every tracked keyword.
package ranking

import (
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

// Observation is a fresh result from the rank source for one keyword.
type Observation struct {
	Keyword      string
	Position     int
	URL          string
	SearchVolume int
	Competitors  []models.CompetitorPosition
}

// Store holds one RankingRecord per keyword. Records are replaced, never
// merged: each new record inherits the previous history plus one sample.
type Store struct {
	records    map[string]*models.RankingRecord
	mu         sync.RWMutex
	maxHistory int
	now        func() time.Time
}

// NewStore creates an empty store with the default retention window.
func NewStore() *Store {
	return &Store{
		records:    make(map[string]*models.RankingRecord),
		maxHistory: models.MaxHistory,
		now:        time.Now,
	}
}

// SetClock overrides the timestamp source (tests).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// RecordSample appends an observation and returns the resulting record.
func (s *Store) RecordSample(obs Observation) models.RankingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	prior, exists := s.records[obs.Keyword]

	// 0 means "no prior data", not "ranked first".
	previous := 0
	change := 0
	var history []models.RankingSample
	if exists {
		previous = prior.CurrentPosition
		change = previous - obs.Position
		history = prior.History
	}

	sample := models.RankingSample{
		Keyword:          obs.Keyword,
		Position:         obs.Position,
		URL:              obs.URL,
		SearchVolume:     obs.SearchVolume,
		EstimatedTraffic: EstimateTraffic(obs.Position, obs.SearchVolume),
		Timestamp:        now,
	}

	start := 0
	if len(history)+1 > s.maxHistory {
		start = len(history) + 1 - s.maxHistory
	}
	kept := history[start:]
	newHistory := make([]models.RankingSample, 0, len(kept)+1)
	newHistory = append(newHistory, kept...)
	newHistory = append(newHistory, sample)

	competitors := make([]models.CompetitorPosition, len(obs.Competitors))
	copy(competitors, obs.Competitors)

	record := &models.RankingRecord{
		Keyword:          obs.Keyword,
		CurrentPosition:  obs.Position,
		PreviousPosition: previous,
		PositionChange:   change,
		URL:              obs.URL,
		SearchVolume:     obs.SearchVolume,
		EstimatedTraffic: sample.EstimatedTraffic,
		Competitors:      competitors,
		History:          newHistory,
		LastUpdated:      now,
	}
	s.records[obs.Keyword] = record

	return record.Clone()
}

// UpdateCompetitors replaces a keyword's competitor snapshot without adding a
// history sample. Returns false for an unknown keyword.
func (s *Store) UpdateCompetitors(keyword string, competitors []models.CompetitorPosition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[keyword]
	if !ok {
		return false
	}

	updated := record.Clone()
	updated.Competitors = make([]models.CompetitorPosition, len(competitors))
	copy(updated.Competitors, competitors)
	s.records[keyword] = &updated

	return true
}

// GetRecord returns the record for a keyword, if any.
func (s *Store) GetRecord(keyword string) (models.RankingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[keyword]
	if !ok {
		return models.RankingRecord{}, false
	}
	return record.Clone(), true
}

// AllRecords returns a copy of every record in no particular order.
func (s *Store) AllRecords() []models.RankingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RankingRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.Clone())
	}
	return out
}

// Restore loads previously persisted records, replacing any existing state
// for the same keywords. Histories longer than the retention window are trimmed.
func (s *Store) Restore(records []models.RankingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		record := r.Clone()
		if len(record.History) > s.maxHistory {
			record.History = record.History[len(record.History)-s.maxHistory:]
		}
		s.records[record.Keyword] = &record
	}
}
