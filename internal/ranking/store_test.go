package ranking_test

import (
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestStore_FirstSampleHasZeroChange(t *testing.T) {
	store := ranking.NewStore()

	record := store.RecordSample(ranking.Observation{Keyword: "seo tools", Position: 7, URL: "https://example.com/tools", SearchVolume: 1000})

	assert.Equal(t, 7, record.CurrentPosition)
	assert.Equal(t, 0, record.PreviousPosition, "no prior data is signalled by 0")
	assert.Equal(t, 0, record.PositionChange)
	assert.Len(t, record.History, 1)
}

func TestStore_PositionChangeIsPreviousMinusCurrent(t *testing.T) {
	store := ranking.NewStore()

	store.RecordSample(ranking.Observation{Keyword: "kw", Position: 10})
	improved := store.RecordSample(ranking.Observation{Keyword: "kw", Position: 4})

	assert.Equal(t, 10, improved.PreviousPosition)
	assert.Equal(t, 6, improved.PositionChange, "moving up is a positive change")

	dropped := store.RecordSample(ranking.Observation{Keyword: "kw", Position: 12})
	assert.Equal(t, 4, dropped.PreviousPosition)
	assert.Equal(t, -8, dropped.PositionChange)
}

func TestStore_HistoryBoundedAndOrdered(t *testing.T) {
	store := ranking.NewStore()
	store.SetClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	for i := 1; i <= 120; i++ {
		record := store.RecordSample(ranking.Observation{Keyword: "kw", Position: i})
		require.LessOrEqual(t, len(record.History), models.MaxHistory)
	}

	record, ok := store.GetRecord("kw")
	require.True(t, ok)
	assert.Len(t, record.History, models.MaxHistory)

	// Oldest samples evicted first
	assert.Equal(t, 31, record.History[0].Position)
	assert.Equal(t, 120, record.History[len(record.History)-1].Position)

	for i := 1; i < len(record.History); i++ {
		assert.True(t, record.History[i].Timestamp.After(record.History[i-1].Timestamp))
	}
}

func TestStore_ReturnedRecordsAreCopies(t *testing.T) {
	store := ranking.NewStore()
	record := store.RecordSample(ranking.Observation{
		Keyword:     "kw",
		Position:    3,
		Competitors: []models.CompetitorPosition{{Domain: "rival.com", Position: 1}},
	})

	record.History[0].Position = 99
	record.Competitors[0].Position = 50

	stored, ok := store.GetRecord("kw")
	require.True(t, ok)
	assert.Equal(t, 3, stored.History[0].Position)
	assert.Equal(t, 1, stored.Competitors[0].Position)
}

func TestStore_UnknownKeyword(t *testing.T) {
	store := ranking.NewStore()

	_, ok := store.GetRecord("missing")
	assert.False(t, ok)
	assert.Empty(t, store.AllRecords())
	assert.False(t, store.UpdateCompetitors("missing", nil))
}

func TestStore_UpdateCompetitorsKeepsHistory(t *testing.T) {
	store := ranking.NewStore()
	store.RecordSample(ranking.Observation{Keyword: "kw", Position: 5})

	ok := store.UpdateCompetitors("kw", []models.CompetitorPosition{{Domain: "rival.com", Position: 2}})
	require.True(t, ok)

	record, _ := store.GetRecord("kw")
	assert.Len(t, record.History, 1)
	assert.Equal(t, "rival.com", record.Competitors[0].Domain)
	assert.Equal(t, 0, record.PositionChange)
}

func TestStore_RestoreTrimsHistory(t *testing.T) {
	store := ranking.NewStore()

	history := make([]models.RankingSample, 100)
	for i := range history {
		history[i] = models.RankingSample{Keyword: "kw", Position: i + 1}
	}
	store.Restore([]models.RankingRecord{{Keyword: "kw", CurrentPosition: 100, History: history}})

	record, ok := store.GetRecord("kw")
	require.True(t, ok)
	assert.Len(t, record.History, models.MaxHistory)
	assert.Equal(t, 11, record.History[0].Position)

	next := store.RecordSample(ranking.Observation{Keyword: "kw", Position: 90})
	assert.Equal(t, 10, next.PositionChange)
}

func TestEstimateTraffic(t *testing.T) {
	assert.Equal(t, 0.0, ranking.EstimateTraffic(0, 1000))
	assert.Equal(t, 0.0, ranking.EstimateTraffic(3, 0))
	assert.InDelta(t, 284.0, ranking.EstimateTraffic(1, 1000), 0.001)
	assert.InDelta(t, 10.0, ranking.EstimateTraffic(15, 1000), 0.001)
	assert.InDelta(t, 2.0, ranking.EstimateTraffic(50, 1000), 0.001)
}
