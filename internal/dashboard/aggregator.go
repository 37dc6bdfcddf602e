// Package dashboard reduces the current monitoring state into the summary
// served to dashboard consumers. It never mutates the state it reads.
package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

const (
	maxMovers      = 5
	maxFixes       = 3
	maxQuickWins   = 3
	maxNextActions = 10

	DefaultTrendLength = 30

	quickWinMin = 4
	quickWinMax = 10
)

// RecordSource provides the current ranking records.
type RecordSource interface {
	AllRecords() []models.RankingRecord
}

// AuditSource provides the most recent audit, if any.
type AuditSource interface {
	Latest() (*models.AuditResult, bool)
}

// AlertSource provides unresolved alerts.
type AlertSource interface {
	Open() []models.Alert
}

// Aggregator builds dashboards on demand from whatever state is available.
// Any source may be nil; its fields are then zeroed.
type Aggregator struct {
	domain      string
	records     RecordSource
	audits      AuditSource
	alerts      AlertSource
	trendLength int
	now         func() time.Time
}

func NewAggregator(domain string, records RecordSource, audits AuditSource, alerts AlertSource) *Aggregator {
	return &Aggregator{
		domain:      domain,
		records:     records,
		audits:      audits,
		alerts:      alerts,
		trendLength: DefaultTrendLength,
		now:         time.Now,
	}
}

// SetTrendLength overrides the number of positions kept per keyword trend.
func (a *Aggregator) SetTrendLength(n int) {
	if n > 0 {
		a.trendLength = n
	}
}

// Generate builds a dashboard from the current state.
func (a *Aggregator) Generate() models.Dashboard {
	var records []models.RankingRecord
	if a.records != nil {
		records = a.records.AllRecords()
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Keyword < records[j].Keyword })

	var audit *models.AuditResult
	if a.audits != nil {
		if latest, ok := a.audits.Latest(); ok {
			audit = latest
		}
	}

	openAlerts := []models.Alert{}
	if a.alerts != nil {
		openAlerts = a.alerts.Open()
	}

	return models.Dashboard{
		Domain:      a.domain,
		GeneratedAt: a.now(),
		Overview:    Overview(records, audit),
		TopMovers:   Movers(records),
		Trends:      Trends(records, a.trendLength),
		OpenAlerts:  openAlerts,
		NextActions: NextActions(records, audit),
	}
}

// Overview computes the headline statistics. An empty record set yields
// zeroes rather than NaN.
func Overview(records []models.RankingRecord, audit *models.AuditResult) models.Overview {
	overview := models.Overview{TotalKeywords: len(records)}
	if audit != nil {
		overview.TechnicalScore = audit.Score
	}
	if len(records) == 0 {
		return overview
	}

	var positionSum int
	var visibility float64
	for _, r := range records {
		positionSum += r.CurrentPosition
		overview.TotalTraffic += r.EstimatedTraffic
		visibility += math.Max(float64(101-r.CurrentPosition), 0) * math.Log(float64(r.SearchVolume)+1)
	}

	n := float64(len(records))
	overview.AveragePosition = math.Round(float64(positionSum)/n*10) / 10
	overview.VisibilityScore = visibility / n
	return overview
}

// Movers partitions records into gainers (largest improvement first) and
// losers (largest drop first), each capped at five.
func Movers(records []models.RankingRecord) models.TopMovers {
	movers := models.TopMovers{
		Gainers: []models.Mover{},
		Losers:  []models.Mover{},
	}

	for _, r := range records {
		m := models.Mover{
			Keyword:          r.Keyword,
			CurrentPosition:  r.CurrentPosition,
			PreviousPosition: r.PreviousPosition,
			PositionChange:   r.PositionChange,
		}
		switch {
		case r.PositionChange > 0:
			movers.Gainers = append(movers.Gainers, m)
		case r.PositionChange < 0:
			movers.Losers = append(movers.Losers, m)
		}
	}

	sort.SliceStable(movers.Gainers, func(i, j int) bool {
		return movers.Gainers[i].PositionChange > movers.Gainers[j].PositionChange
	})
	sort.SliceStable(movers.Losers, func(i, j int) bool {
		return movers.Losers[i].PositionChange < movers.Losers[j].PositionChange
	})

	if len(movers.Gainers) > maxMovers {
		movers.Gainers = movers.Gainers[:maxMovers]
	}
	if len(movers.Losers) > maxMovers {
		movers.Losers = movers.Losers[:maxMovers]
	}
	return movers
}

// Trends returns up to length recent positions per keyword, oldest first.
func Trends(records []models.RankingRecord, length int) []models.KeywordTrend {
	trends := make([]models.KeywordTrend, 0, len(records))
	for _, r := range records {
		history := r.History
		if length > 0 && len(history) > length {
			history = history[len(history)-length:]
		}
		positions := make([]int, len(history))
		for i, s := range history {
			positions[i] = s.Position
		}
		trends = append(trends, models.KeywordTrend{Keyword: r.Keyword, Positions: positions})
	}
	return trends
}

// NextActions lists the highest priority critical fixes from the latest
// audit followed by the best quick-win keywords.
func NextActions(records []models.RankingRecord, audit *models.AuditResult) []models.NextAction {
	actions := make([]models.NextAction, 0, maxFixes+maxQuickWins)

	if audit != nil {
		critical := make([]models.TechnicalIssue, len(audit.CriticalIssues))
		copy(critical, audit.CriticalIssues)
		sort.SliceStable(critical, func(i, j int) bool { return critical[i].Priority > critical[j].Priority })

		for i, issue := range critical {
			if i == maxFixes {
				break
			}
			actions = append(actions, models.NextAction{
				Kind:           models.ActionTechnicalFix,
				Title:          issue.Title,
				Recommendation: issue.Recommendation,
				IssueID:        issue.ID,
				Priority:       issue.Priority,
			})
		}
	}

	quickWins := make([]models.RankingRecord, 0)
	for _, r := range records {
		if r.CurrentPosition >= quickWinMin && r.CurrentPosition <= quickWinMax {
			quickWins = append(quickWins, r)
		}
	}
	sort.SliceStable(quickWins, func(i, j int) bool { return quickWins[i].SearchVolume > quickWins[j].SearchVolume })

	for i, r := range quickWins {
		if i == maxQuickWins {
			break
		}
		actions = append(actions, models.NextAction{
			Kind:         models.ActionQuickWin,
			Title:        "Push \"" + r.Keyword + "\" onto the top of page one",
			Keyword:      r.Keyword,
			Position:     r.CurrentPosition,
			SearchVolume: r.SearchVolume,
		})
	}

	if len(actions) > maxNextActions {
		actions = actions[:maxNextActions]
	}
	return actions
}
