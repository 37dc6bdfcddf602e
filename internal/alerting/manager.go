// Package alerting turns fresh ranking and audit data into classified alerts
// and manages their acknowledge/resolve lifecycle.
package alerting

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/google/uuid"
)

// A ranking gain larger than this always raises a low severity alert.
const gainThreshold = 5

// Notifier is the external notification sink. Only high and critical
// alerts reach it.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Thresholds configure when alerts fire.
type Thresholds struct {
	PositionDrop        int     `json:"position_drop" yaml:"position_drop"`
	TrafficDropPct      float64 `json:"traffic_drop_pct" yaml:"traffic_drop_pct"`
	TechnicalScoreFloor int     `json:"technical_score_floor" yaml:"technical_score_floor"`
}

// DefaultThresholds returns the stock alerting thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PositionDrop:        5,
		TrafficDropPct:      20,
		TechnicalScoreFloor: 70,
	}
}

// Manager owns the append-only alert list. Every trigger creates a new
// alert; repeats are not suppressed.
type Manager struct {
	thresholds Thresholds
	notifier   Notifier

	alerts []*models.Alert
	byID   map[string]*models.Alert
	mu     sync.RWMutex

	onCreated []func(models.Alert)
	now       func() time.Time
}

// NewManager creates an alert manager. notifier may be nil.
func NewManager(thresholds Thresholds, notifier Notifier) *Manager {
	return &Manager{
		thresholds: thresholds,
		notifier:   notifier,
		alerts:     make([]*models.Alert, 0),
		byID:       make(map[string]*models.Alert),
		now:        time.Now,
	}
}

// SetClock overrides the timestamp source (tests).
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// OnCreated registers a callback invoked for every new alert regardless of severity.
func (m *Manager) OnCreated(fn func(models.Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreated = append(m.onCreated, fn)
}

// Thresholds returns the configured thresholds.
func (m *Manager) Thresholds() Thresholds {
	return m.thresholds
}

// DropSeverity classifies a negative position change.
func DropSeverity(change int) models.AlertSeverity {
	switch {
	case change <= -20:
		return models.SeverityCritical
	case change <= -10:
		return models.SeverityHigh
	case change <= -5:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// EvaluateRanking raises a ranking_drop alert when the record fell by more
// than the configured threshold and a ranking_gain alert for large gains.
func (m *Manager) EvaluateRanking(ctx context.Context, record models.RankingRecord) []models.Alert {
	var created []models.Alert

	if record.PositionChange < -m.thresholds.PositionDrop {
		created = append(created, m.CreateAlert(ctx, models.Alert{
			Type:     models.AlertRankingDrop,
			Severity: DropSeverity(record.PositionChange),
			Title:    fmt.Sprintf("Ranking drop for %q", record.Keyword),
			Description: fmt.Sprintf("%q dropped %d positions, from %d to %d",
				record.Keyword, -record.PositionChange, record.PreviousPosition, record.CurrentPosition),
			Trigger: models.AlertTrigger{
				Keyword:   record.Keyword,
				Threshold: float64(-m.thresholds.PositionDrop),
				Actual:    float64(record.PositionChange),
			},
		}))
	}

	if record.PositionChange > gainThreshold {
		created = append(created, m.CreateAlert(ctx, models.Alert{
			Type:     models.AlertRankingGain,
			Severity: models.SeverityLow,
			Title:    fmt.Sprintf("Ranking gain for %q", record.Keyword),
			Description: fmt.Sprintf("%q improved %d positions, from %d to %d",
				record.Keyword, record.PositionChange, record.PreviousPosition, record.CurrentPosition),
			Trigger: models.AlertTrigger{
				Keyword:   record.Keyword,
				Threshold: gainThreshold,
				Actual:    float64(record.PositionChange),
			},
		}))
	}

	return created
}

// EvaluateTraffic compares the two most recent samples of a record and
// raises a traffic_drop alert when estimated traffic fell by more than the
// configured percentage.
func (m *Manager) EvaluateTraffic(ctx context.Context, record models.RankingRecord) []models.Alert {
	latest, ok := record.LatestSample()
	if !ok {
		return nil
	}
	previous, ok := record.PreviousSample()
	if !ok || previous.EstimatedTraffic <= 0 {
		return nil
	}

	dropPct := (previous.EstimatedTraffic - latest.EstimatedTraffic) / previous.EstimatedTraffic * 100
	if dropPct <= m.thresholds.TrafficDropPct {
		return nil
	}

	severity := models.SeverityMedium
	if dropPct >= 2*m.thresholds.TrafficDropPct {
		severity = models.SeverityHigh
	}

	return []models.Alert{m.CreateAlert(ctx, models.Alert{
		Type:     models.AlertTrafficDrop,
		Severity: severity,
		Title:    fmt.Sprintf("Traffic drop for %q", record.Keyword),
		Description: fmt.Sprintf("Estimated traffic for %q fell %.1f%%, from %.1f to %.1f visits",
			record.Keyword, dropPct, previous.EstimatedTraffic, latest.EstimatedTraffic),
		Trigger: models.AlertTrigger{
			Keyword:   record.Keyword,
			Threshold: m.thresholds.TrafficDropPct,
			Actual:    dropPct,
		},
	})}
}

// EvaluateAudit raises one technical_issue alert per critical issue, plus a
// technical_score alert when the composite is below the floor.
func (m *Manager) EvaluateAudit(ctx context.Context, result *models.AuditResult) []models.Alert {
	if result == nil {
		return nil
	}

	var created []models.Alert

	for _, issue := range result.CriticalIssues {
		severity := models.SeverityMedium
		if issue.Impact == models.LevelHigh {
			severity = models.SeverityHigh
		}

		created = append(created, m.CreateAlert(ctx, models.Alert{
			Type:        models.AlertTechnicalIssue,
			Severity:    severity,
			Title:       issue.Title,
			Description: issue.Recommendation,
			Trigger: models.AlertTrigger{
				Threshold: float64(issue.Priority),
				Actual:    float64(categoryScore(result, issue.Category)),
			},
		}))
	}

	floor := m.thresholds.TechnicalScoreFloor
	if floor > 0 && result.Score < floor {
		severity := models.SeverityHigh
		if result.Score < floor/2 {
			severity = models.SeverityCritical
		}

		created = append(created, m.CreateAlert(ctx, models.Alert{
			Type:        models.AlertTechnicalScore,
			Severity:    severity,
			Title:       fmt.Sprintf("Technical score %d is below %d", result.Score, floor),
			Description: fmt.Sprintf("The latest audit of %s found %d critical issues and %d warnings",
				result.Domain, len(result.CriticalIssues), len(result.Warnings)),
			Trigger: models.AlertTrigger{
				Threshold: float64(floor),
				Actual:    float64(result.Score),
			},
		}))
	}

	return created
}

func categoryScore(result *models.AuditResult, category models.AuditCategory) int {
	if c, ok := result.Category(category); ok {
		return c.Score
	}
	return 0
}

// CreateAlert assigns an id and timestamp, stores the alert and notifies the
// sink for high and critical severities.
func (m *Manager) CreateAlert(ctx context.Context, alert models.Alert) models.Alert {
	m.mu.Lock()
	alert.ID = uuid.NewString()
	alert.Timestamp = m.now()
	alert.Acknowledged = false
	alert.Resolved = false
	alert.AcknowledgedAt = nil
	alert.ResolvedAt = nil

	stored := alert
	m.alerts = append(m.alerts, &stored)
	m.byID[stored.ID] = &stored

	listeners := make([]func(models.Alert), len(m.onCreated))
	copy(listeners, m.onCreated)
	m.mu.Unlock()

	log.Printf("[Alerts] Created %s alert (%s): %s", alert.Type, alert.Severity, alert.Title)

	for _, fn := range listeners {
		fn(alert)
	}

	if alert.Severity.Notifiable() && m.notifier != nil {
		if err := m.notifier.Notify(ctx, alert); err != nil {
			log.Printf("[Alerts] Failed to notify alert %s: %v", alert.ID, err)
		}
	}

	return alert
}

// Acknowledge marks an alert as acknowledged. Acknowledging twice is a
// no-op; unknown ids return false.
func (m *Manager) Acknowledge(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.byID[id]
	if !ok {
		return false
	}
	if !alert.Acknowledged {
		now := m.now()
		alert.Acknowledged = true
		alert.AcknowledgedAt = &now
		log.Printf("[Alerts] Acknowledged alert %s", id)
	}
	return true
}

// Resolve marks an alert as resolved. Resolved is terminal; resolving twice
// is a no-op and unknown ids return false.
func (m *Manager) Resolve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.byID[id]
	if !ok {
		return false
	}
	if !alert.Resolved {
		now := m.now()
		alert.Resolved = true
		alert.ResolvedAt = &now
		log.Printf("[Alerts] Resolved alert %s", id)
	}
	return true
}

// Get returns a copy of one alert.
func (m *Manager) Get(id string) (models.Alert, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alert, ok := m.byID[id]
	if !ok {
		return models.Alert{}, false
	}
	return *alert, true
}

// All returns every alert in creation order.
func (m *Manager) All() []models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Alert, len(m.alerts))
	for i, a := range m.alerts {
		out[i] = *a
	}
	return out
}

// Open returns unresolved alerts, most severe first and newest first within
// a severity.
func (m *Manager) Open() []models.Alert {
	m.mu.RLock()
	out := make([]models.Alert, 0)
	for _, a := range m.alerts {
		if !a.Resolved {
			out = append(out, *a)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Restore loads persisted alerts without notifying. Alerts with an id that
// is already known are skipped.
func (m *Manager) Restore(alerts []models.Alert) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for _, a := range alerts {
		if a.ID == "" {
			continue
		}
		if _, exists := m.byID[a.ID]; exists {
			continue
		}
		stored := a
		m.alerts = append(m.alerts, &stored)
		m.byID[stored.ID] = &stored
		restored++
	}

	sort.SliceStable(m.alerts, func(i, j int) bool {
		return m.alerts[i].Timestamp.Before(m.alerts[j].Timestamp)
	})
	return restored
}
