package models

import "time"

// AlertType identifies what raised an alert.
type AlertType string

const (
	AlertRankingDrop    AlertType = "ranking_drop"
	AlertRankingGain    AlertType = "ranking_gain"
	AlertTechnicalIssue AlertType = "technical_issue"
	AlertTechnicalScore AlertType = "technical_score"
	AlertTrafficDrop    AlertType = "traffic_drop"
)

// AlertSeverity is ordinal: low < medium < high < critical.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Rank returns the ordinal value of the severity.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Notifiable reports whether alerts of this severity are dispatched to notification sinks.
func (s AlertSeverity) Notifiable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// AlertTrigger captures the measurement that crossed a threshold.
type AlertTrigger struct {
	Keyword   string  `json:"keyword,omitempty"`
	Threshold float64 `json:"threshold"`
	Actual    float64 `json:"actual"`
}

// Alert lifecycle: created -> (acknowledged) -> resolved. Alerts are never
// deleted and resolved is terminal.
type Alert struct {
	ID             string        `json:"id"`
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Trigger        AlertTrigger  `json:"trigger"`
	Timestamp      time.Time     `json:"timestamp"`
	Acknowledged   bool          `json:"acknowledged"`
	Resolved       bool          `json:"resolved"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
}
