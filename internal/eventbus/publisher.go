package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/nats-io/nats.go"
)

// Subjects published by the monitor.
const (
	SubjectRankingsUpdated    = "rankings.updated"
	SubjectAuditsCompleted    = "audits.completed"
	SubjectAlertsCreated      = "alerts.created"
	SubjectReportsWeekly      = "reports.weekly"
	SubjectCompetitorsScanned = "competitors.scanned"
)

// RankingsUpdatedEvent is published after every ranking tick.
type RankingsUpdatedEvent struct {
	Domain    string                 `json:"domain"`
	Records   []models.RankingRecord `json:"records"`
	Timestamp int64                  `json:"timestamp"`
}

// CompetitorsScannedEvent is published after every competitor scan.
type CompetitorsScannedEvent struct {
	Domain      string                     `json:"domain"`
	Competitors []models.CompetitorSummary `json:"competitors"`
	Timestamp   int64                      `json:"timestamp"`
}

// Publisher publishes monitoring events to NATS
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher creates a new event bus publisher
func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Monitor (Pub) connected to NATS at %s", natsURL)

	return &Publisher{
		conn: conn,
	}, nil
}

func (p *Publisher) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// PublishRankings publishes the records updated in one ranking tick
func (p *Publisher) PublishRankings(domain string, records []models.RankingRecord) error {
	event := RankingsUpdatedEvent{
		Domain:    domain,
		Records:   records,
		Timestamp: time.Now().Unix(),
	}
	if err := p.publish(SubjectRankingsUpdated, event); err != nil {
		return err
	}

	log.Printf("Published %d ranking records to event bus", len(records))
	return nil
}

// PublishAudit publishes a completed audit
func (p *Publisher) PublishAudit(result *models.AuditResult) error {
	if err := p.publish(SubjectAuditsCompleted, result); err != nil {
		return err
	}

	log.Printf("Published audit to event bus: %s score=%d", result.Domain, result.Score)
	return nil
}

// PublishAlert publishes a newly created alert
func (p *Publisher) PublishAlert(alert models.Alert) error {
	if err := p.publish(SubjectAlertsCreated, alert); err != nil {
		return err
	}

	log.Printf("Published alert to event bus: [%s] %s", alert.Severity, alert.Title)
	return nil
}

// PublishReport publishes a weekly report
func (p *Publisher) PublishReport(report *models.WeeklyReport) error {
	if err := p.publish(SubjectReportsWeekly, report); err != nil {
		return err
	}

	log.Printf("Published weekly report %s to event bus", report.ID)
	return nil
}

// PublishCompetitors publishes the summaries of one competitor scan
func (p *Publisher) PublishCompetitors(domain string, summaries []models.CompetitorSummary) error {
	event := CompetitorsScannedEvent{
		Domain:      domain,
		Competitors: summaries,
		Timestamp:   time.Now().Unix(),
	}
	if err := p.publish(SubjectCompetitorsScanned, event); err != nil {
		return err
	}

	log.Printf("Published %d competitor summaries to event bus", len(summaries))
	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Println("Monitor (Pub) disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
