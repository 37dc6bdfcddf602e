// Package metrics exposes the monitor's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankmonkey_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rankmonkey_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankmonkey_task_runs_total",
		Help: "Scheduled task runs by outcome",
	}, []string{"task", "outcome"})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rankmonkey_task_duration_seconds",
		Help:    "Duration of scheduled task runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"task"})

	alertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankmonkey_alerts_created_total",
		Help: "Alerts created by type and severity",
	}, []string{"type", "severity"})

	keywordPosition = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rankmonkey_keyword_position",
		Help: "Current search position per tracked keyword",
	}, []string{"keyword"})

	keywordTraffic = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rankmonkey_keyword_estimated_traffic",
		Help: "Estimated traffic per tracked keyword",
	}, []string{"keyword"})

	technicalScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rankmonkey_technical_score",
		Help: "Composite score of the latest technical audit",
	})

	categoryScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rankmonkey_audit_category_score",
		Help: "Score of each audit category in the latest audit",
	}, []string{"category"})
)

// ObserveRequest records one HTTP request.
func ObserveRequest(method, endpoint, status string, duration time.Duration) {
	requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// ObserveTask records one scheduler run.
func ObserveTask(task string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	taskRuns.WithLabelValues(task, outcome).Inc()
	taskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordAlert counts a created alert.
func RecordAlert(alert models.Alert) {
	alertsCreated.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
}

// RecordRankings updates per-keyword gauges.
func RecordRankings(records []models.RankingRecord) {
	for _, r := range records {
		keywordPosition.WithLabelValues(r.Keyword).Set(float64(r.CurrentPosition))
		keywordTraffic.WithLabelValues(r.Keyword).Set(r.EstimatedTraffic)
	}
}

// RecordAudit updates the audit score gauges.
func RecordAudit(result *models.AuditResult) {
	if result == nil {
		return
	}
	technicalScore.Set(float64(result.Score))
	for _, c := range result.Categories {
		categoryScore.WithLabelValues(string(c.Category)).Set(float64(c.Score))
	}
}
