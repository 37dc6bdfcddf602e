package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/metrics"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := true
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					matched = false
				}
			}
			if !matched {
				continue
			}
			switch {
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestRecordRankingsAndAudit(t *testing.T) {
	metrics.RecordRankings([]models.RankingRecord{{Keyword: "metrics-test", CurrentPosition: 7, EstimatedTraffic: 40}})
	metrics.RecordAudit(&models.AuditResult{Score: 83, Categories: []models.CategoryResult{
		{Category: models.CategorySecurity, Score: 70},
	}})
	metrics.RecordAudit(nil)

	assert.Equal(t, 7.0, gatherValue(t, "rankmonkey_keyword_position", map[string]string{"keyword": "metrics-test"}))
	assert.Equal(t, 83.0, gatherValue(t, "rankmonkey_technical_score", nil))
	assert.Equal(t, 70.0, gatherValue(t, "rankmonkey_audit_category_score", map[string]string{"category": "security"}))
}

func TestObserveTask(t *testing.T) {
	metrics.ObserveTask("metrics_test_task", time.Millisecond, nil)
	metrics.ObserveTask("metrics_test_task", time.Millisecond, errors.New("boom"))
	metrics.ObserveTask("metrics_test_task", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, gatherValue(t, "rankmonkey_task_runs_total", map[string]string{"task": "metrics_test_task", "outcome": "success"}))
	assert.Equal(t, 2.0, gatherValue(t, "rankmonkey_task_runs_total", map[string]string{"task": "metrics_test_task", "outcome": "error"}))
}
