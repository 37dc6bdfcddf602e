package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/alerting"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/archive"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/config"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/scheduler"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source/sourcetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Domain:   "https://example.com",
		Keywords: []string{"seo tools", "rank tracker"},
		Thresholds: config.AlertThresholds{
			PositionDrop:        5,
			TrafficDropPct:      20,
			TechnicalScoreFloor: 70,
		},
		RankingInterval:    time.Hour,
		AuditInterval:      24 * time.Hour,
		CompetitorInterval: 12 * time.Hour,
		ReportInterval:     7 * 24 * time.Hour,
		FetchTimeout:       time.Second,
		RankingConcurrency: 2,
		TrendLength:        10,
		RankSource:         "static",
		ArchiveDriver:      "memory",
		HTTPPort:           "0",
		GRPCPort:           "0",
		HealthPort:         "0",
	}
}

func startWithFakes(t *testing.T, cfg *config.Config) (*Orchestrator, *sourcetest.FakeRank) {
	t.Helper()

	rank := sourcetest.NewFakeRank()
	rank.Set("seo tools", 3, 1000)
	rank.Set("rank tracker", 8, 500)

	o := NewOrchestrator(cfg).WithSources(rank, sourcetest.HealthySite())
	require.NoError(t, o.Start(context.Background()))
	t.Cleanup(func() { _ = o.Stop() })
	return o, rank
}

func TestOrchestrator_RunCycle(t *testing.T) {
	o, rank := startWithFakes(t, testConfig())
	ctx := context.Background()

	require.NoError(t, o.RunCycle(ctx))

	dash := o.Dashboard()
	assert.Equal(t, "example.com", source.Hostname(dash.Domain))
	assert.Equal(t, 2, dash.Overview.TotalKeywords)
	assert.Equal(t, 100, dash.Overview.TechnicalScore)
	assert.Empty(t, dash.OpenAlerts)

	mem, ok := o.archive.(*archive.MemoryArchive)
	require.True(t, ok)
	assert.Len(t, mem.Samples(), 2)
	assert.Len(t, mem.Audits(), 1)

	// 3 -> 15 is a twelve position drop
	rank.Set("seo tools", 15, 1000)
	require.NoError(t, o.RunCycle(ctx))

	dash = o.Dashboard()
	require.NotEmpty(t, dash.OpenAlerts)

	var drop models.Alert
	for _, a := range dash.OpenAlerts {
		if a.Type == models.AlertRankingDrop {
			drop = a
		}
	}
	require.NotEmpty(t, drop.ID)
	assert.Equal(t, models.SeverityHigh, drop.Severity)

	archived, ok := mem.Alert(drop.ID)
	require.True(t, ok)
	assert.False(t, archived.Acknowledged)

	require.True(t, o.AlertService().Acknowledge(drop.ID))
	archived, _ = mem.Alert(drop.ID)
	assert.True(t, archived.Acknowledged)

	require.True(t, o.AlertService().Resolve(drop.ID))
	archived, _ = mem.Alert(drop.ID)
	assert.True(t, archived.Resolved)

	assert.False(t, o.AlertService().Resolve("missing"))
}

func TestOrchestrator_TaskStatus(t *testing.T) {
	o, _ := startWithFakes(t, testConfig())

	require.NoError(t, o.scheduler.RunNow(context.Background(), scheduler.TaskRanking))

	status := o.scheduler.Status()
	require.Len(t, status, 4)
	assert.Equal(t, scheduler.TaskRanking, status[0].Name)
	assert.Equal(t, 1, status[0].Runs)
}

func TestOrchestrator_OptionalInfrastructureDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.ArchiveDriver = "cassandra"
	cfg.ArchiveDSN = "localhost:9042"

	o, _ := startWithFakes(t, cfg)

	assert.Nil(t, o.archive)
	assert.Nil(t, o.redisClient)
	assert.Nil(t, o.publisher)
	assert.NoError(t, o.RunCycle(context.Background()))
}

func TestOrchestrator_UnsupportedRankSource(t *testing.T) {
	cfg := testConfig()
	cfg.RankSource = "scraper"

	o := NewOrchestrator(cfg)
	err := o.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrUnsupportedSource)
}

func TestPersistingAlerts_RepeatedTransitionsPersistOnce(t *testing.T) {
	mgr := alerting.NewManager(alerting.DefaultThresholds(), nil)
	created := mgr.EvaluateRanking(context.Background(), models.RankingRecord{
		Keyword:          "seo tools",
		PreviousPosition: 3,
		CurrentPosition:  15,
		PositionChange:   -12,
	})
	require.Len(t, created, 1)
	id := created[0].ID

	var saved []models.Alert
	svc := &persistingAlerts{Manager: mgr, persist: func(a models.Alert) { saved = append(saved, a) }}

	require.True(t, svc.Acknowledge(id))
	require.True(t, svc.Acknowledge(id))
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Acknowledged)

	require.True(t, svc.Resolve(id))
	require.True(t, svc.Resolve(id))
	require.Len(t, saved, 2)
	assert.True(t, saved[1].Resolved)

	assert.False(t, svc.Resolve("missing"))
	assert.Len(t, saved, 2)
}

func TestTrackedRecords_DropsRemovedKeywords(t *testing.T) {
	records := []models.RankingRecord{
		{Keyword: "seo tools", CurrentPosition: 3},
		{Keyword: "old keyword", CurrentPosition: 40},
		{Keyword: "rank tracker", CurrentPosition: 8},
	}

	tracked := trackedRecords(records, []string{"seo tools", "rank tracker"})

	require.Len(t, tracked, 2)
	assert.Equal(t, "seo tools", tracked[0].Keyword)
	assert.Equal(t, "rank tracker", tracked[1].Keyword)
	assert.Empty(t, trackedRecords(records, nil))
}
