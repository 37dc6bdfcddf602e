package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/alerting"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/detector"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/engine"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/ranking"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/scheduler"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source/sourcetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (c *countingTask) Name() string { return c.name }

func (c *countingTask) Run(ctx context.Context) error {
	c.runs.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	return c.err
}

func TestScheduler_RunsIndependentCadences(t *testing.T) {
	s := scheduler.New()
	fast := &countingTask{name: "fast"}
	slow := &countingTask{name: "slow"}

	require.NoError(t, s.Every(10*time.Millisecond, fast, false))
	require.NoError(t, s.Every(time.Hour, slow, true))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return fast.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return slow.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	stopped := fast.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, fast.runs.Load())
}

func TestScheduler_SlowTaskDoesNotBlockOthers(t *testing.T) {
	s := scheduler.New()
	stuck := &countingTask{name: "stuck", block: make(chan struct{})}
	fast := &countingTask{name: "fast"}

	require.NoError(t, s.Every(time.Hour, stuck, true))
	require.NoError(t, s.Every(10*time.Millisecond, fast, false))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return fast.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	// Stop cancels the context the stuck task is waiting on.
	s.Stop()
	assert.Equal(t, int32(1), stuck.runs.Load())
}

func TestScheduler_Validation(t *testing.T) {
	s := scheduler.New()
	task := &countingTask{name: "t"}

	assert.ErrorIs(t, s.Every(0, task, false), scheduler.ErrInvalidPeriod)
	require.NoError(t, s.Every(time.Second, task, false))
	assert.Error(t, s.Every(time.Second, task, false))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrAlreadyRunning)
}

func TestScheduler_RunNowAndStatus(t *testing.T) {
	s := scheduler.New()
	failing := &countingTask{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.Every(time.Hour, failing, false))

	var observed string
	s.OnRun(func(name string, _ time.Duration, err error) {
		if err != nil {
			observed = name
		}
	})

	err := s.RunNow(context.Background(), "failing")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "failing", observed)

	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), scheduler.ErrUnknownTask)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Runs)
	assert.Equal(t, "boom", status[0].LastErr)
}

func TestRankingJob_RecordsAndAlerts(t *testing.T) {
	ctx := context.Background()
	rank := sourcetest.NewFakeRank()
	store := ranking.NewStore()
	alerts := alerting.NewManager(alerting.Thresholds{PositionDrop: 5, TrafficDropPct: 1000}, nil)

	rank.Set("crm", 3, 1000)
	rank.Set("erp", 8, 500)
	job := scheduler.NewRankingJob([]string{"crm", "erp"}, nil, rank, store, alerts, time.Second)

	var ticks int
	job.AfterTick(func(_ context.Context, records []models.RankingRecord) {
		ticks++
		assert.Len(t, records, 2)
	})

	require.NoError(t, job.Run(ctx))
	assert.Empty(t, alerts.All())

	rank.Set("crm", 15, 1000)
	require.NoError(t, job.Run(ctx))

	record, ok := store.GetRecord("crm")
	require.True(t, ok)
	assert.Equal(t, -12, record.PositionChange)
	assert.Len(t, record.History, 2)

	all := alerts.All()
	require.Len(t, all, 1)
	assert.Equal(t, models.AlertRankingDrop, all[0].Type)
	assert.Equal(t, models.SeverityHigh, all[0].Severity)
	assert.Equal(t, 2, ticks)
}

func TestRankingJob_FailingKeywordIsSkipped(t *testing.T) {
	rank := sourcetest.NewFakeRank()
	store := ranking.NewStore()
	alerts := alerting.NewManager(alerting.DefaultThresholds(), nil)

	rank.Set("good", 2, 100)
	rank.Set("bad", 4, 100)
	rank.Fail("bad", true)

	job := scheduler.NewRankingJob([]string{"bad", "good"}, nil, rank, store, alerts, time.Second)
	require.NoError(t, job.Run(context.Background()))

	_, ok := store.GetRecord("bad")
	assert.False(t, ok)
	_, ok = store.GetRecord("good")
	assert.True(t, ok)

	rank.Fail("good", true)
	assert.ErrorIs(t, job.Run(context.Background()), scheduler.ErrAllKeywordsFailed)
}

func TestRankingJob_NegativePositionIsSkipped(t *testing.T) {
	rank := sourcetest.NewFakeRank()
	store := ranking.NewStore()
	alerts := alerting.NewManager(alerting.DefaultThresholds(), nil)

	rank.Set("seo", -1, 1000)
	rank.Set("crm", 4, 1000)

	job := scheduler.NewRankingJob([]string{"crm", "seo"}, nil, rank, store, alerts, time.Second)
	require.NoError(t, job.Run(context.Background()))

	_, ok := store.GetRecord("seo")
	assert.False(t, ok)
	_, ok = store.GetRecord("crm")
	assert.True(t, ok)

	// Unranked (position 0) is still a valid sample.
	rank.Set("seo", 0, 1000)
	require.NoError(t, job.Run(context.Background()))
	record, ok := store.GetRecord("seo")
	require.True(t, ok)
	assert.Equal(t, 0, record.CurrentPosition)
}

// gatedRank records the peak number of concurrent position lookups.
type gatedRank struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *gatedRank) FetchPosition(context.Context, string) (source.RankResult, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return source.RankResult{Position: 5}, nil
}

func (g *gatedRank) FetchCompetitorPositions(context.Context, string) ([]models.CompetitorPosition, error) {
	return nil, nil
}

func TestRankingJob_ConcurrencyLimit(t *testing.T) {
	rank := &gatedRank{}
	keywords := []string{"a", "b", "c", "d", "e", "f"}
	job := scheduler.NewRankingJob(keywords, nil, rank, ranking.NewStore(), alerting.NewManager(alerting.DefaultThresholds(), nil), time.Second)
	job.SetConcurrency(1)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int32(1), rank.peak.Load())
}

func TestRankingJob_FiltersCompetitors(t *testing.T) {
	rank := sourcetest.NewFakeRank()
	store := ranking.NewStore()
	alerts := alerting.NewManager(alerting.DefaultThresholds(), nil)

	rank.Set("crm", 5, 100)
	rank.SetCompetitors("crm", []models.CompetitorPosition{
		{Domain: "www.rival.com", Position: 2},
		{Domain: "other.org", Position: 1},
	})

	job := scheduler.NewRankingJob([]string{"crm"}, []string{"rival.com"}, rank, store, alerts, time.Second)
	require.NoError(t, job.Run(context.Background()))

	record, _ := store.GetRecord("crm")
	require.Len(t, record.Competitors, 1)
	assert.Equal(t, "www.rival.com", record.Competitors[0].Domain)
}

func TestAuditJob_RaisesTechnicalAlerts(t *testing.T) {
	site := sourcetest.HealthySite()
	site.Robots = nil
	eng := engine.NewEngine("http://example.com", site, time.Second)
	for _, c := range detector.DefaultChecks() {
		eng.RegisterCheck(c)
	}
	alerts := alerting.NewManager(alerting.DefaultThresholds(), nil)

	job := scheduler.NewAuditJob(eng, alerts)
	var audited *models.AuditResult
	job.AfterAudit(func(_ context.Context, r *models.AuditResult) { audited = r })

	require.NoError(t, job.Run(context.Background()))

	require.NotNil(t, audited)
	high := 0
	for _, a := range alerts.All() {
		if a.Type == models.AlertTechnicalIssue && a.Severity == models.SeverityHigh {
			high++
		}
	}
	assert.GreaterOrEqual(t, high, 1)
}

// stallingSite blocks every call until the context is cancelled.
type stallingSite struct {
	calls atomic.Int32
}

func (s *stallingSite) wait(ctx context.Context) error {
	s.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *stallingSite) RobotsTxt(ctx context.Context) (string, error) { return "", s.wait(ctx) }
func (s *stallingSite) Sitemap(ctx context.Context) (string, error)   { return "", s.wait(ctx) }
func (s *stallingSite) PerformanceScore(ctx context.Context) (int, error) {
	return 0, s.wait(ctx)
}
func (s *stallingSite) MobileUsable(ctx context.Context) (bool, error)   { return false, s.wait(ctx) }
func (s *stallingSite) StructuredData(ctx context.Context) (bool, error) { return false, s.wait(ctx) }

func TestAuditJob_StopMidAuditRecordsNothing(t *testing.T) {
	site := &stallingSite{}
	eng := engine.NewEngine("https://example.com", site, time.Minute)
	for _, c := range detector.DefaultChecks() {
		eng.RegisterCheck(c)
	}
	alerts := alerting.NewManager(alerting.DefaultThresholds(), nil)

	job := scheduler.NewAuditJob(eng, alerts)
	var hooked atomic.Int32
	job.AfterAudit(func(context.Context, *models.AuditResult) { hooked.Add(1) })

	s := scheduler.New()
	require.NoError(t, s.Every(time.Hour, job, true))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return site.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Empty(t, eng.History())
	assert.Empty(t, alerts.All())
	assert.Zero(t, hooked.Load())

	status := s.Status()
	require.Len(t, status, 1)
	assert.Contains(t, status[0].LastErr, context.Canceled.Error())
}

func TestCompetitorJob_Summaries(t *testing.T) {
	ctx := context.Background()
	rank := sourcetest.NewFakeRank()
	store := ranking.NewStore()

	store.RecordSample(ranking.Observation{Keyword: "crm", Position: 5})
	store.RecordSample(ranking.Observation{Keyword: "erp", Position: 2})

	rank.SetCompetitors("crm", []models.CompetitorPosition{{Domain: "rival.com", Position: 3}})
	rank.SetCompetitors("erp", []models.CompetitorPosition{{Domain: "rival.com", Position: 6}})
	rank.SetCompetitors("new", []models.CompetitorPosition{{Domain: "rival.com", Position: 1}})

	job := scheduler.NewCompetitorJob([]string{"crm", "erp", "new"}, []string{"rival.com", "absent.io"}, rank, store, time.Second)
	require.NoError(t, job.Run(ctx))

	summaries := job.Latest()
	require.Len(t, summaries, 2)
	assert.Equal(t, "rival.com", summaries[0].Domain)
	assert.Equal(t, 2, summaries[0].KeywordsTracked)
	assert.Equal(t, 1, summaries[0].KeywordsAhead)
	assert.Equal(t, 4.5, summaries[0].AveragePosition)
	assert.Zero(t, summaries[1].KeywordsTracked)

	record, _ := store.GetRecord("crm")
	assert.Len(t, record.History, 1)
	assert.Len(t, record.Competitors, 1)
}

type stubBuilder struct {
	report *models.WeeklyReport
	err    error
}

func (b stubBuilder) Build(context.Context) (*models.WeeklyReport, error) {
	return b.report, b.err
}

func TestReportJob(t *testing.T) {
	job := scheduler.NewReportJob(stubBuilder{report: &models.WeeklyReport{ID: "r1"}})
	var got string
	job.AfterReport(func(_ context.Context, r *models.WeeklyReport) { got = r.ID })

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "r1", got)

	failing := scheduler.NewReportJob(stubBuilder{err: errors.New("no data")})
	assert.Error(t, failing.Run(context.Background()))
}
