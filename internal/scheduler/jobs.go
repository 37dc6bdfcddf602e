package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/alerting"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/ranking"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
	"golang.org/x/sync/errgroup"
)

const (
	TaskRanking    = "ranking_check"
	TaskAudit      = "technical_audit"
	TaskCompetitor = "competitor_scan"
	TaskReport     = "weekly_report"

	defaultConcurrency = 4
)

var (
	// ErrAllKeywordsFailed is returned when no keyword could be fetched in a tick.
	ErrAllKeywordsFailed = errors.New("every keyword lookup failed")
	ErrInvalidPosition   = errors.New("rank source returned a negative position")
)

// RankingJob fetches every tracked keyword, records the sample and
// evaluates ranking and traffic alerts. A failing keyword is logged and
// skipped for the tick.
type RankingJob struct {
	keywords    []string
	competitors []string
	rank        source.RankSource
	store       *ranking.Store
	alerts      *alerting.Manager
	timeout     time.Duration
	concurrency int

	afterTick []func(ctx context.Context, records []models.RankingRecord)
}

func NewRankingJob(keywords, competitors []string, rank source.RankSource, store *ranking.Store, alerts *alerting.Manager, timeout time.Duration) *RankingJob {
	return &RankingJob{
		keywords:    keywords,
		competitors: competitors,
		rank:        rank,
		store:       store,
		alerts:      alerts,
		timeout:     timeout,
		concurrency: defaultConcurrency,
	}
}

// SetConcurrency bounds the number of keyword lookups in flight.
func (j *RankingJob) SetConcurrency(n int) {
	if n > 0 {
		j.concurrency = n
	}
}

// AfterTick registers a hook that receives the records updated in a tick.
func (j *RankingJob) AfterTick(fn func(ctx context.Context, records []models.RankingRecord)) {
	j.afterTick = append(j.afterTick, fn)
}

func (j *RankingJob) Name() string {
	return TaskRanking
}

func (j *RankingJob) Run(ctx context.Context) error {
	var (
		mu      sync.Mutex
		updated = make([]models.RankingRecord, 0, len(j.keywords))
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, keyword := range j.keywords {
		g.Go(func() error {
			record, err := j.checkKeyword(gctx, keyword)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Printf("[Ranking] Skipping %q this tick: %v", keyword, err)
				return nil
			}
			updated = append(updated, record)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(updated, func(a, b int) bool { return updated[a].Keyword < updated[b].Keyword })

	// Alerts are evaluated after the fan-out so their order is deterministic.
	for _, record := range updated {
		j.alerts.EvaluateRanking(ctx, record)
		j.alerts.EvaluateTraffic(ctx, record)
	}

	for _, fn := range j.afterTick {
		fn(ctx, updated)
	}

	log.Printf("[Ranking] Tick complete: %d updated, %d skipped", len(updated), failed)

	if len(j.keywords) > 0 && len(updated) == 0 {
		return ErrAllKeywordsFailed
	}
	return nil
}

func (j *RankingJob) checkKeyword(ctx context.Context, keyword string) (models.RankingRecord, error) {
	fetchCtx, cancel := withTimeout(ctx, j.timeout)
	defer cancel()

	result, err := j.rank.FetchPosition(fetchCtx, keyword)
	if err != nil {
		return models.RankingRecord{}, fmt.Errorf("fetch position: %w", err)
	}
	if result.Position < 0 {
		return models.RankingRecord{}, fmt.Errorf("%w: %d", ErrInvalidPosition, result.Position)
	}

	compCtx, cancelComp := withTimeout(ctx, j.timeout)
	defer cancelComp()

	competitors, err := j.rank.FetchCompetitorPositions(compCtx, keyword)
	if err != nil {
		log.Printf("[Ranking] Competitor lookup for %q failed, keeping previous snapshot: %v", keyword, err)
		if prior, ok := j.store.GetRecord(keyword); ok {
			competitors = prior.Competitors
		}
	} else {
		competitors = FilterCompetitors(competitors, j.competitors)
	}

	// Partial results are not recorded.
	if ctx.Err() != nil {
		return models.RankingRecord{}, ctx.Err()
	}

	return j.store.RecordSample(ranking.Observation{
		Keyword:      keyword,
		Position:     result.Position,
		URL:          result.URL,
		SearchVolume: result.SearchVolume,
		Competitors:  competitors,
	}), nil
}

// withTimeout bounds one external call. A zero timeout leaves only the
// parent deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// Auditor runs a full technical audit.
type Auditor interface {
	RunFullAudit(ctx context.Context) (*models.AuditResult, error)
}

// AuditJob runs the technical audit and evaluates audit alerts.
type AuditJob struct {
	auditor Auditor
	alerts  *alerting.Manager

	afterAudit []func(ctx context.Context, result *models.AuditResult)
}

func NewAuditJob(auditor Auditor, alerts *alerting.Manager) *AuditJob {
	return &AuditJob{auditor: auditor, alerts: alerts}
}

// AfterAudit registers a hook that receives each completed audit.
func (j *AuditJob) AfterAudit(fn func(ctx context.Context, result *models.AuditResult)) {
	j.afterAudit = append(j.afterAudit, fn)
}

func (j *AuditJob) Name() string {
	return TaskAudit
}

func (j *AuditJob) Run(ctx context.Context) error {
	result, err := j.auditor.RunFullAudit(ctx)
	if err != nil {
		return fmt.Errorf("run audit: %w", err)
	}
	j.alerts.EvaluateAudit(ctx, result)

	for _, fn := range j.afterAudit {
		fn(ctx, result)
	}
	return nil
}

// CompetitorJob refreshes competitor snapshots without adding history
// samples and summarises each competitor domain across tracked keywords.
type CompetitorJob struct {
	keywords    []string
	competitors []string
	rank        source.RankSource
	store       *ranking.Store
	timeout     time.Duration
	now         func() time.Time

	mu     sync.RWMutex
	latest []models.CompetitorSummary

	afterScan []func(ctx context.Context, summaries []models.CompetitorSummary)
}

func NewCompetitorJob(keywords, competitors []string, rank source.RankSource, store *ranking.Store, timeout time.Duration) *CompetitorJob {
	return &CompetitorJob{
		keywords:    keywords,
		competitors: competitors,
		rank:        rank,
		store:       store,
		timeout:     timeout,
		now:         time.Now,
	}
}

// AfterScan registers a hook that receives the summaries of each scan.
func (j *CompetitorJob) AfterScan(fn func(ctx context.Context, summaries []models.CompetitorSummary)) {
	j.afterScan = append(j.afterScan, fn)
}

func (j *CompetitorJob) Name() string {
	return TaskCompetitor
}

func (j *CompetitorJob) Run(ctx context.Context) error {
	for _, keyword := range j.keywords {
		fetchCtx, cancel := withTimeout(ctx, j.timeout)
		competitors, err := j.rank.FetchCompetitorPositions(fetchCtx, keyword)
		cancel()
		if err != nil {
			log.Printf("[Competitors] Skipping %q: %v", keyword, err)
			continue
		}

		// Keywords without a ranking sample yet have nothing to attach to.
		if !j.store.UpdateCompetitors(keyword, FilterCompetitors(competitors, j.competitors)) {
			log.Printf("[Competitors] No ranking record for %q yet", keyword)
		}
	}

	summaries := SummariseCompetitors(j.store.AllRecords(), j.competitors, j.now())

	j.mu.Lock()
	j.latest = summaries
	j.mu.Unlock()

	for _, fn := range j.afterScan {
		fn(ctx, summaries)
	}

	log.Printf("[Competitors] Scan complete for %d competitors", len(summaries))
	return nil
}

// Latest returns the summaries from the most recent scan.
func (j *CompetitorJob) Latest() []models.CompetitorSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]models.CompetitorSummary, len(j.latest))
	copy(out, j.latest)
	return out
}

// FilterCompetitors keeps positions whose host matches one of the
// configured competitor domains. An empty list keeps everything.
func FilterCompetitors(positions []models.CompetitorPosition, domains []string) []models.CompetitorPosition {
	if len(domains) == 0 {
		return positions
	}

	wanted := make(map[string]bool, len(domains))
	for _, d := range domains {
		wanted[hostKey(d)] = true
	}

	out := make([]models.CompetitorPosition, 0, len(positions))
	for _, p := range positions {
		if wanted[hostKey(p.Domain)] {
			out = append(out, p)
		}
	}
	return out
}

// SummariseCompetitors reduces competitor snapshots into one summary per
// configured domain, in configuration order.
func SummariseCompetitors(records []models.RankingRecord, domains []string, now time.Time) []models.CompetitorSummary {
	summaries := make([]models.CompetitorSummary, 0, len(domains))

	for _, domain := range domains {
		key := hostKey(domain)
		summary := models.CompetitorSummary{Domain: source.Hostname(domain), Timestamp: now}
		total := 0

		for _, record := range records {
			for _, c := range record.Competitors {
				if hostKey(c.Domain) != key || c.Position <= 0 {
					continue
				}
				summary.KeywordsTracked++
				total += c.Position
				if record.CurrentPosition <= 0 || c.Position < record.CurrentPosition {
					summary.KeywordsAhead++
				}
			}
		}

		if summary.KeywordsTracked > 0 {
			avg := float64(total) / float64(summary.KeywordsTracked)
			summary.AveragePosition = math.Round(avg*10) / 10
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

func hostKey(domain string) string {
	return strings.TrimPrefix(strings.ToLower(source.Hostname(domain)), "www.")
}

// ReportBuilder produces the periodic report.
type ReportBuilder interface {
	Build(ctx context.Context) (*models.WeeklyReport, error)
}

// ReportJob builds the weekly report and hands it to the registered hooks.
type ReportJob struct {
	builder ReportBuilder

	afterReport []func(ctx context.Context, report *models.WeeklyReport)
}

func NewReportJob(builder ReportBuilder) *ReportJob {
	return &ReportJob{builder: builder}
}

// AfterReport registers a hook that receives each generated report.
func (j *ReportJob) AfterReport(fn func(ctx context.Context, report *models.WeeklyReport)) {
	j.afterReport = append(j.afterReport, fn)
}

func (j *ReportJob) Name() string {
	return TaskReport
}

func (j *ReportJob) Run(ctx context.Context) error {
	report, err := j.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	for _, fn := range j.afterReport {
		fn(ctx, report)
	}
	return nil
}
