package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/alerting"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/archive"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/config"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/dashboard"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/detector"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/engine"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/eventbus"
	grpcserver "github.com/EricMurray-e-m-dev/RankMonkey/internal/grpc"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/health"
	httpserver "github.com/EricMurray-e-m-dev/RankMonkey/internal/http"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/metrics"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/notify"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/ranking"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/redis"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/report"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/scheduler"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
)

// persistTimeout bounds every write to optional infrastructure.
const persistTimeout = 5 * time.Second

// Orchestrator manages the monitor lifecycle and wires the engine to its
// optional infrastructure.
//
// Lifecycle:
//  1. Start() - Builds the core engine, connects optional infrastructure,
//     restores hot state and registers the periodic tasks
//  2. Run() - Starts the scheduler and all servers, blocks until the context
//     is cancelled
//  3. Stop() - Stops tasks and servers, then closes connections
//
// Only the rank and site sources are required. NATS, Redis, the archive,
// Slack and the text generator degrade gracefully when unavailable.
type Orchestrator struct {
	config *config.Config

	// Data sources
	rankSource source.RankSource
	siteSource source.SiteSource

	// Core components
	store         *ranking.Store
	auditor       *engine.Engine
	alerts        *alerting.Manager
	aggregator    *dashboard.Aggregator
	reports       *report.Generator
	notifier      *notify.Multi
	scheduler     *scheduler.Scheduler
	competitorJob *scheduler.CompetitorJob

	// Optional infrastructure
	publisher   *eventbus.Publisher
	subscriber  *eventbus.Subscriber
	redisClient *redis.Client
	archive     archive.Archive
	textGen     report.TextGenerator

	// Servers
	httpServer   *httpserver.Server
	grpcServer   *grpcserver.HealthServer
	grpcListener net.Listener
	healthServer *health.HealthServer
}

// NewOrchestrator creates a new Orchestrator instance with the provided configuration.
// The orchestrator is not started until Start() is called.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		config: cfg,
	}
}

// WithSources overrides the configured data sources. Must be called before Start.
func (o *Orchestrator) WithSources(rank source.RankSource, site source.SiteSource) *Orchestrator {
	o.rankSource = rank
	o.siteSource = site
	return o
}

// Start initializes all components and prepares the orchestrator for operation.
// Returns an error if a required component fails to initialize.
func (o *Orchestrator) Start(ctx context.Context) error {
	log.Printf("Starting Monitor Orchestrator for %s...", o.config.Domain)

	if err := o.initializeSources(); err != nil {
		return fmt.Errorf("failed to initialize data sources: %w", err)
	}

	o.initializeNotifiers()
	o.connectTextGenerator(ctx)
	o.initializeCore()

	// Optional infrastructure
	if err := o.connectRedis(ctx); err != nil {
		log.Printf("Warning: Redis unavailable: %v", err)
		log.Printf("Rankings and alerts will not survive a restart")
	}

	if err := o.connectArchive(ctx); err != nil {
		log.Printf("Warning: archive unavailable: %v", err)
		log.Printf("History will only be kept in memory")
	}

	if err := o.connectEventBus(); err != nil {
		log.Printf("Warning: NATS unavailable: %v", err)
		log.Printf("Events will not be published")
	}

	o.wireHooks()

	if err := o.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	if err := o.initializeServers(); err != nil {
		return fmt.Errorf("failed to initialize servers: %w", err)
	}

	log.Printf("Monitor Orchestrator started successfully")
	return nil
}

func (o *Orchestrator) initializeSources() error {
	if o.rankSource == nil {
		rank, err := source.NewRankSource(source.RankSourceConfig{
			Kind:    o.config.RankSource,
			BaseURL: o.config.RankAPIURL,
			APIKey:  o.config.RankAPIKey,
			Domain:  o.config.Domain,
			Timeout: o.config.FetchTimeout,
			Static:  o.config.StaticRanks,
		})
		if err != nil {
			return err
		}
		o.rankSource = rank
	}
	log.Printf("Rank source: %s", o.config.RankSource)

	if o.siteSource == nil {
		site, err := source.NewHTTPSiteSource(o.config.Domain, o.config.SiteSignalsURL, o.config.FetchTimeout)
		if err != nil {
			return err
		}
		o.siteSource = site
	}
	return nil
}

func (o *Orchestrator) initializeNotifiers() {
	o.notifier = notify.NewMulti()

	slack := notify.NewSlackNotifier(o.config.SlackBotToken, o.config.SlackChannelID, o.config.Domain)
	if slack.IsConfigured() {
		o.notifier.Add(slack)
		log.Printf("Slack notifications enabled for channel %s", o.config.SlackChannelID)
	} else {
		o.notifier.Add(notify.LogNotifier{})
		log.Printf("Slack not configured, alerts will only be logged")
	}
}

func (o *Orchestrator) connectTextGenerator(ctx context.Context) {
	if o.config.AIAPIKey == "" {
		log.Printf("AI_API_KEY not set, weekly reports will have no executive summary")
		return
	}

	gen, err := report.NewGenAITextGenerator(ctx, o.config.AIAPIKey, o.config.AIModel)
	if err != nil {
		log.Printf("Warning: text generator unavailable: %v", err)
		return
	}
	o.textGen = gen
	log.Printf("Text generator ready (model: %s)", o.config.AIModel)
}

func (o *Orchestrator) initializeCore() {
	o.store = ranking.NewStore()

	o.auditor = engine.NewEngine(o.config.Domain, o.siteSource, o.config.FetchTimeout)
	for _, c := range detector.DefaultChecks() {
		o.auditor.RegisterCheck(c)
	}

	o.alerts = alerting.NewManager(alerting.Thresholds{
		PositionDrop:        o.config.Thresholds.PositionDrop,
		TrafficDropPct:      o.config.Thresholds.TrafficDropPct,
		TechnicalScoreFloor: o.config.Thresholds.TechnicalScoreFloor,
	}, o.notifier)

	o.aggregator = dashboard.NewAggregator(o.config.Domain, o.store, o.auditor, o.alerts)
	o.aggregator.SetTrendLength(o.config.TrendLength)
	o.reports = report.NewGenerator(o.aggregator, o.textGen, o.config.FetchTimeout*4)
	o.scheduler = scheduler.New()
}

// connectRedis connects the hot-state snapshot and restores the last known
// records, alerts, audit and report.
func (o *Orchestrator) connectRedis(ctx context.Context) error {
	if o.config.RedisAddr == "" {
		log.Printf("REDIS_ADDR not set, hot-state snapshot disabled")
		return nil
	}

	log.Printf("Connecting to Redis at: %s (DB: %d)", o.config.RedisAddr, o.config.RedisDB)
	client, err := redis.NewClient(o.config.RedisAddr, o.config.RedisPassword, o.config.RedisDB, o.config.Domain)
	if err != nil {
		return err
	}
	o.redisClient = client
	log.Printf("Connected to Redis")

	o.restoreState(ctx)
	return nil
}

func (o *Orchestrator) restoreState(ctx context.Context) {
	if records, err := o.redisClient.LoadRecords(ctx); err != nil {
		log.Printf("Warning: failed to restore rankings: %v", err)
	} else if tracked := trackedRecords(records, o.config.Keywords); len(tracked) > 0 {
		o.store.Restore(tracked)
		log.Printf("Restored %d ranking records (%d no longer tracked)", len(tracked), len(records)-len(tracked))
	}

	if alerts, err := o.redisClient.LoadAlerts(ctx); err != nil {
		log.Printf("Warning: failed to restore alerts: %v", err)
	} else if n := o.alerts.Restore(alerts); n > 0 {
		log.Printf("Restored %d alerts", n)
	}

	if audit, err := o.redisClient.LoadLatestAudit(ctx); err != nil {
		log.Printf("Warning: failed to restore latest audit: %v", err)
	} else if o.auditor.Restore(audit) {
		log.Printf("Restored audit %s (score %d)", audit.ID, audit.Score)
	}

	if rpt, err := o.redisClient.LoadLatestReport(ctx); err != nil {
		log.Printf("Warning: failed to restore latest report: %v", err)
	} else if rpt != nil {
		o.reports.Restore(rpt)
		log.Printf("Restored weekly report %s", rpt.ID)
	}
}

// trackedRecords drops records for keywords that are no longer configured.
func trackedRecords(records []models.RankingRecord, keywords []string) []models.RankingRecord {
	wanted := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		wanted[k] = true
	}

	out := make([]models.RankingRecord, 0, len(records))
	for _, r := range records {
		if wanted[r.Keyword] {
			out = append(out, r)
		}
	}
	return out
}

func (o *Orchestrator) connectArchive(ctx context.Context) error {
	if o.config.ArchiveDriver == "" {
		log.Printf("ARCHIVE_DRIVER not set, long-term archive disabled")
		return nil
	}

	log.Printf("Opening %s archive", o.config.ArchiveDriver)
	arch, err := archive.New(ctx, o.config.ArchiveDriver, o.config.ArchiveDSN)
	if err != nil {
		return err
	}
	o.archive = arch
	log.Printf("Archive ready")
	return nil
}

func (o *Orchestrator) connectEventBus() error {
	if o.config.NatsURL == "" {
		log.Printf("NATS_URL not set, event bus disabled")
		return nil
	}

	log.Printf("Connecting to NATS at: %s", o.config.NatsURL)
	publisher, err := eventbus.NewPublisher(o.config.NatsURL)
	if err != nil {
		return err
	}
	o.publisher = publisher

	subscriber, err := eventbus.NewSubscriber(o.config.NatsURL, o.AlertService())
	if err != nil {
		return fmt.Errorf("subscriber: %w", err)
	}
	if err := subscriber.Start(); err != nil {
		subscriber.Close()
		return fmt.Errorf("subscriber: %w", err)
	}
	o.subscriber = subscriber

	log.Printf("Connected to NATS")
	return nil
}

// wireHooks fans engine output out to metrics and optional infrastructure.
func (o *Orchestrator) wireHooks() {
	o.alerts.OnCreated(func(alert models.Alert) {
		metrics.RecordAlert(alert)
		o.persistAlert(alert)

		if o.publisher != nil {
			if err := o.publisher.PublishAlert(alert); err != nil {
				log.Printf("Warning: failed to publish alert %s: %v", alert.ID, err)
			}
		}
	})

	o.scheduler.OnRun(metrics.ObserveTask)
}

func (o *Orchestrator) registerTasks() error {
	cfg := o.config

	rankingJob := scheduler.NewRankingJob(cfg.Keywords, cfg.Competitors, o.rankSource, o.store, o.alerts, cfg.FetchTimeout)
	rankingJob.SetConcurrency(cfg.RankingConcurrency)
	rankingJob.AfterTick(o.afterRankingTick)

	auditJob := scheduler.NewAuditJob(o.auditor, o.alerts)
	auditJob.AfterAudit(o.afterAudit)

	o.competitorJob = scheduler.NewCompetitorJob(cfg.Keywords, cfg.Competitors, o.rankSource, o.store, cfg.FetchTimeout)
	o.competitorJob.AfterScan(o.afterCompetitorScan)

	reportJob := scheduler.NewReportJob(o.reports)
	reportJob.AfterReport(o.afterReport)

	tasks := []struct {
		interval  time.Duration
		task      scheduler.Task
		immediate bool
	}{
		{cfg.RankingInterval, rankingJob, true},
		{cfg.AuditInterval, auditJob, true},
		{cfg.CompetitorInterval, o.competitorJob, len(cfg.Competitors) > 0},
		{cfg.ReportInterval, reportJob, false},
	}

	for _, t := range tasks {
		if err := o.scheduler.Every(t.interval, t.task, t.immediate); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) afterRankingTick(ctx context.Context, records []models.RankingRecord) {
	metrics.RecordRankings(records)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if o.redisClient != nil {
		if err := o.redisClient.SaveRecords(pctx, o.store.AllRecords()); err != nil {
			log.Printf("Warning: failed to snapshot rankings: %v", err)
		}
	}

	if o.archive != nil {
		if err := o.archive.AppendSamples(pctx, o.config.Domain, archive.LatestSamples(records)); err != nil {
			log.Printf("Warning: failed to archive samples: %v", err)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.PublishRankings(o.config.Domain, records); err != nil {
			log.Printf("Warning: failed to publish rankings: %v", err)
		}
	}
}

func (o *Orchestrator) afterAudit(ctx context.Context, result *models.AuditResult) {
	metrics.RecordAudit(result)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if o.redisClient != nil {
		if err := o.redisClient.SaveLatestAudit(pctx, result); err != nil {
			log.Printf("Warning: failed to snapshot audit: %v", err)
		}
	}

	if o.archive != nil {
		if err := o.archive.AppendAudit(pctx, result); err != nil {
			log.Printf("Warning: failed to archive audit: %v", err)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.PublishAudit(result); err != nil {
			log.Printf("Warning: failed to publish audit: %v", err)
		}
	}
}

func (o *Orchestrator) afterCompetitorScan(ctx context.Context, summaries []models.CompetitorSummary) {
	if o.redisClient != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := o.redisClient.SaveRecords(pctx, o.store.AllRecords()); err != nil {
			log.Printf("Warning: failed to snapshot competitor positions: %v", err)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.PublishCompetitors(o.config.Domain, summaries); err != nil {
			log.Printf("Warning: failed to publish competitor summaries: %v", err)
		}
	}
}

func (o *Orchestrator) afterReport(ctx context.Context, rpt *models.WeeklyReport) {
	if o.redisClient != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := o.redisClient.SaveLatestReport(pctx, rpt); err != nil {
			log.Printf("Warning: failed to snapshot report: %v", err)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.PublishReport(rpt); err != nil {
			log.Printf("Warning: failed to publish report: %v", err)
		}
	}
}

// persistAlert writes the current lifecycle state of an alert to Redis and
// the archive.
func (o *Orchestrator) persistAlert(alert models.Alert) {
	if o.redisClient == nil && o.archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if o.redisClient != nil {
		if err := o.redisClient.SaveAlert(ctx, alert); err != nil {
			log.Printf("Warning: failed to snapshot alert %s: %v", alert.ID, err)
		}
	}

	if o.archive != nil {
		if err := o.archive.SaveAlert(ctx, o.config.Domain, alert); err != nil {
			log.Printf("Warning: failed to archive alert %s: %v", alert.ID, err)
		}
	}
}

func (o *Orchestrator) initializeServers() error {
	o.httpServer = httpserver.NewServer(httpserver.Dependencies{
		Dashboard:    o.aggregator.Generate,
		Alerts:       o.AlertService(),
		Ranking:      o.store.GetRecord,
		LatestAudit:  o.auditor.Latest,
		LatestReport: o.reports.Latest,
		Competitors:  o.competitorJob.Latest,
		TaskStatus:   o.scheduler.Status,
		RunCycle:     o.RunCycle,
	})

	log.Printf("Initializing gRPC server on port: %s", o.config.GRPCPort)
	listener, err := net.Listen("tcp", ":"+o.config.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", o.config.GRPCPort, err)
	}
	o.grpcListener = listener
	o.grpcServer = grpcserver.NewHealthServer()

	o.healthServer = health.NewHealthServer()
	o.healthServer.AddProbe("rank_source", true, func(context.Context) error {
		if o.rankSource == nil {
			return errors.New("not configured")
		}
		return nil
	})
	if o.redisClient != nil {
		o.healthServer.AddProbe("redis", false, o.redisClient.Ping)
	}
	if o.publisher != nil {
		o.healthServer.AddProbe("nats", false, func(context.Context) error {
			if !o.publisher.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		})
	}

	return nil
}

// RunCycle runs an immediate ranking check followed by a technical audit.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	rankErr := o.scheduler.RunNow(ctx, scheduler.TaskRanking)
	auditErr := o.scheduler.RunNow(ctx, scheduler.TaskAudit)
	return errors.Join(rankErr, auditErr)
}

// Dashboard returns the current dashboard.
func (o *Orchestrator) Dashboard() models.Dashboard {
	return o.aggregator.Generate()
}

// Run starts the scheduler and all servers, then blocks until the context
// is cancelled or a server fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Printf("Starting servers...")

	errChan := make(chan error, 3)

	go func() {
		addr := ":" + o.config.HealthPort
		log.Printf("Health check server listening on port %s", o.config.HealthPort)
		if err := o.healthServer.Start(addr); err != nil {
			errChan <- fmt.Errorf("health check server error: %w", err)
		}
	}()

	go func() {
		if err := o.grpcServer.Serve(o.grpcListener); err != nil {
			errChan <- err
		}
	}()

	go func() {
		if err := o.httpServer.Start(":" + o.config.HTTPPort); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if err := o.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	o.grpcServer.SetServing(true)

	log.Printf("Monitor ready - tracking %d keywords for %s", len(o.config.Keywords), o.config.Domain)

	select {
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops tasks and servers and closes all connections.
func (o *Orchestrator) Stop() error {
	log.Printf("Stopping Orchestrator...")

	if o.grpcServer != nil {
		o.grpcServer.SetServing(false)
	}

	if o.scheduler != nil {
		o.scheduler.Stop()
	}

	if o.httpServer != nil {
		if err := o.httpServer.Stop(); err != nil {
			log.Printf("Error stopping HTTP server: %v", err)
		}
	}

	if o.grpcServer != nil {
		log.Printf("Stopping gRPC server...")
		o.grpcServer.Stop()
	}
	if o.grpcListener != nil {
		// Serve closes it when running; close here in case it never started.
		_ = o.grpcListener.Close()
	}

	if o.healthServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.healthServer.Shutdown(ctx); err != nil {
			log.Printf("Error stopping health server: %v", err)
		}
	}

	if o.subscriber != nil {
		o.subscriber.Close()
	}
	if o.publisher != nil {
		o.publisher.Close()
	}

	if o.archive != nil {
		if err := o.archive.Close(); err != nil {
			log.Printf("Error closing archive: %v", err)
		}
	}

	if o.redisClient != nil {
		if err := o.redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}

	log.Printf("Orchestrator stopped successfully")
	return nil
}
