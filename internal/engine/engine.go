package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/detector"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Engine runs the registered audit checks against one site and keeps an
// append-only history of results.
type Engine struct {
	domain       string
	site         source.SiteSource
	checkTimeout time.Duration

	checks  []detector.Check
	history []*models.AuditResult
	mu      sync.RWMutex

	now func() time.Time
}

// Create a new audit engine for a domain
func NewEngine(domain string, site source.SiteSource, checkTimeout time.Duration) *Engine {
	return &Engine{
		domain:       domain,
		site:         site,
		checkTimeout: checkTimeout,
		checks:       make([]detector.Check, 0),
		history:      make([]*models.AuditResult, 0),
		now:          time.Now,
	}
}

// Add a check to the engine
func (e *Engine) RegisterCheck(c detector.Check) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.checks = append(e.checks, c)
	log.Printf("Registered check: %s (category: %s)", c.Name(), c.Category())
}

// Returns list of registered checks
func (e *Engine) GetRegisteredChecks() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, len(e.checks))
	for i, c := range e.checks {
		names[i] = c.Name()
	}
	return names
}

// RunFullAudit runs every check concurrently and appends the composite to
// the history. A failing category never aborts the audit. When ctx is
// cancelled before the checks finish nothing is recorded and ctx.Err() is
// returned.
func (e *Engine) RunFullAudit(ctx context.Context) (*models.AuditResult, error) {
	e.mu.RLock()
	checks := make([]detector.Check, len(e.checks))
	copy(checks, e.checks)
	e.mu.RUnlock()

	target := detector.Target{Domain: e.domain, Site: e.site}
	results := make([]models.CategoryResult, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			results[i] = e.runCheck(ctx, c, target)
			return nil
		})
	}
	_ = g.Wait()

	// Checks abandoned at shutdown look unreachable; keep them out of history.
	if err := ctx.Err(); err != nil {
		log.Printf("[Audit] %s abandoned: %v", e.domain, err)
		return nil, err
	}

	result := models.NewAuditResult(uuid.NewString(), e.domain, e.now(), results)

	e.mu.Lock()
	e.history = append(e.history, result)
	e.mu.Unlock()

	log.Printf("[Audit] %s scored %d (%d critical, %d warnings, %d recommendations)",
		e.domain, result.Score, len(result.CriticalIssues), len(result.Warnings), len(result.Recommendations))

	return result, nil
}

// runCheck bounds a check with the per-call timeout and converts a panic in
// the check into a zero score so the remaining categories still report.
func (e *Engine) runCheck(ctx context.Context, c detector.Check, target detector.Target) (result models.CategoryResult) {
	if e.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.checkTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Audit] Check %s panicked: %v", c.Name(), r)
			result = models.CategoryResult{
				Category: c.Category(),
				Score:    0,
				Issues: []models.TechnicalIssue{{
					ID:             string(c.Category()) + "-check-failed",
					Severity:       models.IssueCritical,
					Category:       c.Category(),
					Title:          "Audit check failed to run",
					Impact:         models.LevelMedium,
					Effort:         models.LevelLow,
					Priority:       5,
					Recommendation: "Inspect the monitor logs for the failing check.",
				}},
			}
		}
	}()

	result = c.Run(ctx, target)
	if result.Issues == nil {
		result.Issues = []models.TechnicalIssue{}
	}
	return result
}

// Latest returns the most recent audit result.
func (e *Engine) Latest() (*models.AuditResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.history) == 0 {
		return nil, false
	}
	return e.history[len(e.history)-1], true
}

// History returns all audit results, oldest first.
func (e *Engine) History() []*models.AuditResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*models.AuditResult, len(e.history))
	copy(out, e.history)
	return out
}

// Restore seeds the history with a persisted result, typically the latest
// audit from the hot-state snapshot. Results older than the newest known
// audit are ignored.
func (e *Engine) Restore(result *models.AuditResult) bool {
	if result == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if n := len(e.history); n > 0 && !result.Timestamp.After(e.history[n-1].Timestamp) {
		return false
	}
	e.history = append(e.history, result)
	return true
}
