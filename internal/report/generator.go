// Package report composes the periodic SEO report from the dashboard.
package report

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/google/uuid"
)

// TextGenerator is the opaque language-model capability used to draft the
// executive summary.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// DashboardSource produces the current dashboard.
type DashboardSource interface {
	Generate() models.Dashboard
}

// Generator builds weekly reports and keeps the most recent one.
type Generator struct {
	dashboards DashboardSource
	text       TextGenerator
	timeout    time.Duration

	mu     sync.RWMutex
	latest *models.WeeklyReport
}

// NewGenerator creates a report generator. text may be nil, in which case
// reports carry no executive summary.
func NewGenerator(dashboards DashboardSource, text TextGenerator, timeout time.Duration) *Generator {
	return &Generator{
		dashboards: dashboards,
		text:       text,
		timeout:    timeout,
	}
}

// Build composes a report from the current dashboard. A failing text
// generator only drops the summary.
func (g *Generator) Build(ctx context.Context) (*models.WeeklyReport, error) {
	if g.dashboards == nil {
		return nil, fmt.Errorf("no dashboard source configured")
	}

	d := g.dashboards.Generate()

	report := &models.WeeklyReport{
		ID:          uuid.NewString(),
		Domain:      d.Domain,
		GeneratedAt: d.GeneratedAt,
		Overview:    d.Overview,
		TopMovers:   d.TopMovers,
		OpenAlerts:  len(d.OpenAlerts),
		NextActions: d.NextActions,
	}
	for _, a := range d.OpenAlerts {
		if a.Severity == models.SeverityCritical {
			report.CriticalAlerts++
		}
	}

	if g.text != nil {
		genCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			genCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		summary, err := g.text.GenerateText(genCtx, BuildPrompt(report))
		if err != nil {
			log.Printf("[Report] Executive summary unavailable: %v", err)
		} else {
			report.ExecutiveSummary = summary
		}
	}

	g.mu.Lock()
	g.latest = report
	g.mu.Unlock()

	log.Printf("[Report] Built weekly report %s for %s", report.ID, report.Domain)
	return report, nil
}

// Latest returns the most recently built report.
func (g *Generator) Latest() (*models.WeeklyReport, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latest, g.latest != nil
}

// Restore sets the latest report, e.g. from a persisted snapshot.
func (g *Generator) Restore(report *models.WeeklyReport) {
	if report == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest = report
}

// BuildPrompt renders the report facts into a prompt for the summary.
func BuildPrompt(r *models.WeeklyReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a short executive summary (at most 5 sentences) of this week's SEO status for %s.\n", r.Domain)
	b.WriteString("Be factual and only use the numbers below.\n\n")

	fmt.Fprintf(&b, "Tracked keywords: %d\n", r.Overview.TotalKeywords)
	fmt.Fprintf(&b, "Average position: %.1f\n", r.Overview.AveragePosition)
	fmt.Fprintf(&b, "Estimated monthly traffic: %.0f\n", r.Overview.TotalTraffic)
	fmt.Fprintf(&b, "Visibility score: %.1f\n", r.Overview.VisibilityScore)
	fmt.Fprintf(&b, "Technical score: %d/100\n", r.Overview.TechnicalScore)
	fmt.Fprintf(&b, "Open alerts: %d (%d critical)\n", r.OpenAlerts, r.CriticalAlerts)

	if len(r.TopMovers.Gainers) > 0 {
		b.WriteString("\nBiggest gains:\n")
		for _, m := range r.TopMovers.Gainers {
			fmt.Fprintf(&b, "- %s: %d -> %d\n", m.Keyword, m.PreviousPosition, m.CurrentPosition)
		}
	}
	if len(r.TopMovers.Losers) > 0 {
		b.WriteString("\nBiggest losses:\n")
		for _, m := range r.TopMovers.Losers {
			fmt.Fprintf(&b, "- %s: %d -> %d\n", m.Keyword, m.PreviousPosition, m.CurrentPosition)
		}
	}
	if len(r.NextActions) > 0 {
		b.WriteString("\nRecommended next actions:\n")
		for _, a := range r.NextActions {
			fmt.Fprintf(&b, "- %s\n", a.Title)
		}
	}

	return b.String()
}
