package detector

import (
	"context"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
)

type SecurityCheck struct {
	noHTTPSPenalty int
}

func NewSecurityCheck() *SecurityCheck {
	return &SecurityCheck{
		noHTTPSPenalty: 30,
	}
}

func (c *SecurityCheck) Name() string {
	return "https"
}

func (c *SecurityCheck) Category() models.AuditCategory {
	return models.CategorySecurity
}

// Run derives the HTTPS flag from the configured domain; it never calls out.
func (c *SecurityCheck) Run(_ context.Context, target Target) models.CategoryResult {
	return c.Evaluate(source.IsHTTPS(target.Domain))
}

func (c *SecurityCheck) Evaluate(https bool) models.CategoryResult {
	result := newResult(c.Category())

	if !https {
		penalise(&result, c.noHTTPSPenalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "no-https"),
			Severity:          models.IssueCritical,
			Title:             "Site is not served over HTTPS",
			Impact:            models.LevelHigh,
			Effort:            models.LevelMedium,
			Priority:          10,
			Recommendation:    "Install a TLS certificate, redirect all HTTP traffic to HTTPS with 301s, and update canonical URLs.",
			EstimatedFixHours: 4,
		})
	}

	return result
}
