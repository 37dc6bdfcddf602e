package detector

import (
	"context"
	"fmt"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

type PerformanceCheck struct {
	criticalBelow     int
	warningBelow      int
	unmeasuredPenalty int
}

func NewPerformanceCheck() *PerformanceCheck {
	return &PerformanceCheck{
		criticalBelow:     70,
		warningBelow:      90,
		unmeasuredPenalty: 30,
	}
}

func (c *PerformanceCheck) Name() string {
	return "page_performance"
}

func (c *PerformanceCheck) Category() models.AuditCategory {
	return models.CategoryPerformance
}

func (c *PerformanceCheck) Run(ctx context.Context, target Target) models.CategoryResult {
	score, err := target.Site.PerformanceScore(ctx)
	return c.Evaluate(score, err)
}

// Evaluate maps a 0-100 performance score to a category result. The penalty
// is the distance from a perfect score, so the category score tracks the
// measured one.
func (c *PerformanceCheck) Evaluate(score int, fetchErr error) models.CategoryResult {
	result := newResult(c.Category())

	if fetchErr != nil {
		penalise(&result, c.unmeasuredPenalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "performance-unmeasured"),
			Severity:          models.IssueCritical,
			Title:             "Performance score could not be measured",
			Impact:            models.LevelHigh,
			Effort:            models.LevelMedium,
			Priority:          6,
			Recommendation:    "Check that the performance audit provider can reach the site and that the homepage renders without errors.",
			EstimatedFixHours: 1,
		})
		return result
	}

	score = clamp(score)

	switch {
	case score < c.criticalBelow:
		penalise(&result, maxScore-score, models.TechnicalIssue{
			ID:                issueID(c.Category(), "performance-poor"),
			Severity:          models.IssueCritical,
			Title:             fmt.Sprintf("Poor page performance score (%d)", score),
			Impact:            models.LevelHigh,
			Effort:            models.LevelHigh,
			Priority:          9,
			Recommendation:    "Reduce render-blocking resources, compress and lazy-load images, and cut JavaScript execution time on key landing pages.",
			EstimatedFixHours: 16,
		})
	case score < c.warningBelow:
		penalise(&result, maxScore-score, models.TechnicalIssue{
			ID:                issueID(c.Category(), "performance-needs-improvement"),
			Severity:          models.IssueWarning,
			Title:             fmt.Sprintf("Page performance needs improvement (%d)", score),
			Impact:            models.LevelMedium,
			Effort:            models.LevelMedium,
			Priority:          5,
			Recommendation:    "Address the largest contentful paint and layout shift opportunities reported by the audit.",
			EstimatedFixHours: 8,
		})
	}

	return result
}

// SetThresholds overrides the critical and warning score boundaries.
func (c *PerformanceCheck) SetThresholds(criticalBelow, warningBelow int) {
	c.criticalBelow = criticalBelow
	c.warningBelow = warningBelow
}
