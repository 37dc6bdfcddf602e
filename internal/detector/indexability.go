package detector

import (
	"context"
	"strings"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

type IndexabilityCheck struct {
	missingPenalty int
	emptyPenalty   int
}

func NewIndexabilityCheck() *IndexabilityCheck {
	return &IndexabilityCheck{
		missingPenalty: 20,
		emptyPenalty:   10,
	}
}

func (c *IndexabilityCheck) Name() string {
	return "sitemap"
}

func (c *IndexabilityCheck) Category() models.AuditCategory {
	return models.CategoryIndexability
}

func (c *IndexabilityCheck) Run(ctx context.Context, target Target) models.CategoryResult {
	sitemap, err := target.Site.Sitemap(ctx)
	return c.Evaluate(sitemap, err)
}

func (c *IndexabilityCheck) Evaluate(sitemap string, fetchErr error) models.CategoryResult {
	result := newResult(c.Category())

	if fetchErr != nil {
		penalise(&result, c.missingPenalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "sitemap-missing"),
			Severity:          models.IssueCritical,
			Title:             "XML sitemap is missing or inaccessible",
			Impact:            models.LevelHigh,
			Effort:            models.LevelLow,
			Priority:          7,
			Recommendation:    "Generate a sitemap.xml listing every indexable URL and submit it in Search Console.",
			EstimatedFixHours: 2,
		})
		return result
	}

	if strings.Count(sitemap, "<loc>") == 0 {
		penalise(&result, c.emptyPenalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "sitemap-empty"),
			Severity:          models.IssueWarning,
			Title:             "XML sitemap contains no URLs",
			Impact:            models.LevelMedium,
			Effort:            models.LevelMedium,
			Priority:          5,
			Recommendation:    "Populate the sitemap with <loc> entries for canonical pages and keep it in sync with publishing.",
			EstimatedFixHours: 2,
		})
	}

	return result
}
