package detector

import (
	"context"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

type StructuredDataCheck struct {
	penalty int
}

func NewStructuredDataCheck() *StructuredDataCheck {
	return &StructuredDataCheck{
		penalty: 15,
	}
}

func (c *StructuredDataCheck) Name() string {
	return "structured_data"
}

func (c *StructuredDataCheck) Category() models.AuditCategory {
	return models.CategoryStructuredData
}

func (c *StructuredDataCheck) Run(ctx context.Context, target Target) models.CategoryResult {
	present, err := target.Site.StructuredData(ctx)
	return c.Evaluate(present, err)
}

func (c *StructuredDataCheck) Evaluate(present bool, fetchErr error) models.CategoryResult {
	result := newResult(c.Category())

	if fetchErr != nil {
		penalise(&result, c.penalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "structured-data-unmeasured"),
			Severity:          models.IssueCritical,
			Title:             "Structured data could not be inspected",
			Impact:            models.LevelMedium,
			Effort:            models.LevelLow,
			Priority:          4,
			Recommendation:    "Make sure the structured data provider can fetch and parse the homepage.",
			EstimatedFixHours: 1,
		})
		return result
	}

	if !present {
		penalise(&result, c.penalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "structured-data-missing"),
			Severity:          models.IssueWarning,
			Title:             "No structured data found",
			Impact:            models.LevelMedium,
			Effort:            models.LevelMedium,
			Priority:          4,
			Recommendation:    "Add JSON-LD markup (Organization, Product, Article or FAQ as appropriate) to qualify for rich results.",
			EstimatedFixHours: 6,
		})
	}

	return result
}
