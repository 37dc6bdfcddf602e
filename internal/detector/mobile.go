package detector

import (
	"context"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

type MobileCheck struct {
	penalty int
}

func NewMobileCheck() *MobileCheck {
	return &MobileCheck{
		penalty: 25,
	}
}

func (c *MobileCheck) Name() string {
	return "mobile_usability"
}

func (c *MobileCheck) Category() models.AuditCategory {
	return models.CategoryMobile
}

func (c *MobileCheck) Run(ctx context.Context, target Target) models.CategoryResult {
	usable, err := target.Site.MobileUsable(ctx)
	return c.Evaluate(usable, err)
}

func (c *MobileCheck) Evaluate(usable bool, fetchErr error) models.CategoryResult {
	result := newResult(c.Category())

	if fetchErr != nil {
		penalise(&result, c.penalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "mobile-unmeasured"),
			Severity:          models.IssueCritical,
			Title:             "Mobile usability could not be verified",
			Impact:            models.LevelMedium,
			Effort:            models.LevelLow,
			Priority:          6,
			Recommendation:    "Confirm the mobile usability provider can fetch the site with a mobile user agent.",
			EstimatedFixHours: 1,
		})
		return result
	}

	if !usable {
		penalise(&result, c.penalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "mobile-unfriendly"),
			Severity:          models.IssueCritical,
			Title:             "Site is not mobile friendly",
			Impact:            models.LevelHigh,
			Effort:            models.LevelHigh,
			Priority:          9,
			Recommendation:    "Add a responsive viewport meta tag, size tap targets for touch, and avoid horizontal scrolling on small screens.",
			EstimatedFixHours: 24,
		})
	}

	return result
}
