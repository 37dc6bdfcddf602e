// Package detector holds the technical audit checks. Each check gathers its
// input from the site source and then scores it with a pure evaluation
// function: start at 100, subtract a fixed penalty per problem, clamp at 0.
package detector

import (
	"context"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
)

// Target is what a check audits.
type Target struct {
	Domain string
	Site   source.SiteSource
}

// Check is one audit category. Run must always return a result: an
// unreachable data source is reported as an issue, never as an error.
type Check interface {
	Name() string
	Category() models.AuditCategory
	Run(ctx context.Context, target Target) models.CategoryResult
}

const maxScore = 100

// DefaultChecks returns one check per audit category.
func DefaultChecks() []Check {
	return []Check{
		NewCrawlabilityCheck(),
		NewIndexabilityCheck(),
		NewPerformanceCheck(),
		NewMobileCheck(),
		NewStructuredDataCheck(),
		NewSecurityCheck(),
	}
}

func issueID(category models.AuditCategory, problem string) string {
	return string(category) + "-" + problem
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func newResult(category models.AuditCategory) models.CategoryResult {
	return models.CategoryResult{
		Category: category,
		Score:    maxScore,
		Issues:   []models.TechnicalIssue{},
	}
}

// penalise subtracts the penalty and records the issue.
func penalise(result *models.CategoryResult, penalty int, issue models.TechnicalIssue) {
	result.Score = clamp(result.Score - penalty)
	issue.Category = result.Category
	result.Issues = append(result.Issues, issue)
}
