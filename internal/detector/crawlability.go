package detector

import (
	"bufio"
	"context"
	"strings"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

type CrawlabilityCheck struct {
	missingPenalty   int
	blockAllPenalty  int
	noSitemapPenalty int
}

func NewCrawlabilityCheck() *CrawlabilityCheck {
	return &CrawlabilityCheck{
		missingPenalty:   15,
		blockAllPenalty:  25,
		noSitemapPenalty: 5,
	}
}

func (c *CrawlabilityCheck) Name() string {
	return "robots_txt"
}

func (c *CrawlabilityCheck) Category() models.AuditCategory {
	return models.CategoryCrawlability
}

func (c *CrawlabilityCheck) Run(ctx context.Context, target Target) models.CategoryResult {
	robots, err := target.Site.RobotsTxt(ctx)
	return c.Evaluate(robots, err)
}

// Evaluate scores robots.txt content. A fetch error means the file is
// missing or inaccessible.
func (c *CrawlabilityCheck) Evaluate(robots string, fetchErr error) models.CategoryResult {
	result := newResult(c.Category())

	if fetchErr != nil {
		penalise(&result, c.missingPenalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "robots-missing"),
			Severity:          models.IssueCritical,
			Title:             "robots.txt is missing or inaccessible",
			Impact:            models.LevelHigh,
			Effort:            models.LevelLow,
			Priority:          8,
			Recommendation:    "Serve a robots.txt at the site root that allows crawling of public pages and references the sitemap.",
			EstimatedFixHours: 0.5,
		})
		return result
	}

	if disallowsEverything(robots) {
		penalise(&result, c.blockAllPenalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "robots-blocks-all"),
			Severity:          models.IssueCritical,
			Title:             "robots.txt blocks all crawlers from the entire site",
			Impact:            models.LevelHigh,
			Effort:            models.LevelLow,
			Priority:          10,
			Recommendation:    "Remove the 'Disallow: /' rule for 'User-agent: *' unless the site is intentionally hidden from search engines.",
			EstimatedFixHours: 0.25,
		})
	}

	if !strings.Contains(strings.ToLower(robots), "sitemap:") {
		penalise(&result, c.noSitemapPenalty, models.TechnicalIssue{
			ID:                issueID(c.Category(), "robots-no-sitemap"),
			Severity:          models.IssueRecommendation,
			Title:             "robots.txt does not reference a sitemap",
			Impact:            models.LevelLow,
			Effort:            models.LevelLow,
			Priority:          3,
			Recommendation:    "Add a 'Sitemap: https://<domain>/sitemap.xml' line to robots.txt.",
			EstimatedFixHours: 0.25,
		})
	}

	return result
}

// disallowsEverything reports whether the wildcard user-agent group contains "Disallow: /".
func disallowsEverything(robots string) bool {
	scanner := bufio.NewScanner(strings.NewReader(robots))

	inWildcard := false
	groupOpen := false // consecutive user-agent lines share a group

	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			if !groupOpen {
				inWildcard = false
				groupOpen = true
			}
			if value == "*" {
				inWildcard = true
			}
		default:
			groupOpen = false
			if field == "disallow" && inWildcard && value == "/" {
				return true
			}
		}
	}

	return false
}
