package detector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/detector"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source/sourcetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

func TestCrawlabilityCheck_MissingRobots(t *testing.T) {
	check := detector.NewCrawlabilityCheck()

	result := check.Evaluate("", errDown)

	assert.Equal(t, models.CategoryCrawlability, result.Category)
	assert.Equal(t, 85, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueCritical, result.Issues[0].Severity)
	assert.Equal(t, models.LevelHigh, result.Issues[0].Impact)
	assert.Equal(t, models.CategoryCrawlability, result.Issues[0].Category)
}

func TestCrawlabilityCheck_Healthy(t *testing.T) {
	check := detector.NewCrawlabilityCheck()

	result := check.Evaluate("User-agent: *\nDisallow: /admin\nSitemap: https://example.com/sitemap.xml", nil)

	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Issues)
}

func TestCrawlabilityCheck_BlocksEverything(t *testing.T) {
	check := detector.NewCrawlabilityCheck()

	result := check.Evaluate("User-agent: *\nDisallow: /\n", nil)

	assert.Equal(t, 70, result.Score, "blocked (-25) and no sitemap reference (-5)")
	require.Len(t, result.Issues, 2)
	assert.Equal(t, "crawlability-robots-blocks-all", result.Issues[0].ID)
	assert.Equal(t, models.IssueRecommendation, result.Issues[1].Severity)
}

func TestCrawlabilityCheck_DisallowForOtherAgentOnly(t *testing.T) {
	check := detector.NewCrawlabilityCheck()

	robots := "User-agent: BadBot\nDisallow: /\n\nUser-agent: *\nAllow: /\nSitemap: https://example.com/s.xml"
	result := check.Evaluate(robots, nil)

	assert.Equal(t, 100, result.Score)
}

func TestIndexabilityCheck(t *testing.T) {
	check := detector.NewIndexabilityCheck()

	missing := check.Evaluate("", errDown)
	assert.Equal(t, 80, missing.Score)
	assert.Equal(t, models.IssueCritical, missing.Issues[0].Severity)

	empty := check.Evaluate("<urlset></urlset>", nil)
	assert.Equal(t, 90, empty.Score)
	assert.Equal(t, models.IssueWarning, empty.Issues[0].Severity)

	healthy := check.Evaluate("<urlset><url><loc>https://example.com/</loc></url></urlset>", nil)
	assert.Equal(t, 100, healthy.Score)
}

func TestPerformanceCheck_Severities(t *testing.T) {
	check := detector.NewPerformanceCheck()

	poor := check.Evaluate(55, nil)
	assert.Equal(t, 55, poor.Score)
	require.Len(t, poor.Issues, 1)
	assert.Equal(t, models.IssueCritical, poor.Issues[0].Severity)

	average := check.Evaluate(80, nil)
	assert.Equal(t, 80, average.Score)
	assert.Equal(t, models.IssueWarning, average.Issues[0].Severity)

	good := check.Evaluate(90, nil)
	assert.Equal(t, 100, good.Score)
	assert.Empty(t, good.Issues)

	unmeasured := check.Evaluate(0, errDown)
	assert.Equal(t, 70, unmeasured.Score)
	assert.Equal(t, models.IssueCritical, unmeasured.Issues[0].Severity)
}

func TestPerformanceCheck_CustomThresholds(t *testing.T) {
	check := detector.NewPerformanceCheck()
	check.SetThresholds(50, 60)

	result := check.Evaluate(55, nil)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueWarning, result.Issues[0].Severity)
}

func TestMobileCheck(t *testing.T) {
	check := detector.NewMobileCheck()

	assert.Equal(t, 100, check.Evaluate(true, nil).Score)

	unfriendly := check.Evaluate(false, nil)
	assert.Equal(t, 75, unfriendly.Score)
	assert.Equal(t, models.LevelHigh, unfriendly.Issues[0].Impact)

	unknown := check.Evaluate(false, errDown)
	assert.Equal(t, 75, unknown.Score)
	assert.Equal(t, models.LevelMedium, unknown.Issues[0].Impact)
}

func TestStructuredDataCheck(t *testing.T) {
	check := detector.NewStructuredDataCheck()

	assert.Equal(t, 100, check.Evaluate(true, nil).Score)

	missing := check.Evaluate(false, nil)
	assert.Equal(t, 85, missing.Score)
	assert.Equal(t, models.IssueWarning, missing.Issues[0].Severity)

	unknown := check.Evaluate(false, errDown)
	assert.Equal(t, models.IssueCritical, unknown.Issues[0].Severity)
}

func TestSecurityCheck_UsesDomainScheme(t *testing.T) {
	check := detector.NewSecurityCheck()
	site := sourcetest.HealthySite()

	secure := check.Run(context.Background(), detector.Target{Domain: "https://example.com", Site: site})
	assert.Equal(t, 100, secure.Score)

	insecure := check.Run(context.Background(), detector.Target{Domain: "http://example.com", Site: site})
	assert.Equal(t, 70, insecure.Score)
	require.Len(t, insecure.Issues, 1)
	assert.Equal(t, models.IssueCritical, insecure.Issues[0].Severity)

	assert.Equal(t, 0, site.Calls, "security check never calls the site source")
}

func TestChecks_RunAgainstUnreachableSite(t *testing.T) {
	site := &sourcetest.FakeSite{}
	target := detector.Target{Domain: "https://example.com", Site: site}

	for _, check := range detector.DefaultChecks() {
		result := check.Run(context.Background(), target)

		assert.Equal(t, check.Category(), result.Category)
		assert.GreaterOrEqual(t, result.Score, 0)
		assert.LessOrEqual(t, result.Score, 100)
		if check.Category() != models.CategorySecurity {
			assert.NotEmpty(t, result.Issues, "%s should report unreachability", check.Name())
		}
	}
}

func TestDefaultChecks_CoverEveryCategory(t *testing.T) {
	seen := map[models.AuditCategory]bool{}
	for _, check := range detector.DefaultChecks() {
		seen[check.Category()] = true
	}

	for _, category := range models.AllCategories {
		assert.True(t, seen[category], "missing check for %s", category)
	}
}

func TestSourceErrorsAreUnreachable(t *testing.T) {
	site := &sourcetest.FakeSite{}
	_, err := site.RobotsTxt(context.Background())
	assert.True(t, errors.Is(err, source.ErrUnreachable))
}
