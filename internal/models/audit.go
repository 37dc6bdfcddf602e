package models

import "time"

// AuditCategory groups technical checks.
type AuditCategory string

const (
	CategoryCrawlability   AuditCategory = "crawlability"
	CategoryIndexability   AuditCategory = "indexability"
	CategoryPerformance    AuditCategory = "performance"
	CategoryMobile         AuditCategory = "mobile_usability"
	CategoryStructuredData AuditCategory = "structured_data"
	CategorySecurity       AuditCategory = "security"
)

// AllCategories lists the audit categories in reporting order.
var AllCategories = []AuditCategory{
	CategoryCrawlability,
	CategoryIndexability,
	CategoryPerformance,
	CategoryMobile,
	CategoryStructuredData,
	CategorySecurity,
}

// IssueSeverity classifies a technical issue.
type IssueSeverity string

const (
	IssueCritical       IssueSeverity = "critical"
	IssueWarning        IssueSeverity = "warning"
	IssueRecommendation IssueSeverity = "recommendation"
)

// Level is used for both impact and effort ratings.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// TechnicalIssue is a problem found by one audit check. Issues are produced
// fresh on every run and never diffed against earlier audits.
type TechnicalIssue struct {
	ID                string        `json:"id"`
	Severity          IssueSeverity `json:"severity"`
	Category          AuditCategory `json:"category"`
	Title             string        `json:"title"`
	Impact            Level         `json:"impact"`
	Effort            Level         `json:"effort"`
	Priority          int           `json:"priority"` // 1..10, higher is more urgent
	Recommendation    string        `json:"recommendation"`
	EstimatedFixHours float64       `json:"estimated_fix_hours"`
}

// CategoryResult is the outcome of one audit check.
type CategoryResult struct {
	Category AuditCategory    `json:"category"`
	Score    int              `json:"score"`
	Issues   []TechnicalIssue `json:"issues"`
}

// AuditResult is the composite of all category checks for one run.
type AuditResult struct {
	ID              string           `json:"id"`
	Domain          string           `json:"domain"`
	Timestamp       time.Time        `json:"timestamp"`
	Score           int              `json:"score"`
	Categories      []CategoryResult `json:"categories"`
	CriticalIssues  []TechnicalIssue `json:"critical_issues"`
	Warnings        []TechnicalIssue `json:"warnings"`
	Recommendations []TechnicalIssue `json:"recommendations"`
}

// NewAuditResult builds the composite from category results. The score is the
// unweighted mean of category scores, rounded down.
func NewAuditResult(id, domain string, timestamp time.Time, categories []CategoryResult) *AuditResult {
	result := &AuditResult{
		ID:              id,
		Domain:          domain,
		Timestamp:       timestamp,
		Categories:      categories,
		CriticalIssues:  []TechnicalIssue{},
		Warnings:        []TechnicalIssue{},
		Recommendations: []TechnicalIssue{},
	}

	if len(categories) == 0 {
		return result
	}

	total := 0
	for _, c := range categories {
		total += c.Score
		for _, issue := range c.Issues {
			switch issue.Severity {
			case IssueCritical:
				result.CriticalIssues = append(result.CriticalIssues, issue)
			case IssueWarning:
				result.Warnings = append(result.Warnings, issue)
			default:
				result.Recommendations = append(result.Recommendations, issue)
			}
		}
	}
	result.Score = total / len(categories)

	return result
}

// Category returns the result for a single category.
func (a *AuditResult) Category(category AuditCategory) (CategoryResult, bool) {
	for _, c := range a.Categories {
		if c.Category == category {
			return c, true
		}
	}
	return CategoryResult{}, false
}

// IssueCount returns the total number of issues across categories.
func (a *AuditResult) IssueCount() int {
	return len(a.CriticalIssues) + len(a.Warnings) + len(a.Recommendations)
}
