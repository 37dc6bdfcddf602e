// Package sourcetest provides in-memory rank and site sources for tests.
package sourcetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
)

// FakeSite is a SiteSource with fixed answers. A nil pointer field or a
// non-nil error field makes the corresponding signal unreachable.
type FakeSite struct {
	Robots      *string
	SitemapXML  *string
	Performance *int
	Mobile      *bool
	Structured  *bool

	mu    sync.Mutex
	Calls int
}

// HealthySite returns a site that passes every check.
func HealthySite() *FakeSite {
	robots := "User-agent: *\nAllow: /\nSitemap: https://example.com/sitemap.xml\n"
	sitemap := "<urlset><url><loc>https://example.com/</loc></url></urlset>"
	perf := 95
	mobile := true
	structured := true
	return &FakeSite{Robots: &robots, SitemapXML: &sitemap, Performance: &perf, Mobile: &mobile, Structured: &structured}
}

func unreachable(signal string) error {
	return fmt.Errorf("%s: %w", signal, source.ErrUnreachable)
}

func (f *FakeSite) count() {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
}

func (f *FakeSite) RobotsTxt(context.Context) (string, error) {
	f.count()
	if f.Robots == nil {
		return "", unreachable("robots.txt")
	}
	return *f.Robots, nil
}

func (f *FakeSite) Sitemap(context.Context) (string, error) {
	f.count()
	if f.SitemapXML == nil {
		return "", unreachable("sitemap")
	}
	return *f.SitemapXML, nil
}

func (f *FakeSite) PerformanceScore(context.Context) (int, error) {
	f.count()
	if f.Performance == nil {
		return 0, unreachable("performance")
	}
	return *f.Performance, nil
}

func (f *FakeSite) MobileUsable(context.Context) (bool, error) {
	f.count()
	if f.Mobile == nil {
		return false, unreachable("mobile")
	}
	return *f.Mobile, nil
}

func (f *FakeSite) StructuredData(context.Context) (bool, error) {
	f.count()
	if f.Structured == nil {
		return false, unreachable("structured data")
	}
	return *f.Structured, nil
}

// FakeRank is a RankSource backed by a mutable table. Keywords listed in
// Failing return an unreachable error.
type FakeRank struct {
	mu          sync.Mutex
	positions   map[string]source.RankResult
	competitors map[string][]models.CompetitorPosition
	failing     map[string]bool
}

func NewFakeRank() *FakeRank {
	return &FakeRank{
		positions:   make(map[string]source.RankResult),
		competitors: make(map[string][]models.CompetitorPosition),
		failing:     make(map[string]bool),
	}
}

func (f *FakeRank) Set(keyword string, position, searchVolume int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[keyword] = source.RankResult{
		Position:     position,
		URL:          "https://example.com/" + keyword,
		SearchVolume: searchVolume,
	}
}

func (f *FakeRank) SetCompetitors(keyword string, competitors []models.CompetitorPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.competitors[keyword] = competitors
}

func (f *FakeRank) Fail(keyword string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[keyword] = failing
}

func (f *FakeRank) FetchPosition(_ context.Context, keyword string) (source.RankResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[keyword] {
		return source.RankResult{}, unreachable(keyword)
	}
	result, ok := f.positions[keyword]
	if !ok {
		return source.RankResult{}, fmt.Errorf("%w: %s", source.ErrKeywordNotFound, keyword)
	}
	return result, nil
}

func (f *FakeRank) FetchCompetitorPositions(_ context.Context, keyword string) ([]models.CompetitorPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[keyword] {
		return nil, unreachable(keyword)
	}
	out := make([]models.CompetitorPosition, len(f.competitors[keyword]))
	copy(out, f.competitors[keyword])
	return out, nil
}
