// Package source defines the external data contracts the monitor depends on:
// a rank source for keyword positions and a site source for audit signals.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

// RankResult is the rank source's answer for one keyword.
type RankResult struct {
	Position     int    `json:"position"`
	URL          string `json:"url"`
	SearchVolume int    `json:"search_volume"`
}

// RankSource fetches current keyword positions.
type RankSource interface {
	FetchPosition(ctx context.Context, keyword string) (RankResult, error)
	FetchCompetitorPositions(ctx context.Context, keyword string) ([]models.CompetitorPosition, error)
}

// SiteSource provides the raw signals for a technical audit. Every method
// returns ErrUnreachable (possibly wrapped) when the signal cannot be obtained.
type SiteSource interface {
	RobotsTxt(ctx context.Context) (string, error)
	Sitemap(ctx context.Context) (string, error)
	PerformanceScore(ctx context.Context) (int, error)
	MobileUsable(ctx context.Context) (bool, error)
	StructuredData(ctx context.Context) (bool, error)
}

var (
	// ErrUnreachable - the external source could not be reached or had no data
	ErrUnreachable = errors.New("source: unreachable")

	// ErrUnsupportedSource - unknown rank source kind
	ErrUnsupportedSource = errors.New("source: unsupported rank source")

	// ErrKeywordNotFound - the rank source has no entry for the keyword
	ErrKeywordNotFound = errors.New("source: keyword not found")
)

// NormaliseDomain returns the canonical base URL for a configured domain.
// A bare host is assumed to be served over https.
func NormaliseDomain(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("domain is empty")
	}

	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}

	u, err := url.Parse(domain)
	if err != nil {
		return "", fmt.Errorf("malformed domain %q: %w", domain, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("malformed domain %q: unsupported scheme %s", domain, u.Scheme)
	}

	host := u.Hostname()
	if host == "" || strings.ContainsAny(host, " _") || (!strings.Contains(host, ".") && host != "localhost") {
		return "", fmt.Errorf("malformed domain %q: invalid host", domain)
	}

	return u.Scheme + "://" + u.Host, nil
}

// IsHTTPS reports whether the configured domain is served over https.
func IsHTTPS(domain string) bool {
	base, err := NormaliseDomain(domain)
	if err != nil {
		return false
	}
	return strings.HasPrefix(base, "https://")
}

// Hostname returns the bare host of a configured domain.
func Hostname(domain string) string {
	base, err := NormaliseDomain(domain)
	if err != nil {
		return domain
	}
	u, _ := url.Parse(base)
	return u.Hostname()
}
