package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// maxBodyBytes caps robots.txt and sitemap downloads.
	maxBodyBytes = 5 << 20

	// signalsTTL covers one audit run so the three signal checks share a
	// single request.
	signalsTTL = 30 * time.Second
)

// SiteSignals is the payload of the optional signals endpoint (a
// Lighthouse-style audit provider).
type SiteSignals struct {
	PerformanceScore *int  `json:"performance_score"`
	MobileFriendly   *bool `json:"mobile_friendly"`
	StructuredData   *bool `json:"structured_data"`
}

// HTTPSiteSource fetches robots.txt and the sitemap directly from the site
// and reads the remaining signals from a signals endpoint.
type HTTPSiteSource struct {
	baseURL    string
	signalsURL string
	httpClient *http.Client

	signalsGroup singleflight.Group
	mu           sync.Mutex
	signals      *SiteSignals
	fetchedAt    time.Time
	now          func() time.Time
}

// NewHTTPSiteSource creates a site source for the configured domain.
// signalsURL may be empty, in which case those signals are unreachable.
func NewHTTPSiteSource(domain, signalsURL string, timeout time.Duration) (*HTTPSiteSource, error) {
	base, err := NormaliseDomain(domain)
	if err != nil {
		return nil, err
	}

	return &HTTPSiteSource{
		baseURL:    base,
		signalsURL: signalsURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}, nil
}

func (s *HTTPSiteSource) RobotsTxt(ctx context.Context) (string, error) {
	return s.fetchText(ctx, s.baseURL+"/robots.txt")
}

func (s *HTTPSiteSource) Sitemap(ctx context.Context) (string, error) {
	return s.fetchText(ctx, s.baseURL+"/sitemap.xml")
}

func (s *HTTPSiteSource) PerformanceScore(ctx context.Context) (int, error) {
	signals, err := s.cachedSignals(ctx)
	if err != nil {
		return 0, err
	}
	if signals.PerformanceScore == nil {
		return 0, fmt.Errorf("performance score missing: %w", ErrUnreachable)
	}
	return *signals.PerformanceScore, nil
}

func (s *HTTPSiteSource) MobileUsable(ctx context.Context) (bool, error) {
	signals, err := s.cachedSignals(ctx)
	if err != nil {
		return false, err
	}
	if signals.MobileFriendly == nil {
		return false, fmt.Errorf("mobile signal missing: %w", ErrUnreachable)
	}
	return *signals.MobileFriendly, nil
}

func (s *HTTPSiteSource) StructuredData(ctx context.Context) (bool, error) {
	signals, err := s.cachedSignals(ctx)
	if err != nil {
		return false, err
	}
	if signals.StructuredData == nil {
		return false, fmt.Errorf("structured data signal missing: %w", ErrUnreachable)
	}
	return *signals.StructuredData, nil
}

func (s *HTTPSiteSource) fetchText(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", target, err, ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %d: %w", target, resp.StatusCode, ErrUnreachable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %v: %w", target, err, ErrUnreachable)
	}

	return string(body), nil
}

// cachedSignals returns the signals fetched within the last signalsTTL.
// Concurrent callers share one in-flight request. Failures are not cached.
func (s *HTTPSiteSource) cachedSignals(ctx context.Context) (*SiteSignals, error) {
	s.mu.Lock()
	if s.signals != nil && s.now().Sub(s.fetchedAt) < signalsTTL {
		signals := s.signals
		s.mu.Unlock()
		return signals, nil
	}
	s.mu.Unlock()

	v, err, _ := s.signalsGroup.Do("signals", func() (interface{}, error) {
		signals, err := s.fetchSignals(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.signals = signals
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return signals, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SiteSignals), nil
}

func (s *HTTPSiteSource) fetchSignals(ctx context.Context) (*SiteSignals, error) {
	if s.signalsURL == "" {
		return nil, fmt.Errorf("signals endpoint not configured: %w", ErrUnreachable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.signalsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("url", s.baseURL)
	req.URL.RawQuery = q.Encode()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signals request failed: %v: %w", err, ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signals endpoint returned %d: %w", resp.StatusCode, ErrUnreachable)
	}

	var signals SiteSignals
	if err := json.NewDecoder(resp.Body).Decode(&signals); err != nil {
		return nil, fmt.Errorf("failed to parse signals: %v: %w", err, ErrUnreachable)
	}

	return &signals, nil
}
