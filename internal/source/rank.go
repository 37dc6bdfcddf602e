package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

// RankSourceConfig selects and configures a rank source.
type RankSourceConfig struct {
	Kind    string
	BaseURL string
	APIKey  string
	Domain  string
	Timeout time.Duration

	// Static table used by the "static" kind
	Static map[string]StaticEntry
}

// NewRankSource returns the rank source for the configured kind.
func NewRankSource(cfg RankSourceConfig) (RankSource, error) {
	switch cfg.Kind {
	case "http", "api":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("rank source %q requires a base URL", cfg.Kind)
		}
		return NewHTTPRankSource(cfg.BaseURL, cfg.APIKey, Hostname(cfg.Domain), cfg.Timeout), nil
	case "static":
		return NewStaticRankSource(cfg.Static), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, cfg.Kind)
	}
}

// HTTPRankSource queries a JSON rank-tracking API.
type HTTPRankSource struct {
	baseURL    string
	apiKey     string
	domain     string
	httpClient *http.Client
}

type rankResponse struct {
	Position     int    `json:"position"`
	URL          string `json:"url"`
	SearchVolume int    `json:"search_volume"`
}

type competitorsResponse struct {
	Competitors []models.CompetitorPosition `json:"competitors"`
}

func NewHTTPRankSource(baseURL, apiKey, domain string, timeout time.Duration) *HTTPRankSource {
	return &HTTPRankSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		domain:  domain,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *HTTPRankSource) FetchPosition(ctx context.Context, keyword string) (RankResult, error) {
	var resp rankResponse
	if err := s.get(ctx, "/rank", keyword, &resp); err != nil {
		return RankResult{}, err
	}

	return RankResult{
		Position:     resp.Position,
		URL:          resp.URL,
		SearchVolume: resp.SearchVolume,
	}, nil
}

func (s *HTTPRankSource) FetchCompetitorPositions(ctx context.Context, keyword string) ([]models.CompetitorPosition, error) {
	var resp competitorsResponse
	if err := s.get(ctx, "/competitors", keyword, &resp); err != nil {
		return nil, err
	}
	return resp.Competitors, nil
}

func (s *HTTPRankSource) get(ctx context.Context, path, keyword string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("keyword", keyword)
	q.Set("domain", s.domain)
	req.URL.RawQuery = q.Encode()

	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rank request failed: %v: %w", err, ErrUnreachable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrKeywordNotFound, keyword)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("rank API returned %d: %w", resp.StatusCode, ErrUnreachable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse rank response: %w", err)
	}

	return nil
}

// StaticEntry is a fixed rank source answer.
type StaticEntry struct {
	Position     int                         `yaml:"position" json:"position"`
	URL          string                      `yaml:"url" json:"url"`
	SearchVolume int                         `yaml:"search_volume" json:"search_volume"`
	Competitors  []models.CompetitorPosition `yaml:"competitors" json:"competitors"`
}

// StaticRankSource serves positions from an in-memory table. Entries can be
// replaced at runtime with Set.
type StaticRankSource struct {
	mu      sync.RWMutex
	entries map[string]StaticEntry
}

func NewStaticRankSource(entries map[string]StaticEntry) *StaticRankSource {
	table := make(map[string]StaticEntry, len(entries))
	for k, v := range entries {
		table[k] = v
	}
	return &StaticRankSource{entries: table}
}

// Set replaces the entry for a keyword.
func (s *StaticRankSource) Set(keyword string, entry StaticEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[keyword] = entry
}

func (s *StaticRankSource) FetchPosition(_ context.Context, keyword string) (RankResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[keyword]
	if !ok {
		return RankResult{}, fmt.Errorf("%w: %s", ErrKeywordNotFound, keyword)
	}
	return RankResult{Position: entry.Position, URL: entry.URL, SearchVolume: entry.SearchVolume}, nil
}

func (s *StaticRankSource) FetchCompetitorPositions(_ context.Context, keyword string) ([]models.CompetitorPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[keyword]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeywordNotFound, keyword)
	}
	out := make([]models.CompetitorPosition, len(entry.Competitors))
	copy(out, entry.Competitors)
	return out, nil
}
