package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseDomain(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare-host", input: "example.com", want: "https://example.com"},
		{name: "http-scheme", input: "http://example.com/", want: "http://example.com"},
		{name: "https-with-path", input: "https://shop.example.com/en", want: "https://shop.example.com"},
		{name: "localhost-port", input: "http://localhost:8080", want: "http://localhost:8080"},
		{name: "empty", input: "  ", wantErr: true},
		{name: "no-tld", input: "example", wantErr: true},
		{name: "bad-scheme", input: "ftp://example.com", wantErr: true},
		{name: "spaces", input: "exa mple.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := source.NormaliseDomain(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsHTTPS(t *testing.T) {
	assert.True(t, source.IsHTTPS("example.com"))
	assert.True(t, source.IsHTTPS("https://example.com"))
	assert.False(t, source.IsHTTPS("http://example.com"))
	assert.False(t, source.IsHTTPS("not a domain"))
}

func TestHTTPSiteSource_RobotsAndSitemap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nAllow: /\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	site, err := source.NewHTTPSiteSource(srv.URL, "", 2*time.Second)
	require.NoError(t, err)

	robots, err := site.RobotsTxt(context.Background())
	require.NoError(t, err)
	assert.Contains(t, robots, "User-agent")

	_, err = site.Sitemap(context.Background())
	assert.True(t, errors.Is(err, source.ErrUnreachable))

	_, err = site.PerformanceScore(context.Background())
	assert.True(t, errors.Is(err, source.ErrUnreachable), "signals endpoint is not configured")
}

func TestHTTPSiteSource_Signals(t *testing.T) {
	signals := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("url"))
		w.Write([]byte(`{"performance_score": 82, "mobile_friendly": true}`))
	}))
	defer signals.Close()

	site, err := source.NewHTTPSiteSource("https://example.com", signals.URL, 2*time.Second)
	require.NoError(t, err)

	score, err := site.PerformanceScore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 82, score)

	mobile, err := site.MobileUsable(context.Background())
	require.NoError(t, err)
	assert.True(t, mobile)

	_, err = site.StructuredData(context.Background())
	assert.True(t, errors.Is(err, source.ErrUnreachable), "missing field maps to unreachable")
}

func TestHTTPSiteSource_SignalsFetchedOncePerAudit(t *testing.T) {
	var hits atomic.Int32
	signals := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"performance_score": 70, "mobile_friendly": false, "structured_data": true}`))
	}))
	defer signals.Close()

	site, err := source.NewHTTPSiteSource("https://example.com", signals.URL, 2*time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	score, err := site.PerformanceScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 70, score)

	mobile, err := site.MobileUsable(ctx)
	require.NoError(t, err)
	assert.False(t, mobile)

	structured, err := site.StructuredData(ctx)
	require.NoError(t, err)
	assert.True(t, structured)

	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPSiteSource_SignalsFailureIsNotCached(t *testing.T) {
	var hits atomic.Int32
	signals := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"performance_score": 90}`))
	}))
	defer signals.Close()

	site, err := source.NewHTTPSiteSource("https://example.com", signals.URL, 2*time.Second)
	require.NoError(t, err)

	_, err = site.PerformanceScore(context.Background())
	assert.ErrorIs(t, err, source.ErrUnreachable)

	score, err := site.PerformanceScore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90, score)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPRankSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "example.com", r.URL.Query().Get("domain"))

		if r.URL.Query().Get("keyword") == "unknown" {
			http.NotFound(w, r)
			return
		}

		switch r.URL.Path {
		case "/rank":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"position": 4, "url": "https://example.com/a", "search_volume": 2400,
			})
		case "/competitors":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"competitors": []models.CompetitorPosition{{Domain: "rival.com", Position: 2, URL: "https://rival.com"}},
			})
		}
	}))
	defer srv.Close()

	rs, err := source.NewRankSource(source.RankSourceConfig{
		Kind: "http", BaseURL: srv.URL, APIKey: "secret", Domain: "https://example.com", Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	result, err := rs.FetchPosition(context.Background(), "seo")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Position)
	assert.Equal(t, 2400, result.SearchVolume)

	competitors, err := rs.FetchCompetitorPositions(context.Background(), "seo")
	require.NoError(t, err)
	require.Len(t, competitors, 1)
	assert.Equal(t, "rival.com", competitors[0].Domain)

	_, err = rs.FetchPosition(context.Background(), "unknown")
	assert.True(t, errors.Is(err, source.ErrKeywordNotFound))
}

func TestNewRankSource_Unsupported(t *testing.T) {
	_, err := source.NewRankSource(source.RankSourceConfig{Kind: "scraper"})
	assert.True(t, errors.Is(err, source.ErrUnsupportedSource))

	_, err = source.NewRankSource(source.RankSourceConfig{Kind: "http"})
	assert.Error(t, err, "http kind requires a base URL")
}

func TestStaticRankSource(t *testing.T) {
	rs := source.NewStaticRankSource(map[string]source.StaticEntry{
		"seo": {Position: 3, SearchVolume: 100},
	})

	result, err := rs.FetchPosition(context.Background(), "seo")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Position)

	rs.Set("seo", source.StaticEntry{Position: 9})
	result, _ = rs.FetchPosition(context.Background(), "seo")
	assert.Equal(t, 9, result.Position)

	_, err = rs.FetchCompetitorPositions(context.Background(), "other")
	assert.True(t, errors.Is(err, source.ErrKeywordNotFound))
}
