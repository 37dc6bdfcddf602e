package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("MONITOR_DOMAIN", "example.com")
	t.Setenv("MONITOR_KEYWORDS", "seo tools, rank tracker ,,seo tools")
	t.Setenv("MONITOR_COMPETITORS", "rival.com")
	t.Setenv("MONITOR_TARGETS_FILE", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.Domain)
	assert.Equal(t, []string{"seo tools", "rank tracker"}, cfg.Keywords)
	assert.Equal(t, []string{"rival.com"}, cfg.Competitors)
	assert.Equal(t, 5, cfg.Thresholds.PositionDrop)
	assert.Equal(t, 20.0, cfg.Thresholds.TrafficDropPct)
	assert.Equal(t, 70, cfg.Thresholds.TechnicalScoreFloor)
	assert.Equal(t, time.Hour, cfg.RankingInterval)
	assert.Equal(t, 24*time.Hour, cfg.AuditInterval)
	assert.Equal(t, 12*time.Hour, cfg.CompetitorInterval)
	assert.Equal(t, 168*time.Hour, cfg.ReportInterval)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "static", cfg.RankSource)
	assert.Equal(t, 4, cfg.RankingConcurrency)
	assert.Equal(t, 30, cfg.TrendLength)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("THRESHOLD_POSITION_DROP", "8")
	t.Setenv("RANKING_INTERVAL", "15m")
	t.Setenv("AUDIT_INTERVAL", "not-a-duration")
	t.Setenv("RANKING_CONCURRENCY", "8")
	t.Setenv("TREND_LENGTH", "14")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.RankingConcurrency)
	assert.Equal(t, 14, cfg.TrendLength)

	assert.Equal(t, 8, cfg.Thresholds.PositionDrop)
	assert.Equal(t, 15*time.Minute, cfg.RankingInterval)
	assert.Equal(t, 24*time.Hour, cfg.AuditInterval)
}

func TestLoad_FailsFast(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"no keywords", "MONITOR_KEYWORDS", ""},
		{"malformed domain", "MONITOR_DOMAIN", "not a domain"},
		{"ftp domain", "MONITOR_DOMAIN", "ftp://example.com"},
		{"bad competitor", "MONITOR_COMPETITORS", "rival"},
		{"threshold range", "THRESHOLD_TECHNICAL_SCORE_FLOOR", "150"},
		{"short interval", "RANKING_INTERVAL", "10ms"},
		{"archive without dsn", "ARCHIVE_DRIVER", "postgres"},
		{"zero concurrency", "RANKING_CONCURRENCY", "0"},
		{"trend too long", "TREND_LENGTH", "120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ErrorKinds(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MONITOR_KEYWORDS", "")
	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrNoKeywords)

	setBaseEnv(t)
	t.Setenv("MONITOR_DOMAIN", "")
	_, err = config.Load()
	assert.ErrorIs(t, err, config.ErrMalformedDomain)
}

func TestLoad_TargetsFile(t *testing.T) {
	setBaseEnv(t)

	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := `domain: http://shop.example.org
keywords:
  - running shoes
  - trail shoes
competitors:
  - www.rival.com
thresholds:
  position_drop: 3
  traffic_drop_pct: 40
  technical_score_floor: 60
static_ranks:
  running shoes:
    position: 4
    url: http://shop.example.org/running
    search_volume: 12000
    competitors:
      - domain: www.rival.com
        position: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("MONITOR_TARGETS_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://shop.example.org", cfg.Domain)
	assert.Equal(t, []string{"running shoes", "trail shoes"}, cfg.Keywords)
	assert.Equal(t, []string{"www.rival.com"}, cfg.Competitors)
	assert.Equal(t, 3, cfg.Thresholds.PositionDrop)
	assert.Equal(t, 40.0, cfg.Thresholds.TrafficDropPct)

	entry, ok := cfg.StaticRanks["running shoes"]
	require.True(t, ok)
	assert.Equal(t, 4, entry.Position)
	assert.Equal(t, 12000, entry.SearchVolume)
	require.Len(t, entry.Competitors, 1)
	assert.Equal(t, 2, entry.Competitors[0].Position)
}

func TestLoad_MissingTargetsFile(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MONITOR_TARGETS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.Load()
	assert.Error(t, err)
}
