package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/source"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoKeywords      = errors.New("at least one keyword must be tracked")
	ErrMalformedDomain = errors.New("malformed domain")
)

// Config holds all configuration for the monitor. It is loaded once and
// treated as read-only afterwards.
type Config struct {
	// What to monitor
	Domain      string
	Keywords    []string
	Competitors []string

	Thresholds AlertThresholds

	// Cadences
	RankingInterval    time.Duration
	AuditInterval      time.Duration
	CompetitorInterval time.Duration
	ReportInterval     time.Duration
	FetchTimeout       time.Duration

	// Tuning
	RankingConcurrency int
	TrendLength        int

	// External data sources
	RankSource     string
	RankAPIURL     string
	RankAPIKey     string
	SiteSignalsURL string
	StaticRanks    map[string]source.StaticEntry

	// Optional infrastructure, empty disables
	NatsURL        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ArchiveDriver  string
	ArchiveDSN     string
	SlackBotToken  string
	SlackChannelID string
	AIAPIKey       string
	AIModel        string

	// Service ports
	HTTPPort   string
	GRPCPort   string
	HealthPort string
}

// AlertThresholds control when alerts fire.
type AlertThresholds struct {
	PositionDrop        int     `yaml:"position_drop"`         // positions lost before a drop alert
	TrafficDropPct      float64 `yaml:"traffic_drop_pct"`      // percent of estimated traffic lost
	TechnicalScoreFloor int     `yaml:"technical_score_floor"` // composite audit score floor
}

// TargetsFile is the YAML layout of MONITOR_TARGETS_FILE. Any field left
// out keeps the value from the environment.
type TargetsFile struct {
	Domain      string                        `yaml:"domain"`
	Keywords    []string                      `yaml:"keywords"`
	Competitors []string                      `yaml:"competitors"`
	Thresholds  *AlertThresholds              `yaml:"thresholds"`
	StaticRanks map[string]source.StaticEntry `yaml:"static_ranks"`
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded config from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Printf("No .env file found, using environment variables")
	}

	config := &Config{
		Domain:      getEnvOrDefault("MONITOR_DOMAIN", ""),
		Keywords:    parseList(os.Getenv("MONITOR_KEYWORDS")),
		Competitors: parseList(os.Getenv("MONITOR_COMPETITORS")),

		Thresholds: AlertThresholds{
			PositionDrop:        parseIntOrDefault("THRESHOLD_POSITION_DROP", 5),
			TrafficDropPct:      parseFloatOrDefault("THRESHOLD_TRAFFIC_DROP_PCT", 20.0),
			TechnicalScoreFloor: parseIntOrDefault("THRESHOLD_TECHNICAL_SCORE_FLOOR", 70),
		},

		RankingInterval:    parseDurationOrDefault("RANKING_INTERVAL", time.Hour),
		AuditInterval:      parseDurationOrDefault("AUDIT_INTERVAL", 24*time.Hour),
		CompetitorInterval: parseDurationOrDefault("COMPETITOR_INTERVAL", 12*time.Hour),
		ReportInterval:     parseDurationOrDefault("REPORT_INTERVAL", 7*24*time.Hour),
		FetchTimeout:       parseDurationOrDefault("FETCH_TIMEOUT", 15*time.Second),

		RankingConcurrency: parseIntOrDefault("RANKING_CONCURRENCY", 4),
		TrendLength:        parseIntOrDefault("TREND_LENGTH", 30),

		RankSource:     getEnvOrDefault("RANK_SOURCE", "static"),
		RankAPIURL:     getEnvOrDefault("RANK_API_URL", ""),
		RankAPIKey:     getEnvOrDefault("RANK_API_KEY", ""),
		SiteSignalsURL: getEnvOrDefault("SITE_SIGNALS_URL", ""),

		NatsURL:        getEnvOrDefault("NATS_URL", ""),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:  getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:        parseIntOrDefault("REDIS_DB", 0),
		ArchiveDriver:  getEnvOrDefault("ARCHIVE_DRIVER", ""),
		ArchiveDSN:     getEnvOrDefault("ARCHIVE_DSN", ""),
		SlackBotToken:  getEnvOrDefault("SLACK_BOT_TOKEN", ""),
		SlackChannelID: getEnvOrDefault("SLACK_CHANNEL_ID", ""),
		AIAPIKey:       getEnvOrDefault("AI_API_KEY", ""),
		AIModel:        getEnvOrDefault("AI_MODEL", "gemini-2.5-flash"),

		HTTPPort:   getEnvOrDefault("HTTP_PORT", "8080"),
		GRPCPort:   getEnvOrDefault("GRPC_PORT", "50051"),
		HealthPort: getEnvOrDefault("HEALTH_PORT", "8081"),
	}

	if path := os.Getenv("MONITOR_TARGETS_FILE"); path != "" {
		if err := config.applyTargetsFile(path); err != nil {
			return nil, err
		}
		log.Printf("Loaded monitoring targets from: %s", path)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyTargetsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read targets file: %w", err)
	}

	var targets TargetsFile
	if err := yaml.Unmarshal(data, &targets); err != nil {
		return fmt.Errorf("parse targets file %s: %w", path, err)
	}

	if targets.Domain != "" {
		c.Domain = targets.Domain
	}
	if len(targets.Keywords) > 0 {
		c.Keywords = dedupe(targets.Keywords)
	}
	if len(targets.Competitors) > 0 {
		c.Competitors = dedupe(targets.Competitors)
	}
	if targets.Thresholds != nil {
		c.Thresholds = *targets.Thresholds
	}
	if len(targets.StaticRanks) > 0 {
		c.StaticRanks = targets.StaticRanks
	}
	return nil
}

// Validate fails fast on setup defects.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}

	normalised, err := source.NormaliseDomain(c.Domain)
	if err != nil {
		return fmt.Errorf("%w: MONITOR_DOMAIN %q: %v", ErrMalformedDomain, c.Domain, err)
	}
	c.Domain = normalised

	for _, competitor := range c.Competitors {
		if _, err := source.NormaliseDomain(competitor); err != nil {
			return fmt.Errorf("%w: competitor %q: %v", ErrMalformedDomain, competitor, err)
		}
	}

	if c.Thresholds.PositionDrop < 0 || c.Thresholds.PositionDrop > 100 {
		return fmt.Errorf("THRESHOLD_POSITION_DROP must be between 0 and 100")
	}

	if c.Thresholds.TrafficDropPct <= 0 || c.Thresholds.TrafficDropPct > 100 {
		return fmt.Errorf("THRESHOLD_TRAFFIC_DROP_PCT must be between 0 and 100")
	}

	if c.Thresholds.TechnicalScoreFloor < 0 || c.Thresholds.TechnicalScoreFloor > 100 {
		return fmt.Errorf("THRESHOLD_TECHNICAL_SCORE_FLOOR must be between 0 and 100")
	}

	intervals := map[string]time.Duration{
		"RANKING_INTERVAL":    c.RankingInterval,
		"AUDIT_INTERVAL":      c.AuditInterval,
		"COMPETITOR_INTERVAL": c.CompetitorInterval,
		"REPORT_INTERVAL":     c.ReportInterval,
		"FETCH_TIMEOUT":       c.FetchTimeout,
	}
	for name, d := range intervals {
		if d < time.Second {
			return fmt.Errorf("%s must be at least 1s, got %s", name, d)
		}
	}

	if c.RankingConcurrency < 1 {
		return fmt.Errorf("RANKING_CONCURRENCY must be at least 1, got %d", c.RankingConcurrency)
	}

	if c.TrendLength < 1 || c.TrendLength > models.MaxHistory {
		return fmt.Errorf("TREND_LENGTH must be between 1 and %d, got %d", models.MaxHistory, c.TrendLength)
	}

	if c.ArchiveDriver != "" && c.ArchiveDSN == "" {
		return fmt.Errorf("ARCHIVE_DSN is required when ARCHIVE_DRIVER is set")
	}

	return nil
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s: %q, using %s", key, value, defaultValue)
	}
	return defaultValue
}

// parseList splits a comma separated value, dropping blanks and duplicates.
func parseList(value string) []string {
	if value == "" {
		return nil
	}
	return dedupe(strings.Split(value, ","))
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
