package archive

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS ranking_samples (
		domain            String,
		keyword           String,
		position          Int32,
		url               String,
		search_volume     Int32,
		estimated_traffic Float64,
		recorded_at       DateTime64(3)
	) ENGINE = MergeTree ORDER BY (domain, keyword, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS audit_results (
		id              String,
		domain          String,
		score           Int32,
		critical_issues Int32,
		warnings        Int32,
		recommendations Int32,
		audited_at      DateTime64(3)
	) ENGINE = ReplacingMergeTree ORDER BY (domain, id)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id           String,
		domain       String,
		type         LowCardinality(String),
		severity     LowCardinality(String),
		title        String,
		description  String,
		acknowledged Bool,
		resolved     Bool,
		created_at   DateTime64(3),
		updated_at   DateTime64(3)
	) ENGINE = ReplacingMergeTree(updated_at) ORDER BY (domain, id)`,
}

// ClickHouseArchive suits long ranking time series. Alert updates are
// inserted as new rows and collapsed by ReplacingMergeTree.
type ClickHouseArchive struct {
	conn clickhouse.Conn
}

func NewClickHouseArchive(ctx context.Context, dsn string) (*ClickHouseArchive, error) {
	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clickhouse dsn: %w", err)
	}
	options.ClientInfo = clickhouse.ClientInfo{
		Products: []struct {
			Name    string
			Version string
		}{{Name: "rankmonkey", Version: "1.0.0"}},
	}
	options.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	if options.DialTimeout == 0 {
		options.DialTimeout = 5 * time.Second
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	for _, stmt := range clickhouseSchema {
		if err := conn.Exec(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create archive schema: %w", err)
		}
	}

	log.Printf("Archive connected to ClickHouse")
	return &ClickHouseArchive{conn: conn}, nil
}

func (c *ClickHouseArchive) AppendSamples(ctx context.Context, domain string, samples []models.RankingSample) error {
	if len(samples) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO ranking_samples")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, s := range samples {
		if err := batch.Append(domain, s.Keyword, int32(s.Position), s.URL, int32(s.SearchVolume), s.EstimatedTraffic, s.Timestamp); err != nil {
			return fmt.Errorf("failed to append sample %s: %w", s.Keyword, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to archive samples: %w", err)
	}
	return nil
}

func (c *ClickHouseArchive) AppendAudit(ctx context.Context, result *models.AuditResult) error {
	err := c.conn.Exec(ctx, `INSERT INTO audit_results VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Domain, int32(result.Score), int32(len(result.CriticalIssues)),
		int32(len(result.Warnings)), int32(len(result.Recommendations)), result.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to archive audit: %w", err)
	}
	return nil
}

func (c *ClickHouseArchive) SaveAlert(ctx context.Context, domain string, alert models.Alert) error {
	err := c.conn.Exec(ctx, `INSERT INTO alerts VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, domain, string(alert.Type), string(alert.Severity), alert.Title, alert.Description,
		alert.Acknowledged, alert.Resolved, alert.Timestamp, time.Now())
	if err != nil {
		return fmt.Errorf("failed to archive alert: %w", err)
	}
	return nil
}

func (c *ClickHouseArchive) Close() error {
	return c.conn.Close()
}
