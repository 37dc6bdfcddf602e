package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ranking_samples (
	domain            TEXT        NOT NULL,
	keyword           TEXT        NOT NULL,
	position          INTEGER     NOT NULL,
	url               TEXT        NOT NULL,
	search_volume     INTEGER     NOT NULL,
	estimated_traffic DOUBLE PRECISION NOT NULL,
	recorded_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ranking_samples_keyword_idx ON ranking_samples (domain, keyword, recorded_at);

CREATE TABLE IF NOT EXISTS audit_results (
	id              TEXT PRIMARY KEY,
	domain          TEXT        NOT NULL,
	score           INTEGER     NOT NULL,
	critical_issues INTEGER     NOT NULL,
	warnings        INTEGER     NOT NULL,
	recommendations INTEGER     NOT NULL,
	categories      JSONB       NOT NULL,
	audited_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	domain       TEXT        NOT NULL,
	type         TEXT        NOT NULL,
	severity     TEXT        NOT NULL,
	title        TEXT        NOT NULL,
	description  TEXT        NOT NULL,
	trigger      JSONB       NOT NULL,
	acknowledged BOOLEAN     NOT NULL,
	resolved     BOOLEAN     NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);`

// PostgresArchive writes to PostgreSQL through a pgx pool.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, dsn string) (*PostgresArchive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}

	log.Printf("Archive connected to PostgreSQL")
	return &PostgresArchive{pool: pool}, nil
}

func (p *PostgresArchive) AppendSamples(ctx context.Context, domain string, samples []models.RankingSample) error {
	if len(samples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range samples {
		batch.Queue(`INSERT INTO ranking_samples
			(domain, keyword, position, url, search_volume, estimated_traffic, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			domain, s.Keyword, s.Position, s.URL, s.SearchVolume, s.EstimatedTraffic, s.Timestamp)
	}

	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to archive samples: %w", err)
	}
	return nil
}

func (p *PostgresArchive) AppendAudit(ctx context.Context, result *models.AuditResult) error {
	categories, err := json.Marshal(result.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	_, err = p.pool.Exec(ctx, `INSERT INTO audit_results
		(id, domain, score, critical_issues, warnings, recommendations, categories, audited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		result.ID, result.Domain, result.Score, len(result.CriticalIssues), len(result.Warnings),
		len(result.Recommendations), categories, result.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to archive audit: %w", err)
	}
	return nil
}

func (p *PostgresArchive) SaveAlert(ctx context.Context, domain string, alert models.Alert) error {
	trigger, err := json.Marshal(alert.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	_, err = p.pool.Exec(ctx, `INSERT INTO alerts
		(id, domain, type, severity, title, description, trigger, acknowledged, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET acknowledged = EXCLUDED.acknowledged, resolved = EXCLUDED.resolved`,
		alert.ID, domain, string(alert.Type), string(alert.Severity), alert.Title, alert.Description,
		trigger, alert.Acknowledged, alert.Resolved, alert.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to archive alert: %w", err)
	}
	return nil
}

func (p *PostgresArchive) Close() error {
	p.pool.Close()
	return nil
}
