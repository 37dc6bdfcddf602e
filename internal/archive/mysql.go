package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/go-sql-driver/mysql"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS ranking_samples (
		domain            VARCHAR(255) NOT NULL,
		keyword           VARCHAR(255) NOT NULL,
		position          INT          NOT NULL,
		url               TEXT         NOT NULL,
		search_volume     INT          NOT NULL,
		estimated_traffic DOUBLE       NOT NULL,
		recorded_at       DATETIME(3)  NOT NULL,
		INDEX ranking_samples_keyword_idx (domain, keyword, recorded_at)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_results (
		id              VARCHAR(64)  PRIMARY KEY,
		domain          VARCHAR(255) NOT NULL,
		score           INT          NOT NULL,
		critical_issues INT          NOT NULL,
		warnings        INT          NOT NULL,
		recommendations INT          NOT NULL,
		categories      JSON         NOT NULL,
		audited_at      DATETIME(3)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id           VARCHAR(64)  PRIMARY KEY,
		domain       VARCHAR(255) NOT NULL,
		type         VARCHAR(32)  NOT NULL,
		severity     VARCHAR(16)  NOT NULL,
		title        TEXT         NOT NULL,
		description  TEXT         NOT NULL,
		` + "`trigger`" + ` JSON NOT NULL,
		acknowledged BOOLEAN      NOT NULL,
		resolved     BOOLEAN      NOT NULL,
		created_at   DATETIME(3)  NOT NULL
	)`,
}

// MySQLArchive writes to MySQL through database/sql.
type MySQLArchive struct {
	db *sql.DB
}

func NewMySQLArchive(ctx context.Context, dsn string) (*MySQLArchive, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create archive schema: %w", err)
		}
	}

	log.Printf("Archive connected to MySQL at %s", cfg.Addr)
	return &MySQLArchive{db: db}, nil
}

func (m *MySQLArchive) AppendSamples(ctx context.Context, domain string, samples []models.RankingSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ranking_samples
		(domain, keyword, position, url, search_volume, estimated_traffic, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, domain, s.Keyword, s.Position, s.URL, s.SearchVolume, s.EstimatedTraffic, s.Timestamp); err != nil {
			return fmt.Errorf("failed to archive sample %s: %w", s.Keyword, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLArchive) AppendAudit(ctx context.Context, result *models.AuditResult) error {
	categories, err := json.Marshal(result.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `INSERT IGNORE INTO audit_results
		(id, domain, score, critical_issues, warnings, recommendations, categories, audited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Domain, result.Score, len(result.CriticalIssues), len(result.Warnings),
		len(result.Recommendations), string(categories), result.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to archive audit: %w", err)
	}
	return nil
}

func (m *MySQLArchive) SaveAlert(ctx context.Context, domain string, alert models.Alert) error {
	trigger, err := json.Marshal(alert.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	_, err = m.db.ExecContext(ctx, "INSERT INTO alerts "+
		"(id, domain, type, severity, title, description, `trigger`, acknowledged, resolved, created_at) "+
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) "+
		"ON DUPLICATE KEY UPDATE acknowledged = VALUES(acknowledged), resolved = VALUES(resolved)",
		alert.ID, domain, string(alert.Type), string(alert.Severity), alert.Title, alert.Description,
		string(trigger), alert.Acknowledged, alert.Resolved, alert.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to archive alert: %w", err)
	}
	return nil
}

func (m *MySQLArchive) Close() error {
	return m.db.Close()
}
