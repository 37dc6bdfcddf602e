// Package archive appends monitoring history to long-term storage. Every
// driver writes the same three streams: ranking samples, audit results and
// alert states.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

var (
	// ErrUnsupportedDriver - unknown ARCHIVE_DRIVER value
	ErrUnsupportedDriver = errors.New("archive: unsupported driver")
)

// Archive is an append-mostly store. Alerts are upserted by id so the
// latest lifecycle state wins; samples and audits are only ever inserted.
type Archive interface {
	AppendSamples(ctx context.Context, domain string, samples []models.RankingSample) error
	AppendAudit(ctx context.Context, result *models.AuditResult) error
	SaveAlert(ctx context.Context, domain string, alert models.Alert) error
	Close() error
}

// New opens the archive for the configured driver.
func New(ctx context.Context, driver, dsn string) (Archive, error) {
	switch driver {
	case "postgres", "postgresql":
		return NewPostgresArchive(ctx, dsn)
	case "mysql":
		return NewMySQLArchive(ctx, dsn)
	case "mongodb", "mongo":
		return NewMongoArchive(ctx, dsn)
	case "clickhouse":
		return NewClickHouseArchive(ctx, dsn)
	case "memory":
		return NewMemoryArchive(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// LatestSamples extracts the newest sample of each record, the rows a
// ranking tick adds to the archive.
func LatestSamples(records []models.RankingRecord) []models.RankingSample {
	samples := make([]models.RankingSample, 0, len(records))
	for _, r := range records {
		if s, ok := r.LatestSample(); ok {
			samples = append(samples, s)
		}
	}
	return samples
}
