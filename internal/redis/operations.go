package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/redis/go-redis/v9"
)

// ===== [RANKING OPERATIONS] =====

// SaveRecords writes every record and the keyword index in one transaction.
func (c *Client) SaveRecords(ctx context.Context, records []models.RankingRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, record := range records {
			data, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to marshal record %s: %w", record.Keyword, err)
			}
			pipe.Set(ctx, c.key("ranking:%s", record.Keyword), data, 0)
			pipe.SAdd(ctx, c.key("rankings:keywords"), record.Keyword)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store records: %w", err)
	}

	return nil
}

// LoadRecords returns every stored record. Entries that fail to decode are skipped.
func (c *Client) LoadRecords(ctx context.Context) ([]models.RankingRecord, error) {
	keywords, err := c.rdb.SMembers(ctx, c.key("rankings:keywords")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyword index: %w", err)
	}

	records := make([]models.RankingRecord, 0, len(keywords))
	for _, keyword := range keywords {
		data, err := c.rdb.Get(ctx, c.key("ranking:%s", keyword)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get record %s: %w", keyword, err)
		}

		var record models.RankingRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Keyword < records[j].Keyword })
	return records, nil
}

// ===== [ALERT OPERATIONS] =====

// SaveAlert stores an alert and keeps the open set in sync with its
// resolved flag.
func (c *Client) SaveAlert(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key("alert:%s", alert.ID), data, 0)
		pipe.SAdd(ctx, c.key("alerts:all"), alert.ID)
		if alert.Resolved {
			pipe.SRem(ctx, c.key("alerts:open"), alert.ID)
		} else {
			pipe.SAdd(ctx, c.key("alerts:open"), alert.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}

	return nil
}

func (c *Client) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	data, err := c.rdb.Get(ctx, c.key("alert:%s", id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	var alert models.Alert
	if err := json.Unmarshal([]byte(data), &alert); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}

	return &alert, nil
}

// LoadAlerts returns every stored alert, oldest first.
func (c *Client) LoadAlerts(ctx context.Context) ([]models.Alert, error) {
	return c.loadAlertSet(ctx, c.key("alerts:all"))
}

// LoadOpenAlerts returns unresolved alerts, oldest first.
func (c *Client) LoadOpenAlerts(ctx context.Context) ([]models.Alert, error) {
	return c.loadAlertSet(ctx, c.key("alerts:open"))
}

func (c *Client) loadAlertSet(ctx context.Context, setKey string) ([]models.Alert, error) {
	ids, err := c.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get alert ids: %w", err)
	}

	alerts := make([]models.Alert, 0, len(ids))
	for _, id := range ids {
		alert, err := c.GetAlert(ctx, id)
		if err != nil {
			continue
		}
		alerts = append(alerts, *alert)
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Timestamp.Before(alerts[j].Timestamp) })
	return alerts, nil
}

// ===== [AUDIT & REPORT OPERATIONS] =====

func (c *Client) SaveLatestAudit(ctx context.Context, result *models.AuditResult) error {
	return c.setJSON(ctx, c.key("audit:latest"), result)
}

// LoadLatestAudit returns nil without error when no audit was stored.
func (c *Client) LoadLatestAudit(ctx context.Context) (*models.AuditResult, error) {
	var result models.AuditResult
	found, err := c.getJSON(ctx, c.key("audit:latest"), &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SaveLatestReport(ctx context.Context, report *models.WeeklyReport) error {
	return c.setJSON(ctx, c.key("report:latest"), report)
}

// LoadLatestReport returns nil without error when no report was stored.
func (c *Client) LoadLatestReport(ctx context.Context) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	found, err := c.getJSON(ctx, c.key("report:latest"), &report)
	if err != nil || !found {
		return nil, err
	}
	return &report, nil
}

func (c *Client) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Flush removes every key in the client's namespace.
func (c *Client) Flush(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.namespace+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}
