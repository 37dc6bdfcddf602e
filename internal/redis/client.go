// Package redis keeps a hot snapshot of monitoring state so a restarted
// monitor resumes with its ranking history and open alerts.
package redis

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient connects and pings. namespace prefixes every key so several
// monitored domains can share one Redis database.
func NewClient(addr string, pword string, db int, namespace string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pword,
		DB:       db,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Connected to Redis: %s", addr)

	return &Client{rdb: rdb, namespace: namespace}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

func (c *Client) key(format string, args ...interface{}) string {
	return c.namespace + ":" + fmt.Sprintf(format, args...)
}
