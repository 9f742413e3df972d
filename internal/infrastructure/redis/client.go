package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// activityKey is the list holding the most recent admin activity entries.
const activityKey = "orgcore:activity"

// Client wraps the Redis client with the operations the engine needs: a
// capped recent-activity feed plus connectivity checks.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// PushActivity prepends an entry to the activity feed and trims the feed to
// keep at most max entries.
func (c *Client) PushActivity(ctx context.Context, entry string, max int64) error {
	if err := c.rdb.LPush(ctx, activityKey, entry).Err(); err != nil {
		return err
	}
	return c.rdb.LTrim(ctx, activityKey, 0, max-1).Err()
}

// RecentActivity returns up to n most recent activity entries, newest first.
func (c *Client) RecentActivity(ctx context.Context, n int64) ([]string, error) {
	return c.rdb.LRange(ctx, activityKey, 0, n-1).Result()
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
