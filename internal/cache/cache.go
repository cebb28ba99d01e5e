// Package cache wraps the redis read cache the dashboard layer serves from.
// The pipeline only ever issues a full invalidation: any aggregate reader may
// depend on a newly ingested date, so partial keyed invalidation is not
// attempted.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"opspulse/internal/config"
)

// Client wraps a namespaced redis connection.
type Client struct {
	client    *redis.Client
	namespace string
	logger    *slog.Logger
}

// NewClient connects to redis and verifies the connection.
func NewClient(cfg config.RedisConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("redis connection established",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("namespace", cfg.Namespace))

	return &Client{client: client, namespace: cfg.Namespace, logger: logger}, nil
}

// Set stores a JSON-encoded value under the namespace with an expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.namespaced(key), data, expiration).Err()
}

// Get retrieves and decodes a value from the namespace.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, c.namespaced(key)).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// InvalidateAll deletes every key under the namespace. Issued once per
// successfully completed date.
func (c *Client) InvalidateAll(ctx context.Context) error {
	var deleted int64
	iter := c.client.Scan(ctx, 0, c.namespace+":*", 200).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache invalidation scan failed: %w", err)
	}

	c.logger.InfoContext(ctx, "cache invalidated",
		slog.Int64("keys_deleted", deleted))
	return nil
}

// Ping reports whether the redis server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) namespaced(key string) string {
	return c.namespace + ":" + key
}
