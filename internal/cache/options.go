package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

const keyPrefix = "segmenter:options:"

// OptionsCache stores option catalog snapshots in Redis.
type OptionsCache struct {
	redis   *redis.Client
	ttl     time.Duration
	enabled bool
}

// NewOptionsCache creates a cache whose entries expire after ttl.
func NewOptionsCache(redisClient *redis.Client, ttl time.Duration, enabled bool) *OptionsCache {
	return &OptionsCache{
		redis:   redisClient,
		ttl:     ttl,
		enabled: enabled,
	}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// IsEnabled returns whether the cache is usable.
func (c *OptionsCache) IsEnabled() bool {
	return c != nil && c.enabled && c.redis != nil
}

// Get returns the cached catalog of accountID. The bool is false on a miss.
func (c *OptionsCache) Get(ctx context.Context, accountID string) (model.Catalog, bool, error) {
	if !c.IsEnabled() {
		return nil, false, nil
	}
	data, err := c.redis.Get(ctx, key(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get options: %w", err)
	}

	var catalog model.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return catalog, true, nil
}

// Set stores catalog for accountID with the configured TTL.
func (c *OptionsCache) Set(ctx context.Context, accountID string, catalog model.Catalog) error {
	if !c.IsEnabled() {
		return nil
	}
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	if err := c.redis.Set(ctx, key(accountID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set options: %w", err)
	}
	return nil
}

// Invalidate drops the cached catalog of accountID.
func (c *OptionsCache) Invalidate(ctx context.Context, accountID string) error {
	if !c.IsEnabled() {
		return nil
	}
	return c.redis.Del(ctx, key(accountID)).Err()
}

func key(accountID string) string {
	return keyPrefix + accountID
}
