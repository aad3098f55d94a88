// Package cache provides a Redis-backed response cache for computed bias and
// seasonality payloads. Misses and errors degrade to recompute; the cache is
// never authoritative.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cotlens/internal/domain/combine"
)

const keyPrefix = "cotlens:"

// Cache wraps a Redis client with JSON marshaling and key conventions.
type Cache struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// NewFromAddr dials Redis at addr.
func NewFromAddr(addr, password string, db int) *Cache {
	return New(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}))
}

// Get unmarshals the cached value for key into out, reporting whether a
// usable entry was found.
func (c *Cache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		// A corrupt entry behaves like a miss.
		log.Warn().Str("key", key).Err(err).Msg("Dropping unparseable cache entry")
		return false, nil
	}
	return true, nil
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Health pings the backing Redis.
func (c *Cache) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// BiasKey builds the cache key for a combined-bias response. The config is
// part of the key so user-adjusted weights never collide with defaults.
func BiasKey(assetID string, cfg combine.Config) string {
	return fmt.Sprintf("bias:%s:%g:%g:%g:%g", assetID,
		cfg.CotWeight, cfg.SeasonalityWeight, cfg.ConvictionBoostThreshold, cfg.ConvictionBoostAmount)
}

// SeasonalityKey builds the cache key for a seasonality response; results
// only change when the month does.
func SeasonalityKey(assetID string, date time.Time) string {
	return fmt.Sprintf("seasonality:%s:%s", assetID, date.Format("2006-01"))
}
