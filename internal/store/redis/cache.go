// Package redis provides the hot-path signal cache: scan deduplication via
// SETNX, a latest-signal snapshot per pair and timeframe, and pub/sub fan-out
// for external consumers. SQLite remains the durable store.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"signal-enginev1/internal/strategy"
)

const (
	latestKeyPrefix = "signal:latest:"
	signalsChannel  = "pub:signals"
)

// Cache wraps a Redis client with signal-engine specific operations.
type Cache struct {
	rdb *goredis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, addr, password string) (*Cache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connect %s: %w", addr, err)
	}
	return &Cache{rdb: rdb}, nil
}

// MarkSeen records a signal key with a TTL. Returns true when the key was not
// present, i.e. the caller holds the first sighting and should emit the
// signal. Re-scans of the same closed bar return false.
func (c *Cache) MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, "signal:seen:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis mark seen %s: %w", key, err)
	}
	return ok, nil
}

// SetLatest stores the newest signal for a pair and timeframe.
func (c *Cache) SetLatest(ctx context.Context, sig *strategy.Signal) error {
	key := latestKeyPrefix + sig.Pair + ":" + sig.Timeframe
	if err := c.rdb.Set(ctx, key, sig.JSON(), 0).Err(); err != nil {
		return fmt.Errorf("redis set latest %s: %w", sig.Key(), err)
	}
	return nil
}

// Latest returns the raw JSON of the newest signal for a pair and timeframe,
// or nil when none has been stored.
func (c *Cache) Latest(ctx context.Context, pair, timeframe string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, latestKeyPrefix+pair+":"+timeframe).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis latest %s/%s: %w", pair, timeframe, err)
	}
	return data, nil
}

// Publish broadcasts a signal on the shared pub/sub channel.
func (c *Cache) Publish(ctx context.Context, sig *strategy.Signal) error {
	if err := c.rdb.Publish(ctx, signalsChannel, sig.JSON()).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", sig.Key(), err)
	}
	return nil
}

// Client exposes the underlying client for health probes.
func (c *Cache) Client() *goredis.Client { return c.rdb }

// Close closes the Redis connection.
func (c *Cache) Close() error { return c.rdb.Close() }
