// Package rediscache caches analytics reports in Redis, grouped per owner
// so an ingest can drop every report for that owner at once.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "mpesa-ledger"
	DefaultTTL     = 5 * time.Minute
	connectTimeout = 5 * time.Second
)

// Cache is a JSON cache-aside store over a redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to addr, given as host:port or a redis:// URL, and pings it.
func New(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	url := addr
	if !strings.Contains(url, "://") {
		url = "redis://" + url
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("rediscache.New: ping %s: %w", opt.Addr, err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("addr", opt.Addr).Dur("ttl", ttl).Msg("Connected to redis")
	return &Cache{client: client, ttl: ttl}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// ReportKey is the cache key for one report of one owner.
func ReportKey(ownerID, key string) string {
	return fmt.Sprintf("%s:report:%s:%s", keyPrefix, ownerID, key)
}

// ownerIndexKey holds the set of report keys written for an owner.
func ownerIndexKey(ownerID string) string {
	return fmt.Sprintf("%s:owner:%s:keys", keyPrefix, ownerID)
}

// Get loads the cached value for (ownerID, key) into dst. A miss returns
// false with a nil error.
func (c *Cache) Get(ctx context.Context, ownerID, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, ReportKey(ownerID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rediscache.Get: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("rediscache.Get: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores v for (ownerID, key) with the cache TTL and indexes the key
// under the owner.
func (c *Cache) Set(ctx context.Context, ownerID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rediscache.Set: encode %s: %w", key, err)
	}

	full := ReportKey(ownerID, key)
	index := ownerIndexKey(ownerID)
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SetEx(ctx, full, data, c.ttl)
		p.SAdd(ctx, index, full)
		p.Expire(ctx, index, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rediscache.Set: %w", err)
	}
	return nil
}

// InvalidateOwner deletes every cached report for ownerID.
func (c *Cache) InvalidateOwner(ctx context.Context, ownerID string) error {
	index := ownerIndexKey(ownerID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("rediscache.InvalidateOwner: list keys: %w", err)
	}

	keys = append(keys, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rediscache.InvalidateOwner: delete: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("owner_id", ownerID).Int("keys", len(keys)-1).Msg("Invalidated cached reports")
	return nil
}
