package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// Cache stores JSON-encoded list results. Every failure is logged and
// treated as a miss so callers fall through to the database.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.Warn("Cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn("Discarding undecodable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		c.client.Del(ctx, key)
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache encode failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn("Cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// InvalidatePrefix deletes every key starting with prefix. SCAN keeps the
// server responsive on large keyspaces.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			logger.Warn("Cache invalidation failed", map[string]interface{}{
				"prefix": prefix,
				"error":  err.Error(),
			})
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				logger.Warn("Cache invalidation failed", map[string]interface{}{
					"prefix": prefix,
					"error":  err.Error(),
				})
				return
			}
			removed += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	logger.Debug("Cache invalidated", map[string]interface{}{
		"prefix":  prefix,
		"removed": removed,
	})
}
