package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/texlink-oficial/texlink/internal/verification/providers"
)

const creditCacheKeyPrefix = "texlink:credit:"

// RedisCache is a Redis-backed Cache for multi-instance deployments. Expiry
// is delegated to Redis key TTLs, so expired entries never surface on read.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, taxID string) (*providers.CreditResult, bool, error) {
	raw, err := c.client.Get(ctx, creditCacheKeyPrefix+taxID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result providers.CreditResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry is unrecoverable; drop it and treat as a miss.
		_ = c.client.Del(ctx, creditCacheKeyPrefix+taxID).Err()
		return nil, false, nil
	}
	return &result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, taxID string, result *providers.CreditResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal credit result: %w", err)
	}
	if err := c.client.Set(ctx, creditCacheKeyPrefix+taxID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, taxID string) error {
	if err := c.client.Del(ctx, creditCacheKeyPrefix+taxID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
