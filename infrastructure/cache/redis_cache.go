package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
)

const accountListKey = "drivesync:accounts:all"

// RedisCache caches the rendered account list. It is a read accelerator only:
// any Redis failure degrades to a cache miss and is never surfaced to callers.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache instance.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// GetAll retrieves the cached account list. The second return value reports a
// cache hit.
func (c *RedisCache) GetAll(ctx context.Context) ([]*entity.Account, bool) {
	data, err := c.client.Get(ctx, accountListKey).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Failed to read account list from cache", zap.Error(err))
		}
		return nil, false
	}

	var accounts []*entity.Account
	if err := json.Unmarshal([]byte(data), &accounts); err != nil {
		c.logger.Warn("Failed to unmarshal cached account list", zap.Error(err))
		return nil, false
	}

	c.logger.Debug("Account list served from cache", zap.Int("count", len(accounts)))
	return accounts, true
}

// SetAll stores the account list in cache.
func (c *RedisCache) SetAll(ctx context.Context, accounts []*entity.Account) {
	data, err := json.Marshal(accounts)
	if err != nil {
		c.logger.Warn("Failed to marshal account list for cache", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, accountListKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to store account list in cache", zap.Error(err))
	}
}

// Invalidate drops the cached account list. The sync writer calls this after
// persisting new rows.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, accountListKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate account list cache", zap.Error(err))
	}
}
