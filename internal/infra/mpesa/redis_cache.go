package mpesa

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisTokenKey = "mpesa:access_token"

// RedisTokenCache shares one token across every process behind the same Redis.
// Redis failures degrade to a cache miss so payments keep flowing.
type RedisTokenCache struct {
	rdb    *redis.Client
	key    string
	now    func() time.Time
	logger *zap.Logger
}

func NewRedisTokenCache(rdb *redis.Client, logger *zap.Logger) *RedisTokenCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTokenCache{rdb: rdb, key: defaultRedisTokenKey, now: time.Now, logger: logger}
}

func (c *RedisTokenCache) Get(ctx context.Context) (string, bool) {
	token, err := c.rdb.Get(ctx, c.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis token cache read failed", zap.Error(err))
		}
		return "", false
	}
	return token, token != ""
}

func (c *RedisTokenCache) Set(ctx context.Context, token string, expiresAt time.Time) {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return
	}
	if err := c.rdb.Set(ctx, c.key, token, ttl).Err(); err != nil {
		c.logger.Warn("redis token cache write failed", zap.Error(err))
	}
}

func (c *RedisTokenCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		c.logger.Warn("redis token cache invalidate failed", zap.Error(err))
	}
}
