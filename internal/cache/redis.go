package cache

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on top of a Redis server. All failures are
// logged and swallowed so that callers degrade to the relational store.
type RedisCache struct {
	client *redis.Client
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewRedisClient creates the underlying go-redis client
func NewRedisClient(cfg *config.Configuration) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewRedisCache creates a Redis backed cache
func NewRedisCache(client *redis.Client, cfg *config.Configuration, logger *logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	if !c.cfg.Cache.Enabled {
		return "", false
	}

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnw("cache get failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, expiration time.Duration) {
	if !c.cfg.Cache.Enabled {
		return
	}

	if err := c.client.Set(ctx, key, value, expiration).Err(); err != nil {
		c.logger.Warnw("cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if !c.cfg.Cache.Enabled {
		return
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnw("cache delete failed", "key", key, "error", err)
	}
}

func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) {
	if !c.cfg.Cache.Enabled {
		return
	}

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warnw("cache delete failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warnw("cache scan failed", "pattern", pattern, "error", err)
	}
}

func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	if !c.cfg.Cache.Enabled {
		return false
	}

	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Warnw("cache exists failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

func (c *RedisCache) Flush(ctx context.Context) {
	if !c.cfg.Cache.Enabled {
		return
	}

	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.logger.Warnw("cache flush failed", "error", err)
	}
}
