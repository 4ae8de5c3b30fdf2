package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openlex/lexcrawl/internal/crawl"
)

const redisKeyPrefix = "lexcrawl:key:"

// redisCmdable is the slice of the go-redis client the cache uses.
type redisCmdable interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache fronts another Guard with a Redis existence cache. The
// delegate stays authoritative: cache misses and Redis errors both fall
// through, and keys are cached only after a successful or duplicate
// insert. Losing Redis costs speed, never correctness.
type RedisCache struct {
	delegate crawl.Guard
	client   redisCmdable
	ttl      time.Duration
	logger   *zap.Logger
}

// NewRedisCache wraps delegate with a Redis existence cache. Entries
// expire after ttl; a non-positive ttl means no expiry.
func NewRedisCache(delegate crawl.Guard, client redisCmdable, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{delegate: delegate, client: client, ttl: ttl, logger: logger}
}

// Exists consults Redis first and falls back to the delegate on a miss
// or a Redis error. Delegate hits are written back to the cache.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		c.logger.Warn("redis exists failed, falling back to store", zap.Error(err))
	} else if n > 0 {
		return true, nil
	}

	found, err := c.delegate.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if found {
		c.remember(ctx, key)
	}
	return found, nil
}

// Insert delegates the write and caches the key afterwards. Duplicates
// are cached too, since either outcome proves the key is stored.
func (c *RedisCache) Insert(ctx context.Context, rec crawl.Record) error {
	err := c.delegate.Insert(ctx, rec)
	if err == nil || errors.Is(err, crawl.ErrDuplicate) {
		c.remember(ctx, rec.Key)
	}
	return err
}

func (c *RedisCache) remember(ctx context.Context, key string) {
	if err := c.client.Set(ctx, redisKeyPrefix+key, 1, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.Error(err))
	}
}
