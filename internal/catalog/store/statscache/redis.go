// Package statscache keeps computed statistics in Redis for fast reads.
package statscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"complyhub/internal/aggregation"
	"complyhub/pkg/platform/sentinel"
)

const (
	DefaultTTL    = 5 * time.Minute
	generationTTL = 24 * time.Hour
	keyPrefix     = "complyhub:"
	genSuffix     = ":gen"
)

// RedisCache stores statistics as JSON under a prefixed key with a TTL. Each
// key has a generation counter next to it; Invalidate bumps the counter and
// Set only writes while the counter still holds the generation the caller
// read before loading.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

type Option func(*RedisCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, key string) (aggregation.Statistics, bool, error) {
	body, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return aggregation.Statistics{}, false, nil
	}
	if err != nil {
		return aggregation.Statistics{}, false, fmt.Errorf("get %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	var stats aggregation.Statistics
	if err := json.Unmarshal(body, &stats); err != nil {
		// A corrupt entry reads as a miss and is overwritten on the next Set.
		return aggregation.Statistics{}, false, nil
	}
	return stats, true, nil
}

// Generation returns the current generation of key; 0 when it was never invalidated.
func (c *RedisCache) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := c.client.Get(ctx, keyPrefix+key+genSuffix).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("generation %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return gen, nil
}

// Set stores stats when key is still at generation. It reports false, without
// error, when an Invalidate got there first.
func (c *RedisCache) Set(ctx context.Context, key string, generation int64, stats aggregation.Statistics) (bool, error) {
	body, err := json.Marshal(stats)
	if err != nil {
		return false, fmt.Errorf("encode statistics: %w", err)
	}
	genKey := keyPrefix + key + genSuffix
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyPrefix+key, body, c.ttl)
			return nil
		}); err != nil {
			return err
		}
		stored = true
		return nil
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return stored, nil
}

// Invalidate drops the cached value of every key and moves it to a new generation.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		genKey := keyPrefix + k + genSuffix
		if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, generationTTL)
			pipe.Del(ctx, keyPrefix+k)
			return nil
		}); err != nil {
			return fmt.Errorf("invalidate %s: %w: %w", k, sentinel.ErrUnavailable, err)
		}
	}
	return nil
}
