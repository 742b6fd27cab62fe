package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// redisDecisionCache implements DecisionCache on a redis server. Decisions
// are stored as JSON with a server-side TTL so entries disappear without a
// cleanup loop.
type redisDecisionCache struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	logger  observability.Logger
	metrics *Metrics
}

// RedisCacheOption is a functional option for the redis cache.
type RedisCacheOption func(*redisDecisionCache)

// WithRedisCacheLogger sets the logger.
func WithRedisCacheLogger(logger observability.Logger) RedisCacheOption {
	return func(c *redisDecisionCache) {
		c.logger = logger
	}
}

// WithRedisCacheMetrics sets the metrics.
func WithRedisCacheMetrics(metrics *Metrics) RedisCacheOption {
	return func(c *redisDecisionCache) {
		c.metrics = metrics
	}
}

// WithRedisCachePrefix sets the key prefix.
func WithRedisCachePrefix(prefix string) RedisCacheOption {
	return func(c *redisDecisionCache) {
		c.prefix = prefix
	}
}

// NewRedisDecisionCache creates a redis-backed decision cache on an existing
// client. The cache owns the client and closes it with Close.
func NewRedisDecisionCache(client *redis.Client, ttl time.Duration, opts ...RedisCacheOption) DecisionCache {
	c := &redisDecisionCache{
		client: client,
		ttl:    ttl,
		prefix: "authz:",
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewRedisDecisionCacheFromConfig dials redis per configuration.
func NewRedisDecisionCacheFromConfig(cfg *RedisConfig, ttl time.Duration, opts ...RedisCacheOption) DecisionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisDecisionCache(client, ttl, opts...)
}

// Get retrieves a cached decision.
func (c *redisDecisionCache) Get(ctx context.Context, key *CacheKey) (*CachedDecision, bool) {
	cacheKey := c.prefix + key.String()

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to get from redis cache",
				observability.String("key", cacheKey),
				observability.Error(err),
			)
		}
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	var decision CachedDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		c.logger.Warn("failed to unmarshal cached decision",
			observability.String("key", cacheKey),
			observability.Error(err),
		)
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	if decision.IsExpired() {
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	c.metrics.RecordCacheHit()
	return &decision, true
}

// Set stores a decision in the cache.
func (c *redisDecisionCache) Set(ctx context.Context, key *CacheKey, decision *CachedDecision) {
	cacheKey := c.prefix + key.String()

	decision.CachedAt = time.Now()
	decision.ExpiresAt = time.Now().Add(c.ttl)

	data, err := json.Marshal(decision)
	if err != nil {
		c.logger.Warn("failed to marshal decision",
			observability.String("key", cacheKey),
			observability.Error(err),
		)
		return
	}

	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to set redis cache",
			observability.String("key", cacheKey),
			observability.Error(err),
		)
	}
}

// Delete removes a decision from the cache.
func (c *redisDecisionCache) Delete(ctx context.Context, key *CacheKey) {
	cacheKey := c.prefix + key.String()

	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.Warn("failed to delete from redis cache",
			observability.String("key", cacheKey),
			observability.Error(err),
		)
	}
}

// Clear removes all cached decisions under the prefix.
func (c *redisDecisionCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("failed to delete from redis cache",
				observability.String("key", iter.Val()),
				observability.Error(err),
			)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("failed to scan redis cache", observability.Error(err))
	}
}

// Close closes the redis client.
func (c *redisDecisionCache) Close() error {
	return c.client.Close()
}

// Ensure redisDecisionCache implements DecisionCache.
var _ DecisionCache = (*redisDecisionCache)(nil)
