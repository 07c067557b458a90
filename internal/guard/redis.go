package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "guard:"

// RedisGuard implements Guard on Redis, so the budget is shared across
// service instances.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard creates a Redis-backed guard
func NewRedisGuard(addr, password string, db int) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisGuard{client: client}, nil
}

// Allow counts the attempt with INCR and bounds the window with EXPIRE set
// on the first hit. Counting before deciding means even denied attempts
// consume budget, which is the point for abuse traffic.
func (g *RedisGuard) Allow(ctx context.Context, key string, points int, window time.Duration) (*Result, error) {
	redisKey := keyPrefix + key

	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	count := int(incr.Val())
	if count > points {
		retry := ttl.Val()
		if retry < 0 {
			retry = window
		}
		return &Result{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}
	return &Result{Allowed: true, Remaining: points - count}, nil
}

// Close releases the Redis connection.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}
