package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisGuard implements Guard on Redis SETNX with a TTL, for deployments
// running more than one service instance. Errors talking to Redis are
// treated as contention: the caller retries.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisGuard(addr string, logger *zap.Logger) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisGuard{client: client, ttl: DefaultTTL, logger: logger}, nil
}

func (g *RedisGuard) key(resourceID string) string {
	return "lock:" + resourceID
}

func (g *RedisGuard) Acquire(ctx context.Context, resourceID, holderID string) bool {
	key := g.key(resourceID)

	ok, err := g.client.SetNX(ctx, key, holderID, g.ttl).Result()
	if err != nil {
		g.logger.Warn("redis lock acquire failed", zap.String("resource", resourceID), zap.Error(err))
		return false
	}
	if ok {
		return true
	}

	// Idempotent re-acquire: refresh the TTL when we already hold the lock.
	holder, err := g.client.Get(ctx, key).Result()
	if err == nil && holder == holderID {
		g.client.Expire(ctx, key, g.ttl)
		return true
	}
	return false
}

func (g *RedisGuard) Release(ctx context.Context, resourceID, holderID string) {
	key := g.key(resourceID)

	holder, err := g.client.Get(ctx, key).Result()
	if err != nil || holder != holderID {
		return
	}
	if err := g.client.Del(ctx, key).Err(); err != nil {
		g.logger.Warn("redis lock release failed", zap.String("resource", resourceID), zap.Error(err))
	}
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
