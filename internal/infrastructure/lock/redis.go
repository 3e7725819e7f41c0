// Package lock implements core/lock.Locker on top of Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	corelock "bakehouse/internal/core/lock"
)

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// Prefix namespaces lock keys, e.g. "bakehouse:lock:".
	Prefix string
}

// RedisLocker obtains locks with bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	prefix string
}

var _ corelock.Locker = (*RedisLocker)(nil)

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 20
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// NewRedisLocker wraps an existing client.
func NewRedisLocker(rdb redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), prefix: prefix}
}

// Obtain tries once; a held lock yields corelock.ErrNotObtained.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (corelock.Lock, error) {
	lk, err := l.client.Obtain(ctx, l.prefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, corelock.ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return lk, nil
}
