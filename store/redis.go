package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisKV keeps each key as a Redis string under "<prefix>:<key>".
type RedisKV struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisKV returns a Redis backend. An empty prefix defaults to "gs". A positive
// ttl bounds how long written keys survive; zero keeps them until deleted.
func NewRedisKV(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisKV {
	if prefix == "" {
		prefix = "gs"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisKV{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisKV) key(k string) string {
	return r.prefix + ":" + k
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
