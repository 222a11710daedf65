package authstub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MsgThrottled is the message body of a 429 login answer.
const MsgThrottled = "Too many failed sign-in attempts. Try again later."

var (
	errThrottled        = errors.New("login throttled")
	errRedisUnavailable = errors.New("redis unavailable")
)

// ThrottleConfig enables failed-login throttling backed by Redis counters.
type ThrottleConfig struct {
	Redis       redis.UniversalClient
	KeyPrefix   string
	MaxAttempts int
	Cooldown    time.Duration
}

type throttle struct {
	redis  redis.UniversalClient
	prefix string
	max    int
	ttl    time.Duration
}

func newThrottle(cfg *ThrottleConfig) (*throttle, error) {
	if cfg == nil {
		return nil, nil
	}
	if cfg.Redis == nil {
		return nil, errors.New("throttle redis client is required")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("throttle max attempts must be > 0")
	}
	if cfg.Cooldown <= 0 {
		return nil, errors.New("throttle cooldown must be > 0")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "authstub"
	}
	return &throttle{redis: cfg.Redis, prefix: prefix, max: cfg.MaxAttempts, ttl: cfg.Cooldown}, nil
}

func (t *throttle) key(email string) string {
	return t.prefix + ":login:" + strings.ToLower(strings.TrimSpace(email))
}

// check reports errThrottled once the failure budget for email is spent.
func (t *throttle) check(ctx context.Context, email string) error {
	count, err := t.redis.Get(ctx, t.key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	if count >= int64(t.max) {
		return errThrottled
	}
	return nil
}

func (t *throttle) fail(ctx context.Context, email string) error {
	key := t.key(email)
	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	// Fixed window: the first failure opens it.
	if count == 1 {
		if err := t.redis.Expire(ctx, key, t.ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", errRedisUnavailable, err)
		}
	}
	return nil
}

func (t *throttle) reset(ctx context.Context, email string) error {
	if err := t.redis.Del(ctx, t.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return nil
}
