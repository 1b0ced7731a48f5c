package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scope separates counters of unrelated flows.
type Scope string

const (
	ScopeLogin    Scope = "login"
	ScopeRegister Scope = "register"
)

// Config holds limiter tuning parameters.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts failed attempts in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter. Zero config fields default to prefix "rl", 5 attempts and a
// 5 minute window.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	return &Limiter{redis: client, config: cfg}
}

func (l *Limiter) key(scope Scope, identity string) string {
	return l.config.Prefix + ":" + string(scope) + ":" + identity
}

// Check returns ErrRateLimited when identity has used up its attempts.
func (l *Limiter) Check(ctx context.Context, scope Scope, identity string) error {
	count, err := l.redis.Get(ctx, l.key(scope, identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt. It returns ErrRateLimited when this attempt reached
// the limit.
func (l *Limiter) Fail(ctx context.Context, scope Scope, identity string) error {
	key := l.key(scope, identity)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter after a success.
func (l *Limiter) Reset(ctx context.Context, scope Scope, identity string) error {
	if err := l.redis.Del(ctx, l.key(scope, identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current failure count.
func (l *Limiter) Attempts(ctx context.Context, scope Scope, identity string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(scope, identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}
