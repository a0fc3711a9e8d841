package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mlte:ratelimit:"

// RedisConfig locates the shared counter store used when several backend
// replicas sit behind one address.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Now is only overridden by tests.
	Now func() time.Time
}

// RedisLimiter keeps fixed-window counters in Redis so every replica sees
// the same count for a client.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// incrWindow bumps the counter and starts its expiry on the first hit.
var incrWindow = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

// NewRedisLimiter connects and pings the server so callers can fall back to
// the in-process limiter when Redis is unreachable.
func NewRedisLimiter(ctx context.Context, cfg RedisConfig) (*RedisLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewRedisLimiterWithClient(client, cfg.Now), nil
}

func NewRedisLimiterWithClient(client *redis.Client, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{client: client, now: now}
}

func (r *RedisLimiter) Allow(ctx context.Context, key GrantKey, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return unlimited(limit), nil
	}
	ttl := max(window.Milliseconds(), 1000)
	raw, err := incrWindow.Run(ctx, r.client, []string{redisKeyPrefix + key.String()}, ttl).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(raw) != 2 {
		return Decision{}, fmt.Errorf("redis rate limit: unexpected reply %v", raw)
	}
	hits, pttl := raw[0], raw[1]
	resetAt := r.now()
	if pttl > 0 {
		resetAt = resetAt.Add(time.Duration(pttl) * time.Millisecond)
	}
	return Decision{
		Allowed:   hits <= int64(limit),
		Limit:     limit,
		Remaining: max(limit-int(hits), 0),
		ResetAt:   resetAt,
	}, nil
}

func (r *RedisLimiter) Forget(ctx context.Context, key GrantKey) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("redis rate limit: %w", err)
	}
	return nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
