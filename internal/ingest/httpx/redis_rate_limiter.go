package httpx

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// redisRateLimiter shares fixed windows across replicas: one counter per
// key, expiring with the window. Redis trouble fails open — throttling is
// protection, not a correctness guarantee, and dropping uploads because the
// limiter store blipped would lose session data.
type redisRateLimiter struct {
	client  *redis.Client
	logger  *slog.Logger
	prefix  string
	timeout time.Duration
}

// NewRedisRateLimiter connects and verifies the limiter store.
func NewRedisRateLimiter(addr, password string, db int, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &redisRateLimiter{
		client:  client,
		logger:  logger,
		prefix:  "sentiment:ratelimit:",
		timeout: 250 * time.Millisecond,
	}, nil
}

func (rl *redisRateLimiter) Allow(key string, policy ratePolicy) rateDecision {
	policy = policy.withDefaults()
	if policy.Limit <= 0 {
		return rateDecision{allowed: true}
	}
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logFailure("pipeline", err)
		return rateDecision{allowed: true}
	}

	count := incr.Val()
	remaining := ttl.Val()
	if remaining <= 0 {
		// First hit in the window (or a counter left without expiry by an
		// earlier partial failure): start the window now.
		if err := rl.client.Expire(ctx, redisKey, policy.Window).Err(); err != nil {
			rl.logFailure("expire", err)
		}
		remaining = policy.Window
	}

	return rateDecision{
		allowed:   int(count) <= policy.Limit,
		count:     int(count),
		windowEnd: time.Now().Add(remaining),
	}
}

func (rl *redisRateLimiter) Close() {
	if rl.client != nil {
		_ = rl.client.Close()
	}
}

func (rl *redisRateLimiter) logFailure(op string, err error) {
	if rl.logger == nil {
		return
	}
	rl.logger.Error("rate limiter store unavailable, failing open", "op", op, "error", err)
}
