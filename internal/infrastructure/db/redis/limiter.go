package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
)

// slidingLogScript keeps one sorted-set member per admitted attempt, scored
// by its admission time in milliseconds. Members older than the window are
// dropped before counting, so the limit holds over any window-long interval.
//
// KEYS[1] key, ARGV[1] now ms, ARGV[2] window ms, ARGV[3] limit, ARGV[4] member.
// Returns {admitted (0/1), retry-after ms}.
var slidingLogScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])
if count < limit then
  redis.call("ZADD", KEYS[1], now, ARGV[4])
  redis.call("PEXPIRE", KEYS[1], window)
  return {1, 0}
end
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local retry = window
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, retry}
`)

// Limiter is a sliding-log rate limiter shared by every replica pointing at
// the same Redis. Key format: ratelimit:<prefix>:<key>
type Limiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// LimiterConfig configures a Limiter. Now defaults to time.Now.
type LimiterConfig struct {
	Prefix string
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

// NewLimiter creates a Limiter on top of client.
func NewLimiter(client redis.Scripter, cfg LimiterConfig) *Limiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "login"
	}
	return &Limiter{client: client, prefix: cfg.Prefix, limit: cfg.Limit, window: cfg.Window, now: cfg.Now}
}

// Admit satisfies ports.RateLimiter.
func (l *Limiter) Admit(ctx context.Context, key string) (ports.RateDecision, error) {
	if l.limit <= 0 {
		return ports.RateDecision{Allowed: true}, nil
	}
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1000
	}
	nowMs := l.now().UnixMilli()

	res, err := slidingLogScript.Run(ctx, l.client, []string{l.key(key)},
		nowMs, windowMs, l.limit, fmt.Sprintf("%d-%s", nowMs, uuid.NewString())).Int64Slice()
	if err != nil {
		return ports.RateDecision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return ports.RateDecision{}, errors.New("rate limit script: unexpected reply")
	}

	if res[0] == 1 {
		return ports.RateDecision{Allowed: true}, nil
	}
	retry := time.Duration(res[1]) * time.Millisecond
	if retry < 0 {
		retry = 0
	}
	return ports.RateDecision{Allowed: false, RetryAfter: retry}, nil
}

func (l *Limiter) key(k string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.prefix, k)
}
