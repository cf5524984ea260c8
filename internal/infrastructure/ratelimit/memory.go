// Package ratelimit holds the in-process login rate limiter.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
)

// ErrCapacity is returned when the limiter tracks too many distinct keys.
var ErrCapacity = errors.New("rate limiter capacity exceeded")

// MemoryLimiter is a sliding-log limiter: it remembers the admission time of
// every admitted event still inside the window, so no window-long interval
// ever contains more than Limit admissions. Throttled events are not logged.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	limit   int
	window  time.Duration
	maxKeys int
	logs    map[string][]time.Time
}

// MemoryLimiterConfig configures a MemoryLimiter.
type MemoryLimiterConfig struct {
	Limit   int
	Window  time.Duration
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) *MemoryLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &MemoryLimiter{
		now:     cfg.Now,
		limit:   cfg.Limit,
		window:  cfg.Window,
		maxKeys: cfg.MaxKeys,
		logs:    make(map[string][]time.Time),
	}
}

// Admit satisfies ports.RateLimiter. The whole check-and-record runs under
// one lock, so concurrent attempts for a key cannot overshoot the limit.
func (m *MemoryLimiter) Admit(_ context.Context, key string) (ports.RateDecision, error) {
	if m.limit <= 0 {
		return ports.RateDecision{Allowed: true}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	log, ok := m.logs[key]
	if !ok && len(m.logs) >= m.maxKeys {
		m.gc(now)
		if len(m.logs) >= m.maxKeys {
			return ports.RateDecision{}, ErrCapacity
		}
	}

	log = m.prune(log, now)
	if len(log) >= m.limit {
		m.logs[key] = log
		return ports.RateDecision{Allowed: false, RetryAfter: log[0].Add(m.window).Sub(now)}, nil
	}

	m.logs[key] = append(log, now)
	return ports.RateDecision{Allowed: true}, nil
}

// prune drops entries that are a full window old or older. log is sorted.
func (m *MemoryLimiter) prune(log []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(log) && now.Sub(log[i]) >= m.window {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}

func (m *MemoryLimiter) gc(now time.Time) {
	for key, log := range m.logs {
		if log = m.prune(log, now); len(log) == 0 {
			delete(m.logs, key)
		} else {
			m.logs[key] = log
		}
	}
}

// Keys returns the number of tracked keys.
func (m *MemoryLimiter) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}
