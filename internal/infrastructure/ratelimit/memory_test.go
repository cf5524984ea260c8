package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(limit int, window time.Duration) (*MemoryLimiter, *manualClock) {
	clock := &manualClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryLimiter(MemoryLimiterConfig{Limit: limit, Window: window, Now: clock.Now}), clock
}

func TestMemoryLimiter_FiveThenThrottled(t *testing.T) {
	l, clock := newLimiter(5, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := l.Admit(ctx, "10.0.0.1")
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d: expected admitted, got %+v err=%v", i, d, err)
		}
		clock.Advance(2 * time.Second)
	}

	d, err := l.Admit(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatalf("6th attempt within the window must be throttled")
	}
	if d.RetryAfter != 50*time.Second {
		t.Fatalf("expected retry after 50s, got %s", d.RetryAfter)
	}
}

func TestMemoryLimiter_AdmitsAgainAfterWindow(t *testing.T) {
	l, clock := newLimiter(5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = l.Admit(ctx, "k")
	}
	if d, _ := l.Admit(ctx, "k"); d.Allowed {
		t.Fatalf("expected throttle")
	}

	clock.Advance(time.Minute)
	for i := 1; i <= 5; i++ {
		if d, _ := l.Admit(ctx, "k"); !d.Allowed {
			t.Fatalf("attempt %d after window: expected admitted", i)
		}
	}
}

func TestMemoryLimiter_NoDoubleBurstAtBoundary(t *testing.T) {
	l, clock := newLimiter(5, time.Minute)
	ctx := context.Background()

	clock.Advance(59 * time.Second)
	for i := 0; i < 5; i++ {
		_, _ = l.Admit(ctx, "k")
	}
	clock.Advance(2 * time.Second)

	if d, _ := l.Admit(ctx, "k"); d.Allowed {
		t.Fatalf("sliding window must not reset at a tick boundary")
	}
}

func TestMemoryLimiter_ThrottledAttemptsAreNotCounted(t *testing.T) {
	l, clock := newLimiter(2, 10*time.Second)
	ctx := context.Background()

	_, _ = l.Admit(ctx, "k")
	clock.Advance(5 * time.Second)
	_, _ = l.Admit(ctx, "k")
	for i := 0; i < 10; i++ {
		_, _ = l.Admit(ctx, "k")
	}

	clock.Advance(5 * time.Second)
	if d, _ := l.Admit(ctx, "k"); !d.Allowed {
		t.Fatalf("oldest admission left the window; expected one free slot")
	}
}

func TestMemoryLimiter_ConcurrentSameKey(t *testing.T) {
	l, _ := newLimiter(5, time.Minute)
	ctx := context.Background()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, _ := l.Admit(ctx, "same"); d.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 5 {
		t.Fatalf("expected exactly 5 admitted, got %d", got)
	}
}

func TestMemoryLimiter_CapacityAndGC(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	l := NewMemoryLimiter(MemoryLimiterConfig{Limit: 1, Window: time.Second, Now: clock.Now, MaxKeys: 2})
	ctx := context.Background()

	_, _ = l.Admit(ctx, "a")
	_, _ = l.Admit(ctx, "b")
	if _, err := l.Admit(ctx, "c"); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}

	clock.Advance(time.Second)
	if d, err := l.Admit(ctx, "c"); err != nil || !d.Allowed {
		t.Fatalf("expected expired keys to be collected, got %+v err=%v", d, err)
	}
	if l.Keys() != 1 {
		t.Fatalf("expected 1 tracked key after gc, got %d", l.Keys())
	}
}

func TestMemoryLimiter_ZeroLimitDisables(t *testing.T) {
	l, _ := newLimiter(0, time.Minute)
	for i := 0; i < 20; i++ {
		if d, _ := l.Admit(context.Background(), "k"); !d.Allowed {
			t.Fatalf("limit 0 should disable throttling")
		}
	}
}
