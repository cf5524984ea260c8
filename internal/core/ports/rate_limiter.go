package ports

import (
	"context"
	"time"
)

// RateDecision is the outcome of a single admission request.
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter bounds the number of admitted events per key in a sliding window.
type RateLimiter interface {
	Admit(ctx context.Context, key string) (RateDecision, error)
}
