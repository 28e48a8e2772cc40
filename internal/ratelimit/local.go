package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

const defaultLimitPerSec = 25

// LocalRateLimiter is an in-process token bucket keyed by gateway
// method. It is the fallback when no Redis instance is configured;
// separate processes then rate-limit independently.
type LocalRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	limitPerSec int
}

var _ RateLimiter = (*LocalRateLimiter)(nil)

func NewLocalRateLimiter(limitPerSec int) *LocalRateLimiter {
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}
	return &LocalRateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		limitPerSec: limitPerSec,
	}
}

func (l *LocalRateLimiter) limiterFor(method string) (*rate.Limiter, error) {
	normalized := strings.ToLower(strings.TrimSpace(method))
	if normalized == "" {
		return nil, fmt.Errorf("method is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[normalized]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.limitPerSec), l.limitPerSec)
		l.limiters[normalized] = limiter
	}
	return limiter, nil
}

func (l *LocalRateLimiter) Allow(ctx context.Context, method string) (bool, error) {
	limiter, err := l.limiterFor(method)
	if err != nil {
		return false, err
	}
	return limiter.Allow(), nil
}

func (l *LocalRateLimiter) Wait(ctx context.Context, method string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	limiter, err := l.limiterFor(method)
	if err != nil {
		return err
	}
	return limiter.Wait(ctx)
}
