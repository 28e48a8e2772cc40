package ratelimit

import "context"

// RateLimiter controls outbound gateway throughput per API method.
type RateLimiter interface {
	Allow(ctx context.Context, method string) (bool, error)
	Wait(ctx context.Context, method string) error
}
