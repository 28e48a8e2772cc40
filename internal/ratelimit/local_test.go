package ratelimit

import (
	"context"
	"testing"
)

func TestLocalRateLimiterAllowWithinBurst(t *testing.T) {
	t.Parallel()

	limiter := NewLocalRateLimiter(2)

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "sendMessage")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("Allow() call %d = false, want true", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "sendMessage")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("Allow() over burst = true, want false")
	}
}

func TestLocalRateLimiterMethodsAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := NewLocalRateLimiter(1)

	if allowed, _ := limiter.Allow(context.Background(), "sendMessage"); !allowed {
		t.Fatal("first sendMessage should be allowed")
	}
	if allowed, _ := limiter.Allow(context.Background(), "sendPoll"); !allowed {
		t.Fatal("first sendPoll should be allowed despite exhausted sendMessage bucket")
	}
}

func TestLocalRateLimiterRequiresMethod(t *testing.T) {
	t.Parallel()

	limiter := NewLocalRateLimiter(1)
	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("Allow() with blank method expected error, got nil")
	}
	if err := limiter.Wait(context.Background(), ""); err == nil {
		t.Fatal("Wait() with blank method expected error, got nil")
	}
}
