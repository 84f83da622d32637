package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := Limiter{Client: client, Prefix: "rl:"}

	ctx := context.Background()
	window := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "cb:203.0.113.7", window, max)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should fit in the window", i)
		}
		if remaining != max-(i+1) {
			t.Fatalf("remaining after request %d: got %d", i, remaining)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "cb:203.0.113.7", window, max)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("request past the limit should be rejected")
	}
	if remaining != 0 {
		t.Fatalf("remaining past the limit: got %d", remaining)
	}

	mr.FastForward(window)

	if allowed, _, _, err = limiter.Allow(ctx, "cb:203.0.113.7", window, max); err != nil {
		t.Fatalf("allow after window: %v", err)
	} else if !allowed {
		t.Fatal("window rolled over, request should be allowed again")
	}
}

func TestLimiterWithoutClientFailsOpen(t *testing.T) {
	var limiter Limiter
	allowed, _, _, err := limiter.Allow(context.Background(), "any", time.Second, 5)
	if err != nil || !allowed {
		t.Fatalf("nil client should fail open, got allowed=%v err=%v", allowed, err)
	}
}
