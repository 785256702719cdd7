package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSlidingWindowAllow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := SlidingWindow{Client: client, Prefix: "test:", Window: 2 * time.Second, Max: 2}

	ctx := context.Background()
	for i := 0; i < limiter.Max; i++ {
		decision, err := limiter.Allow(ctx, "key")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if decision.Remaining != limiter.Max-(i+1) {
			t.Fatalf("unexpected remaining: %d", decision.Remaining)
		}
	}

	decision, err := limiter.Allow(ctx, "key")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected third request to be rejected")
	}
	if decision.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", decision.Remaining)
	}
}

func TestSlidingWindowWithoutClientAllows(t *testing.T) {
	decision, err := SlidingWindow{Window: time.Second, Max: 1}.Allow(context.Background(), "key")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected unconfigured limiter to allow")
	}
}
