package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()
	alice := GrantKey{Username: "alice", ClientIP: "10.0.0.1"}

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, alice, 2, time.Minute)
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d: expected allowed, got %+v %v", i, d, err)
		}
	}
	d, err := limiter.Allow(ctx, alice, 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 || !d.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected third attempt to be blocked, got %+v", d)
	}

	now = now.Add(61 * time.Second)
	d, err = limiter.Allow(ctx, alice, 2, time.Minute)
	if err != nil || !d.Allowed || d.Remaining != 1 {
		t.Fatalf("expected fresh window, got %+v %v", d, err)
	}
}

func TestMemoryLimiterKeysByAccountAndClient(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	ctx := context.Background()
	if d, _ := limiter.Allow(ctx, GrantKey{Username: "Alice", ClientIP: "10.0.0.1"}, 1, time.Minute); !d.Allowed {
		t.Fatalf("first attempt blocked")
	}
	if d, _ := limiter.Allow(ctx, GrantKey{Username: " alice ", ClientIP: "10.0.0.1"}, 1, time.Minute); d.Allowed {
		t.Fatalf("username case should not open a new window")
	}
	if d, _ := limiter.Allow(ctx, GrantKey{Username: "bob", ClientIP: "10.0.0.1"}, 1, time.Minute); !d.Allowed {
		t.Fatalf("another account from the same client should be allowed")
	}
	if d, _ := limiter.Allow(ctx, GrantKey{Username: "alice", ClientIP: "10.0.0.2"}, 1, time.Minute); !d.Allowed {
		t.Fatalf("the same account from another client should be allowed")
	}
}

func TestMemoryLimiterForget(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	ctx := context.Background()
	key := GrantKey{Username: "alice", ClientIP: "10.0.0.1"}
	limiter.Allow(ctx, key, 1, time.Minute)
	if err := limiter.Forget(ctx, GrantKey{Username: "ALICE", ClientIP: "10.0.0.1"}); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if limiter.Tracked() != 0 {
		t.Fatalf("expected window to be dropped, %d tracked", limiter.Tracked())
	}
	if d, _ := limiter.Allow(ctx, key, 1, time.Minute); !d.Allowed {
		t.Fatalf("expected attempts to start over after forget")
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }, MaxKeys: 1})
	ctx := context.Background()
	if _, err := limiter.Allow(ctx, GrantKey{Username: "a"}, 1, time.Minute); err != nil {
		t.Fatalf("allow a: %v", err)
	}
	if _, err := limiter.Allow(ctx, GrantKey{Username: "b"}, 1, time.Minute); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := limiter.Allow(ctx, GrantKey{Username: "b"}, 1, time.Minute); err != nil {
		t.Fatalf("expected expired windows to be evicted, got %v", err)
	}
}

func TestUnlimited(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	d, err := limiter.Allow(context.Background(), GrantKey{Username: "k"}, 0, time.Minute)
	if err != nil || !d.Allowed || limiter.Tracked() != 0 {
		t.Fatalf("expected disabled limiter to allow without tracking, got %+v %v", d, err)
	}
}
