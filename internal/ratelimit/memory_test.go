package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	l, err := NewMemoryLimiter(Config{Max: 10, Window: time.Minute}, clk.Now)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	return l, clk
}

func TestMemoryLimiter_EleventhRequestRejected(t *testing.T) {
	l, clk := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		ok, err := l.Allow(ctx, "key-a")
		if err != nil || !ok {
			t.Fatalf("request %d should be allowed (ok=%v err=%v)", i, ok, err)
		}
		clk.Advance(time.Second)
	}
	if ok, _ := l.Allow(ctx, "key-a"); ok {
		t.Fatalf("11th request should be rejected")
	}
	if ok, _ := l.Allow(ctx, "key-b"); !ok {
		t.Fatalf("other keys are independent")
	}
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	l, clk := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		_, _ = l.Allow(ctx, "k")
	}
	clk.Advance(60 * time.Second)
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("window has not elapsed at exactly 60s")
	}
	clk.Advance(5 * time.Second)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("request at 65s should open a new window")
	}
}

func TestMemoryLimiter_RejectedRequestsAreNotCounted(t *testing.T) {
	l, clk := newTestLimiter(t)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		_, _ = l.Allow(ctx, "k")
	}
	clk.Advance(61 * time.Second)
	for i := 1; i <= 10; i++ {
		if ok, _ := l.Allow(ctx, "k"); !ok {
			t.Fatalf("request %d in fresh window should pass", i)
		}
	}
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	l, clk := newTestLimiter(t)
	ctx := context.Background()
	_, _ = l.Allow(ctx, "a")
	_, _ = l.Allow(ctx, "b")
	if n := l.Sweep(); n != 0 {
		t.Fatalf("nothing should expire yet, dropped %d", n)
	}
	clk.Advance(2 * time.Minute)
	if n := l.Sweep(); n != 2 {
		t.Fatalf("expected 2 dropped, got %d", n)
	}
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 10 {
		t.Fatalf("expected exactly 10 admitted, got %d", allowed)
	}
}

func TestNewMemoryLimiter_InvalidConfig(t *testing.T) {
	if _, err := NewMemoryLimiter(Config{}, nil); err != ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
