package ratelimit

import (
	"context"
	"fmt"
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

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func TestMemoryCounter_ThirtyThenReject(t *testing.T) {
	clk := newClock()
	m := NewMemoryCounter(DefaultWindow, DefaultLimit, WithClock(clk.Now))
	ctx := context.Background()

	for i := 1; i <= 30; i++ {
		d, err := m.Admit(ctx, "203.0.113.7")
		if err != nil {
			t.Fatalf("Admit: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
		if d.Remaining != 30-i {
			t.Fatalf("remaining after %d = %d", i, d.Remaining)
		}
		clk.Advance(100 * time.Millisecond)
	}

	d, _ := m.Admit(ctx, "203.0.113.7")
	if d.Allowed {
		t.Fatalf("31st request should be rejected")
	}
	if d.RetryAfter != 60*time.Second {
		t.Fatalf("retryAfter = %v; want 60s", d.RetryAfter)
	}

	other, _ := m.Admit(ctx, "198.51.100.1")
	if !other.Allowed {
		t.Fatalf("keys must be independent")
	}
}

func TestMemoryCounter_WindowSlides(t *testing.T) {
	clk := newClock()
	m := NewMemoryCounter(time.Minute, 2, WithClock(clk.Now))
	ctx := context.Background()

	m.Admit(ctx, "k") // t0
	clk.Advance(30 * time.Second)
	m.Admit(ctx, "k") // t0+30s

	if d, _ := m.Admit(ctx, "k"); d.Allowed {
		t.Fatalf("quota exhausted, want reject")
	}

	// Rejections are not recorded; once t0 leaves the window one slot frees.
	clk.Advance(30 * time.Second)
	if d, _ := m.Admit(ctx, "k"); !d.Allowed {
		t.Fatalf("oldest hit left the window, want admit")
	}
	if d, _ := m.Admit(ctx, "k"); d.Allowed {
		t.Fatalf("window full again, want reject")
	}
}

func TestMemoryCounter_Cleanup(t *testing.T) {
	clk := newClock()
	m := NewMemoryCounter(time.Minute, 5, WithClock(clk.Now))
	ctx := context.Background()

	m.Admit(ctx, "old")
	clk.Advance(45 * time.Second)
	m.Admit(ctx, "fresh")
	clk.Advance(15 * time.Second)

	m.Cleanup()
	if m.Len() != 1 {
		t.Fatalf("Len = %d; want 1", m.Len())
	}
	if _, ok := m.entries["fresh"]; !ok {
		t.Fatalf("fresh key should survive cleanup")
	}
}

func TestMemoryCounter_Defaults(t *testing.T) {
	m := NewMemoryCounter(0, 0)
	if m.window != DefaultWindow || m.limit != DefaultLimit || m.cleanupEvery != DefaultCleanupEvery {
		t.Fatalf("defaults not applied: %v %d %v", m.window, m.limit, m.cleanupEvery)
	}
}

func TestMemoryCounter_ConcurrentAdmitsRespectLimit(t *testing.T) {
	clk := newClock()
	m := NewMemoryCounter(time.Minute, 30, WithClock(clk.Now))
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := m.Admit(ctx, "shared")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 30 {
		t.Fatalf("allowed = %d; want 30", allowed)
	}
}

func TestMemoryCounter_StartJanitor(t *testing.T) {
	clk := newClock()
	m := NewMemoryCounter(time.Minute, 5, WithClock(clk.Now), WithCleanupEvery(5*time.Millisecond))
	for i := 0; i < 10; i++ {
		m.Admit(context.Background(), fmt.Sprintf("k%d", i))
	}
	clk.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for m.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not purge idle keys, Len = %d", m.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
