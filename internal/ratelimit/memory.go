package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a process-local sliding-window counter.
//
// Each key keeps the timestamps of its admitted requests. A timestamp counts
// while it is younger than the window. Keys whose newest timestamp has left
// the window are removed by Cleanup.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string][]time.Time

	window       time.Duration
	limit        int
	cleanupEvery time.Duration

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// MemoryOption customises a MemoryCounter.
type MemoryOption func(*MemoryCounter)

// WithCleanupEvery sets the janitor interval.
func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(m *MemoryCounter) { m.cleanupEvery = d }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCounter) { m.Now = now }
}

// NewMemoryCounter admits limit requests per window for each key. Values
// <= 0 fall back to the defaults.
func NewMemoryCounter(window time.Duration, limit int, opts ...MemoryOption) *MemoryCounter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	m := &MemoryCounter{
		entries:      make(map[string][]time.Time),
		window:       window,
		limit:        limit,
		cleanupEvery: DefaultCleanupEvery,
		Now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Admit implements Counter. It never returns an error.
func (m *MemoryCounter) Admit(_ context.Context, key string) (Decision, error) {
	now := m.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := live(m.entries[key], now, m.window)
	if len(hits) >= m.limit {
		m.entries[key] = hits
		return rejected(m.window), nil
	}
	hits = append(hits, now)
	m.entries[key] = hits
	return Decision{Allowed: true, Remaining: m.limit - len(hits)}, nil
}

// Cleanup drops keys with no request inside the window.
func (m *MemoryCounter) Cleanup() {
	now := m.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, hits := range m.entries {
		if len(hits) == 0 || now.Sub(hits[len(hits)-1]) >= m.window {
			delete(m.entries, k)
		}
	}
}

// Len reports the number of tracked keys.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// StartJanitor runs Cleanup every cleanup interval until ctx is done.
func (m *MemoryCounter) StartJanitor(ctx context.Context) {
	if m.cleanupEvery <= 0 {
		return
	}
	t := time.NewTicker(m.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Cleanup()
			}
		}
	}()
}

// live returns the suffix of hits still inside the window ending at now.
// hits is ordered oldest first.
func live(hits []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(hits) && now.Sub(hits[i]) >= window {
		i++
	}
	if i == 0 {
		return hits
	}
	out := make([]time.Time, len(hits)-i, cap(hits))
	copy(out, hits[i:])
	return out
}
