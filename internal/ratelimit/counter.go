// Package ratelimit provides sliding-window request counters keyed by an
// arbitrary identity (usually the client address).
//
// A Counter answers one question per request: may this key make another
// request now? Admission records the request; rejection does not, so a
// client that keeps hammering is admitted again as soon as its oldest
// admitted request leaves the window.
//
// Two implementations are provided:
//   - MemoryCounter: process-local, guarded by a mutex, with a janitor that
//     purges idle keys.
//   - RedisCounter: shared across replicas via a sorted set per key, updated
//     atomically by a Lua script.
package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultWindow is the sliding window length.
	DefaultWindow = 60 * time.Second
	// DefaultLimit is the number of requests admitted per window.
	DefaultLimit = 30
	// DefaultCleanupEvery is how often idle keys are purged.
	DefaultCleanupEvery = 5 * time.Minute
)

// Decision is the outcome of one admission check.
type Decision struct {
	// Allowed reports whether the request was admitted and recorded.
	Allowed bool
	// Remaining is how many more requests the key may make in the window.
	Remaining int
	// RetryAfter is the advertised wait before retrying; zero when allowed.
	RetryAfter time.Duration
}

// Counter is the check-and-increment abstraction behind the rate-limit
// middleware. Implementations must be safe for concurrent use and must make
// the check and the increment atomic per key.
type Counter interface {
	Admit(ctx context.Context, key string) (Decision, error)
}

func rejected(window time.Duration) Decision {
	return Decision{Allowed: false, Remaining: 0, RetryAfter: window}
}
