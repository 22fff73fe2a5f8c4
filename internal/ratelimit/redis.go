package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims scores at or before now-window, then admits the
// request if fewer than limit remain. It returns {allowed, count}.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return {0, count}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1}
`)

// RedisCounter is a sliding-window counter shared by every replica that
// talks to the same Redis. Each key is a sorted set of request timestamps.
type RedisCounter struct {
	rdb    redis.Scripter
	prefix string
	window time.Duration
	limit  int

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// RedisOption customises a RedisCounter.
type RedisOption func(*RedisCounter)

// WithPrefix namespaces the Redis keys.
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisCounter) { r.prefix = strings.Trim(prefix, ":") }
}

// NewRedisCounter admits limit requests per window for each key.
func NewRedisCounter(rdb redis.Scripter, window time.Duration, limit int, opts ...RedisOption) *RedisCounter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	r := &RedisCounter{
		rdb:    rdb,
		prefix: "zync:rl",
		window: window,
		limit:  limit,
		Now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Admit implements Counter.
func (r *RedisCounter) Admit(ctx context.Context, key string) (Decision, error) {
	now := r.Now().UnixMilli()
	res, err := slidingWindow.Run(ctx, r.rdb,
		[]string{r.prefix + ":" + key},
		now, r.window.Milliseconds(), r.limit, fmt.Sprintf("%d-%s", now, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis sliding window: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("redis sliding window: unexpected reply %v", res)
	}
	if res[0] == 0 {
		return rejected(r.window), nil
	}
	return Decision{Allowed: true, Remaining: r.limit - int(res[1])}, nil
}
