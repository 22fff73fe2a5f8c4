// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file adapts a ratelimit.Counter into Gin middleware. Each request is
// keyed (by default on the client address), checked against the counter,
// and either passed on or answered with 429 and a Retry-After header.
//
// The counter is pluggable: ratelimit.MemoryCounter for a single process,
// ratelimit.RedisCounter when several replicas must share one budget.
// When the counter itself fails (for example Redis is unreachable) the
// request is let through and the failure is logged; the limiter guards
// against abuse and is not an authorization mechanism.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/zync-backend/internal/observability"
	"github.com/tbourn/zync-backend/internal/ratelimit"
)

// rateLimitMessage is the caller-facing text of a 429.
const rateLimitMessage = "Rate limit exceeded. Please try again later."

// keyFunc selects the identity used to key the counter.
type keyFunc func(*gin.Context) string

// KeyByClientIP keys requests on gin's ClientIP, which honours the
// forwarding headers configured on the engine (X-Forwarded-For, X-Real-IP,
// CF-Connecting-IP) only for trusted proxies.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// RateLimiter enforces a ratelimit.Counter on the routes it is installed on.
type RateLimiter struct {
	counter ratelimit.Counter
	keyFn   keyFunc

	// Rejections and counter faults can arrive in floods; log a sample.
	rejectLog rate.Sometimes
	faultLog  rate.Sometimes
}

// NewRateLimiter wraps counter. A nil keyFn selects KeyByClientIP.
func NewRateLimiter(counter ratelimit.Counter, keyFn keyFunc) *RateLimiter {
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return &RateLimiter{
		counter:   counter,
		keyFn:     keyFn,
		rejectLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
		faultLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Handler returns the Gin middleware.
//
// A rejected request receives:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 60
//	{
//	  "request_id":  "<uuid>",
//	  "code":        "too_many_requests",
//	  "error":       "Rate limit exceeded. Please try again later.",
//	  "retry_after": 60
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.keyFn(c)

		d, err := rl.counter.Admit(c.Request.Context(), key)
		if err != nil {
			rl.faultLog.Do(func() {
				log.Error().Err(err).Str("key", key).Msg("rate limiter unavailable, admitting request")
			})
			c.Next()
			return
		}
		if d.Allowed {
			c.Next()
			return
		}

		observability.RateLimitRejected.Inc()
		rl.rejectLog.Do(func() {
			log.Warn().Str("key", key).Dur("retry_after", d.RetryAfter).Msg("rate limit exceeded")
		})

		secs := retryAfterSeconds(d.RetryAfter)
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id":  RequestIDFrom(c),
			"code":        "too_many_requests",
			"error":       rateLimitMessage,
			"retry_after": secs,
		})
	}
}

// retryAfterSeconds rounds d up to whole seconds, minimum 1.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
