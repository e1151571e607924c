package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/response"
)

// RateLimiter is a fixed-window request limiter backed by Redis.
type RateLimiter struct {
	client  redis.Cmdable
	limit   int64
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewRateLimiter allows limit requests per key per window.
func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client:  client,
		limit:   int64(limit),
		window:  window,
		timeout: 500 * time.Millisecond,
		now:     time.Now,
	}
}

// Allow counts one hit for key and reports whether it is within the limit,
// the remaining budget and when the current window resets.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int64, time.Time, error) {
	windowMs := rl.window.Milliseconds()
	nowMs := rl.now().UnixMilli()
	windowStart := nowMs - nowMs%windowMs
	reset := time.UnixMilli(windowStart + windowMs)

	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, windowStart)

	count, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, rl.limit, reset, err
	}
	if count == 1 {
		if err := rl.client.PExpire(ctx, redisKey, rl.window).Err(); err != nil {
			return true, rl.limit - count, reset, err
		}
	}

	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, reset, nil
}

// Middleware limits by authenticated user, falling back to client IP.
// Redis failures let the request through.
func (rl *RateLimiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		key = scope + ":" + key

		ctx, cancel := context.WithTimeout(c.Request.Context(), rl.timeout)
		allowed, remaining, reset, err := rl.Allow(ctx, key)
		cancel()
		if err != nil {
			l := pkglog.Ctx(c.Request.Context())
			l.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			response.TooManyRequests(c, "too many requests")
			return
		}
		c.Next()
	}
}
