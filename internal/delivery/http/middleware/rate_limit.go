package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"
	"career-gap-web/pkg/logger"
	"career-gap-web/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Key extractor (default: client IP)
	KeyFunc func(*gin.Context) string
	// Key prefix in Redis
	KeyPrefix string
	// Reject instead of falling back to memory when Redis errors
	FailClosed bool
}

// Fixed window counter: INCR, with the TTL set on the first hit.
// KEYS[1] = counter key, ARGV[1] = window in seconds.
// Returns {hits, seconds left in the window}.
const windowCounterScript = `
local hits = redis.call('INCR', KEYS[1])
if hits == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return {hits, redis.call('TTL', KEYS[1])}
`

// window is one fixed counting window.
type window struct {
	hits    int
	resetAt time.Time
}

// memoryWindows counts hits per key in process memory. It is used when Redis
// is not configured or is failing.
type memoryWindows struct {
	mu      sync.Mutex
	windows map[string]*window
	swept   time.Time
}

var fallbackWindows = &memoryWindows{windows: make(map[string]*window)}

func (m *memoryWindows) hit(key string, length time.Duration, now time.Time) (int, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.swept) > 5*time.Minute {
		for k, w := range m.windows {
			if now.After(w.resetAt) {
				delete(m.windows, k)
			}
		}
		m.swept = now
	}

	w, ok := m.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(length)}
		m.windows[key] = w
	}
	w.hits++
	return w.hits, w.resetAt
}

func redisHit(ctx context.Context, client *goredis.Client, key string, length time.Duration) (int, time.Time, error) {
	res, err := client.Eval(ctx, windowCounterScript, []string{key}, int(length.Seconds())).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.New("rate limit: unexpected script reply")
	}
	return int(res[0]), time.Now().Add(time.Duration(res[1]) * time.Second), nil
}

// LoginRateLimitConfig limits login and registration attempts per client IP.
func LoginRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:login:",
		FailClosed: true,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// AnalysisRateLimitConfig limits analysis submissions per session, falling
// back to the client IP for anonymous callers.
func AnalysisRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "rl:analysis:",
		KeyFunc: func(c *gin.Context) string {
			if sess := SessionFrom(c); sess != nil {
				return sess.Owner()
			}
			return c.ClientIP()
		},
	}
}

// RateLimitMiddleware creates a rate limiting middleware with the given config.
// Uses Redis when available and falls back to process memory otherwise.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		key := config.KeyPrefix + config.KeyFunc(c)

		hits, resetAt, ok := countHit(c.Request.Context(), key, config)
		if !ok {
			response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", nil)
			c.Abort()
			return
		}

		remaining := config.Limit - hits
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if hits <= config.Limit {
			c.Next()
			return
		}

		retryAfter := int(time.Until(resetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))

		logger.Log.Warn("Rate limit triggered",
			slog.String("request_id", c.GetString(string(domain.KeyRequestID))),
			slog.String("key_prefix", config.KeyPrefix),
			slog.String("ip", c.ClientIP()),
			slog.String("path", c.FullPath()))

		response.Error(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
		c.Abort()
	}
}

// countHit records one request. ok is false only when Redis failed and the
// config fails closed.
func countHit(ctx context.Context, key string, config RateLimitConfig) (hits int, resetAt time.Time, ok bool) {
	if client := redis.Client(); client != nil {
		hits, resetAt, err := redisHit(ctx, client, key, config.Window)
		if err == nil {
			return hits, resetAt, true
		}
		logger.Log.Warn("Rate limit store unavailable",
			slog.String("key_prefix", config.KeyPrefix),
			slog.String("error", err.Error()))
		if config.FailClosed {
			return 0, time.Time{}, false
		}
	}
	hits, resetAt = fallbackWindows.hit(key, config.Window, time.Now())
	return hits, resetAt, true
}
