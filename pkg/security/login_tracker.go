// Package security holds the failed-login lockout shared by the auth handlers.
package security

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"career-gap-web/pkg/logger"
	"career-gap-web/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
)

// LoginTrackerConfig holds configuration for login tracking
type LoginTrackerConfig struct {
	MaxAttempts   int           // failed attempts before a block (default: 5)
	AttemptWindow time.Duration // window the failures are counted in (default: 15min)
	BlockDuration time.Duration // how long a block lasts (default: 15min)
}

// DefaultLoginTrackerConfig returns sensible defaults
func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
	}
}

// Redis key patterns
const (
	failLoginPrefix    = "cgw:fail:login:"
	blockedLoginPrefix = "cgw:blocked:login:"
)

// KEYS[1] = counter key, ARGV[1] = TTL in seconds.
// Returns the count after the increment.
const incrWithTTLScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

type memAttempts struct {
	count        int
	resetAt      time.Time
	blockedUntil time.Time
}

// LoginTracker counts failed logins per email and blocks the address for a
// while once the limit is hit. Redis keeps the counters when it is
// configured, process memory otherwise or when Redis errors.
type LoginTracker struct {
	config LoginTrackerConfig
	client func() *goredis.Client
	log    *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	mem map[string]*memAttempts
}

func NewLoginTracker(config LoginTrackerConfig) *LoginTracker {
	def := DefaultLoginTrackerConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.AttemptWindow <= 0 {
		config.AttemptWindow = def.AttemptWindow
	}
	if config.BlockDuration <= 0 {
		config.BlockDuration = def.BlockDuration
	}
	return &LoginTracker{
		config: config,
		client: redis.Client,
		log:    logger.Log,
		now:    time.Now,
		mem:    make(map[string]*memAttempts),
	}
}

// Blocked reports whether the email is locked out and for how much longer.
func (lt *LoginTracker) Blocked(ctx context.Context, email string) (time.Duration, bool) {
	email = normalizeEmail(email)
	if email == "" {
		return 0, false
	}

	if client := lt.client(); client != nil {
		ttl, err := client.TTL(ctx, blockedLoginPrefix+email).Result()
		if err == nil {
			return ttl, ttl > 0
		}
		lt.warn("check block", err)
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()
	entry, ok := lt.mem[email]
	if !ok {
		return 0, false
	}
	if left := entry.blockedUntil.Sub(lt.now()); left > 0 {
		return left, true
	}
	return 0, false
}

// RecordFailure counts one failed login and reports whether the email is now
// blocked.
func (lt *LoginTracker) RecordFailure(ctx context.Context, email string) (bool, int) {
	email = normalizeEmail(email)
	if email == "" {
		return false, 0
	}

	if client := lt.client(); client != nil {
		count, err := lt.incrementRedis(ctx, client, email)
		if err == nil {
			if count < lt.config.MaxAttempts {
				return false, count
			}
			if err := client.Set(ctx, blockedLoginPrefix+email, "1", lt.config.BlockDuration).Err(); err != nil {
				lt.warn("set block", err)
			}
			lt.log.Warn("Login blocked after repeated failures", slog.Int("attempts", count))
			return true, count
		}
		lt.warn("count failure", err)
	}

	now := lt.now()
	lt.mu.Lock()
	defer lt.mu.Unlock()
	entry, ok := lt.mem[email]
	if !ok || now.After(entry.resetAt) {
		entry = &memAttempts{resetAt: now.Add(lt.config.AttemptWindow), blockedUntil: blockedUntil(entry)}
		lt.mem[email] = entry
	}
	entry.count++
	if entry.count < lt.config.MaxAttempts {
		return false, entry.count
	}
	entry.blockedUntil = now.Add(lt.config.BlockDuration)
	lt.log.Warn("Login blocked after repeated failures", slog.Int("attempts", entry.count))
	return true, entry.count
}

// Clear forgets the failures after a successful login.
func (lt *LoginTracker) Clear(ctx context.Context, email string) {
	email = normalizeEmail(email)
	if email == "" {
		return
	}
	if client := lt.client(); client != nil {
		if err := client.Del(ctx, failLoginPrefix+email).Err(); err != nil {
			lt.warn("clear attempts", err)
		}
	}
	lt.mu.Lock()
	delete(lt.mem, email)
	lt.mu.Unlock()
}

func (lt *LoginTracker) incrementRedis(ctx context.Context, client *goredis.Client, email string) (int, error) {
	ttl := int(lt.config.AttemptWindow.Seconds())
	result, err := client.Eval(ctx, incrWithTTLScript, []string{failLoginPrefix + email}, ttl).Result()
	if err != nil {
		return 0, err
	}
	count, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Lua script")
	}
	return int(count), nil
}

func (lt *LoginTracker) warn(op string, err error) {
	lt.log.Warn("Login tracker falling back to memory",
		slog.String("op", op),
		slog.String("error", err.Error()))
}

func blockedUntil(prev *memAttempts) time.Time {
	if prev == nil {
		return time.Time{}
	}
	return prev.blockedUntil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
