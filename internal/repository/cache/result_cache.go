// Package cache keeps fetched analysis results close to the UI. Redis is used
// when configured; otherwise results live in process memory.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cgw:result:"

// NewResultCache returns a Redis backed cache when client is non-nil and an
// in-memory one otherwise.
func NewResultCache(client *redis.Client, ttl time.Duration) domain.ResultCache {
	if client != nil {
		return &redisResultCache{client: client, ttl: ttl}
	}
	return NewMemoryResultCache(ttl)
}

type redisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Get treats every Redis failure as a miss; the backend is the source of truth.
func (c *redisResultCache) Get(ctx context.Context, key string) (*domain.AnalysisResult, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Result cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *redisResultCache) Set(ctx context.Context, key string, result *domain.AnalysisResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		logger.Log.Warn("Result cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

type memoryEntry struct {
	result    *domain.AnalysisResult
	expiresAt time.Time
}

type MemoryResultCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryResultCache(ttl time.Duration) *MemoryResultCache {
	return &MemoryResultCache{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (c *MemoryResultCache) Get(_ context.Context, key string) (*domain.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.result, true
}

func (c *MemoryResultCache) Set(_ context.Context, key string, result *domain.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// sweep on write so the map stays bounded by the live set
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{result: result, expiresAt: now.Add(c.ttl)}
}
