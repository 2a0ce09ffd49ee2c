package cache

import (
	"context"
	"testing"
	"time"

	"career-gap-web/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryResultCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryResultCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, ok := c.Get(ctx, "u1:7")
	assert.False(t, ok)

	c.Set(ctx, "u1:7", &domain.AnalysisResult{ID: 7, MatchScore: 81})
	got, ok := c.Get(ctx, "u1:7")
	require.True(t, ok)
	assert.Equal(t, 81.0, got.MatchScore)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "u1:7")
	assert.False(t, ok)
}

func TestRedisResultCacheDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewResultCache(client, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "u1:7", &domain.AnalysisResult{ID: 7})
	_, ok := c.Get(ctx, "u1:7")
	assert.False(t, ok)
}

func TestNewResultCacheFallsBackToMemory(t *testing.T) {
	c := NewResultCache(nil, time.Minute)
	_, isMemory := c.(*MemoryResultCache)
	assert.True(t, isMemory)
}
