package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestTokenBucket_TakeAndRefill(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	b := newTokenBucket(3, 1.0, now)

	for i := 0; i < 3; i++ {
		assert.True(t, b.take(now), "request %d", i+1)
	}
	assert.False(t, b.take(now))

	remaining, reset := b.status(now)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, now.Add(3*time.Second), reset)

	now = now.Add(time.Second)
	assert.True(t, b.take(now))
	assert.False(t, b.take(now))
}

func TestLimiter_PipelineEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EndpointConfigs = PipelineEndpoints(60, time.Minute, 2)
	l, clock := newTestLimiter(t, cfg)

	allowed, info := l.Allow("10.0.0.1", "/run-pipeline", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 60, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	allowed, _ = l.Allow("10.0.0.1", "/run-pipeline", "POST")
	assert.True(t, allowed)

	allowed, info = l.Allow("10.0.0.1", "/run-pipeline", "POST")
	assert.False(t, allowed)
	assert.Equal(t, time.Second, info.RetryAfter)

	// Another client has its own bucket.
	allowed, _ = l.Allow("10.0.0.2", "/run-pipeline", "POST")
	assert.True(t, allowed)

	clock.Advance(time.Second)
	allowed, _ = l.Allow("10.0.0.1", "/run-pipeline", "POST")
	assert.True(t, allowed)
}

func TestLimiter_ProbesAreUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 1
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", "/health", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}

	allowed, _ := l.Allow("10.0.0.1", "/pipelines", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("10.0.0.1", "/pipelines", "GET")
	assert.False(t, allowed, "default limit applies to other routes")
}

func TestLimiter_Lists(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 1
	cfg.Whitelist = IPSet([]string{"10.0.0.9", " "})
	cfg.Blacklist = IPSet([]string{"10.0.0.6"})
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("10.0.0.9", "/pipelines", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.6", "/health", "GET")
	assert.False(t, allowed)
	assert.Len(t, cfg.Whitelist, 1)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false})
	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/run-pipeline", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(t, DefaultConfig())
	l.Allow("10.0.0.1", "/pipelines", "GET")
	require.Len(t, l.buckets, 1)

	clock.Advance(30 * time.Minute)
	l.cleanup()
	assert.Len(t, l.buckets, 1)

	clock.Advance(31 * time.Minute)
	l.cleanup()
	assert.Empty(t, l.buckets)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/run-pipeline", Method: "POST", Limit: 5},
		{Path: "/admin/", Method: "POST", Limit: 1},
	}

	tests := []struct {
		name     string
		path     string
		method   string
		wantPath string
		wantNil  bool
	}{
		{name: "exact", path: "/run-pipeline", method: "POST", wantPath: "/run-pipeline"},
		{name: "prefix", path: "/admin/reload", method: "POST", wantPath: "/admin/"},
		{name: "method mismatch", path: "/run-pipeline", method: "GET", wantNil: true},
		{name: "health", path: "/health", method: "GET", wantPath: "/health"},
		{name: "no match", path: "/pipelines", method: "GET", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}
