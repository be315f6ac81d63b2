package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(config Config) (*Cache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](config)
	c.now = clock.Now
	return c, clock
}

func TestNew_AppliesDefaults(t *testing.T) {
	c := New[int](Config{})
	assert.Equal(t, DefaultConfig().MaxSize, c.maxSize)
	assert.Equal(t, DefaultConfig().DefaultTTL, c.defaultTTL)
	assert.Equal(t, 0, c.Len())
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(DefaultConfig())

	c.Set("/content/dam/a.jpg", "PUBLISHED")
	value, ok := c.Get("/content/dam/a.jpg")
	assert.True(t, ok)
	assert.Equal(t, "PUBLISHED", value)

	value, ok = c.Get("/content/dam/missing.jpg")
	assert.False(t, ok)
	assert.Empty(t, value)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRatio(), 0.001)
}

func TestCache_TTL(t *testing.T) {
	c, clock := newTestCache(DefaultConfig())

	c.SetWithTTL("key", "value", time.Minute)
	_, ok := c.Get("key")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Expirations)
	assert.Equal(t, 0, c.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(Config{MaxSize: 2, DefaultTTL: time.Hour})

	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_GetOrSet(t *testing.T) {
	c, _ := newTestCache(DefaultConfig())
	calls := 0
	provider := func() (string, error) {
		calls++
		return "DRAFT", nil
	}

	value, err := c.GetOrSet("key", provider)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", value)

	value, err = c.GetOrSet("key", provider)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", value)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrSetDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(DefaultConfig())

	_, err := c.GetOrSet("key", func() (string, error) { return "", errors.New("network error") })
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(DefaultConfig())
	c.Set("a", "1")
	c.Set("b", "2")

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ExpireEntries(t *testing.T) {
	c, clock := newTestCache(DefaultConfig())
	c.SetWithTTL("short", "1", time.Second)
	c.SetWithTTL("forever", "2", 0)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.ExpireEntries())
	assert.Equal(t, 1, c.Len())
}

func TestCache_StartCleanupStopsWithContext(t *testing.T) {
	c := New[string](Config{MaxSize: 10, DefaultTTL: time.Millisecond})
	c.Set("key", "value")

	ctx, cancel := context.WithCancel(context.Background())
	c.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}
