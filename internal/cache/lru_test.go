package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	c := NewLRUCache[string](size, ttl)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRU_SlidingExpiry(t *testing.T) {
	c, now := newTestCache(4, time.Minute)
	c.Set("a", "1")

	*now = now.Add(50 * time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	*now = now.Add(50 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok, "read should have extended the entry")

	*now = now.Add(2 * time.Minute)
	_, ok = c.Peek("a")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRU_CapacityEvictsLeastRecent(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	var evicted []string
	c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, c.Size())

	c.Delete("a")
	assert.Equal(t, []string{"b"}, evicted, "explicit delete does not fire the hook")
}

func TestLRU_GetOrCreate(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	calls := 0
	mk := func() string { calls++; return "fresh" }

	v, created := c.GetOrCreate("k", mk)
	assert.True(t, created)
	assert.Equal(t, "fresh", v)

	v, created = c.GetOrCreate("k", mk)
	assert.False(t, created)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, calls)
}

func TestLRU_CleanExpired(t *testing.T) {
	c, now := newTestCache(8, time.Minute)
	var evicted []string
	c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

	c.Set("a", "1")
	*now = now.Add(30 * time.Second)
	c.Set("b", "2")
	*now = now.Add(45 * time.Second)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, []string{"a"}, evicted)
	assert.Equal(t, 1, c.Size())
}

func TestManager_StartStop(t *testing.T) {
	c := NewLRUCache[int](4, time.Nanosecond)
	c.Set("x", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(time.Millisecond)

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
}
