package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRU_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewLRUCache[string, string](10, time.Second).WithClock(clock.now)
	c.Set("k", "v")
	c.Set("j", "w")

	clock.t = clock.t.Add(500 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestLRU_DeleteFunc(t *testing.T) {
	type key struct{ user, kind string }
	c := NewLRUCache[key, int](10, time.Minute)
	c.Set(key{"u1", "income"}, 1)
	c.Set(key{"u1", "expense"}, 2)
	c.Set(key{"u2", "income"}, 3)

	n := c.DeleteFunc(func(k key) bool { return k.user == "u1" })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Size())

	c.Delete(key{"u2", "income"})
	assert.Zero(t, c.Size())
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	a := NewLRUCache[string, int](10, time.Second).WithClock(clock.now)
	b := NewLRUCache[int, int](10, time.Hour).WithClock(clock.now)
	a.Set("x", 1)
	b.Set(1, 1)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, b.Size())
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
