package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/auth"
	"tradeflow/internal/core"
	"tradeflow/internal/journal/memory"
)

func TestRegistry_ControllerPerSession(t *testing.T) {
	r := NewRegistry(10, time.Hour, Options{})
	assert.True(t, r.GuestOnly())

	a := r.Controller("a")
	assert.Same(t, a, r.Controller("a"))
	assert.NotSame(t, a, r.Controller("b"))
	assert.Equal(t, 2, r.Len())

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_CapacityDropsOldest(t *testing.T) {
	r := NewRegistry(1, time.Hour, Options{})
	first := r.Controller("a")
	r.Controller("b")

	_, ok := r.Lookup("a")
	assert.False(t, ok)
	assert.NotSame(t, first, r.Controller("a"))
}

func TestRegistry_RoutesHubEvents(t *testing.T) {
	mem := memory.NewSeeded(ada.ID, seededTree())
	r := NewRegistry(10, time.Hour, Options{Store: mem})
	hub := auth.NewHub()
	detach := r.Attach(hub)

	identity := ada
	hub.Publish(auth.Event{Type: auth.SignedIn, SessionID: "s1", Identity: &identity})

	c, ok := r.Lookup("s1")
	require.True(t, ok)
	s := c.Snapshot()
	assert.Equal(t, ModeAuthenticated, s.Mode)
	assert.Len(t, s.Strategies, 1)

	other := r.Controller("s2")
	hub.Publish(auth.Event{Type: auth.SignedOut, SessionID: "s1"})
	assert.Equal(t, ModeSignedOut, c.Mode())
	assert.Equal(t, ModeSignedOut, other.Mode())

	detach()
	hub.Publish(auth.Event{Type: auth.SignedIn, SessionID: "s1", Identity: &core.Identity{ID: "x"}})
	assert.Equal(t, ModeSignedOut, c.Mode())

	hub.Publish(auth.Event{Type: auth.SignedOut, SessionID: "unknown"})
	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
}
