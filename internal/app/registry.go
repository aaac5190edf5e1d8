package app

import (
	"context"
	"log/slog"
	"time"

	"tradeflow/internal/auth"
	"tradeflow/internal/cache"
)

// Registry maps session ids onto controllers. Sessions idle for longer than
// the TTL are dropped along with their in-memory tree.
type Registry struct {
	sessions *cache.LRUCache[*Controller]
	opts     Options
}

func NewRegistry(maxSessions int, idleTTL time.Duration, opts Options) *Registry {
	r := &Registry{
		sessions: cache.NewLRUCache[*Controller](maxSessions, idleTTL),
		opts:     opts,
	}
	r.sessions.OnEvict(func(sessionID string, _ *Controller) {
		slog.Debug("Session evicted", "session_id", sessionID)
	})
	return r
}

// Controller returns the session's controller, creating it on first use.
func (r *Registry) Controller(sessionID string) *Controller {
	c, _ := r.sessions.GetOrCreate(sessionID, func() *Controller {
		return NewController(r.opts)
	})
	return c
}

// Lookup returns the controller only if the session is live.
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	return r.sessions.Peek(sessionID)
}

func (r *Registry) Len() int { return r.sessions.Size() }

// Cleaner exposes the session cache to a cache.Manager.
func (r *Registry) Cleaner() cache.Cleaner { return r.sessions }

// GuestOnly reports whether sessions run without a store.
func (r *Registry) GuestOnly() bool { return r.opts.Store == nil }

// Attach routes session transitions from hub to the matching controller.
// Sign-ins fetch the user's journal before returning.
func (r *Registry) Attach(hub *auth.Hub) (detach func()) {
	return hub.Subscribe(func(e auth.Event) {
		switch e.Type {
		case auth.SignedIn:
			if e.Identity == nil {
				return
			}
			c := r.Controller(e.SessionID)
			if _, err := c.SignIn(context.Background(), *e.Identity); err != nil {
				slog.Warn("Sign-in not applied", "session_id", e.SessionID, "error", err)
			}
		case auth.SignedOut:
			if c, ok := r.Lookup(e.SessionID); ok {
				c.SignOut()
			}
		}
	})
}
