package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tradeflow/internal/core"
)

const (
	SessionCookie = "tradeflow_session"
	StateCookie   = "tradeflow_oauth_state"

	stateTTL = 10 * time.Minute
)

var (
	ErrNoSession        = errors.New("no session")
	ErrInvalidState     = errors.New("oauth state mismatch")
	ErrLoginUnavailable = errors.New("sign-in is not configured")
)

// Manager keeps the browser session in a signed cookie and drives the OAuth
// sign-in flow. Every transition is published on the hub.
type Manager struct {
	jwt      JWT
	provider Provider
	hub      *Hub
	secure   bool
}

type ManagerOption func(*Manager)

// WithProvider enables sign-in. Without a provider only guest use is possible.
func WithProvider(p Provider) ManagerOption {
	return func(m *Manager) { m.provider = p }
}

// WithSecureCookies marks cookies Secure; set it when served over HTTPS.
func WithSecureCookies(secure bool) ManagerOption {
	return func(m *Manager) { m.secure = secure }
}

func NewManager(secret []byte, ttl time.Duration, hub *Hub, opts ...ManagerOption) (*Manager, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if hub == nil {
		hub = NewHub()
	}
	m := &Manager{jwt: JWT{Secret: secret, TokenTTL: ttl}, hub: hub}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

func (m *Manager) Hub() *Hub { return m.hub }

// LoginEnabled reports whether a sign-in provider is configured.
func (m *Manager) LoginEnabled() bool { return m.provider != nil }

// Lookup returns the claims of the request's session cookie.
func (m *Manager) Lookup(r *http.Request) (Claims, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Claims{}, ErrNoSession
	}
	claims, err := m.jwt.Verify(c.Value)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return claims, nil
}

// Session returns the request's session, starting an anonymous one when the
// cookie is missing or no longer valid.
func (m *Manager) Session(w http.ResponseWriter, r *http.Request) (Claims, error) {
	if claims, err := m.Lookup(r); err == nil {
		return claims, nil
	}
	claims := Claims{SessionID: uuid.NewString()}
	if err := m.issue(w, claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// CurrentIdentity returns the signed-in user of the request, or nil.
func (m *Manager) CurrentIdentity(r *http.Request) *core.Identity {
	claims, err := m.Lookup(r)
	if err != nil {
		return nil
	}
	return claims.Identity()
}

// BeginLogin stores a fresh state token and returns the provider URL to
// redirect to.
func (m *Manager) BeginLogin(w http.ResponseWriter, r *http.Request) (string, error) {
	if m.provider == nil {
		return "", ErrLoginUnavailable
	}
	if _, err := m.Session(w, r); err != nil {
		return "", err
	}
	state, err := randomState()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return m.provider.AuthCodeURL(state), nil
}

// CompleteLogin finishes the OAuth round trip, binds the identity to the
// session and publishes SignedIn.
func (m *Manager) CompleteLogin(ctx context.Context, w http.ResponseWriter, r *http.Request) (core.Identity, error) {
	if m.provider == nil {
		return core.Identity{}, ErrLoginUnavailable
	}
	stateCookie, err := r.Cookie(StateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		return core.Identity{}, ErrInvalidState
	}
	m.clearCookie(w, StateCookie, "/auth")

	if msg := r.URL.Query().Get("error"); msg != "" {
		return core.Identity{}, fmt.Errorf("provider refused sign-in: %s", msg)
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		return core.Identity{}, errors.New("missing authorization code")
	}

	identity, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return core.Identity{}, err
	}

	claims, err := m.Lookup(r)
	if err != nil {
		claims = Claims{SessionID: uuid.NewString()}
	}
	claims.Subject = identity.ID
	claims.Name = identity.Name
	claims.Email = identity.Email
	claims.Avatar = identity.Avatar
	claims.IssuedAt, claims.NotBefore, claims.ExpiresAt = nil, nil, nil
	if err := m.issue(w, claims); err != nil {
		return core.Identity{}, err
	}

	slog.InfoContext(ctx, "User signed in", "session_id", claims.SessionID, "user_id", identity.ID)
	id := identity
	m.hub.Publish(Event{Type: SignedIn, SessionID: claims.SessionID, Identity: &id})
	return identity, nil
}

// EndSession drops the identity from the session and publishes SignedOut.
// The session id survives so stored preferences stay attached.
func (m *Manager) EndSession(w http.ResponseWriter, r *http.Request) (string, error) {
	claims, err := m.Lookup(r)
	if err != nil {
		return "", err
	}
	next := Claims{SessionID: claims.SessionID}
	if err := m.issue(w, next); err != nil {
		return "", err
	}
	slog.InfoContext(r.Context(), "Session signed out", "session_id", claims.SessionID)
	m.hub.Publish(Event{Type: SignedOut, SessionID: claims.SessionID})
	return claims.SessionID, nil
}

func (m *Manager) issue(w http.ResponseWriter, claims Claims) error {
	token, expiresAt, err := m.jwt.Sign(claims)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
