package http

import (
	"errors"
	"net/http"

	"tradeflow/internal/app"
	"tradeflow/internal/auth"
	"tradeflow/internal/core"
	"tradeflow/internal/log"
	"tradeflow/internal/prefs"
)

// requestSession is the caller's browser session and its journal.
type requestSession struct {
	ID         string
	Identity   *core.Identity
	Controller *app.Controller
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess requestSession)

// withSession resolves the session cookie, starting an anonymous session
// when needed, and hands the handler the session's controller.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.sessions.Session(w, r)
		if err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to start session", log.FieldError, err)
			ErrorResponse(http.StatusInternalServerError, "Session unavailable").Write(w)
			return
		}

		ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).With(log.FieldSessionID, claims.SessionID))
		r = r.WithContext(ctx)

		ctrl := s.registry.Controller(claims.SessionID)
		identity := claims.Identity()
		// A signed-in cookie can outlive its controller, e.g. across restarts.
		if identity != nil && !ctrl.GuestOnly() && ctrl.Mode() == app.ModeSignedOut {
			if _, err := ctrl.SignIn(ctx, *identity); err != nil {
				log.FromContext(ctx).WarnContext(ctx, "Failed to restore signed-in journal", log.FieldError, err)
			}
		}

		next(w, r, requestSession{ID: claims.SessionID, Identity: identity, Controller: ctrl})
	}
}

// SessionResponse is everything the client needs to render.
type SessionResponse struct {
	State        app.State         `json:"state"`
	Preferences  prefs.Preferences `json:"preferences"`
	Dir          string            `json:"dir"`
	LoginEnabled bool              `json:"loginEnabled"`
	GuestOnly    bool              `json:"guestOnly"`
}

func (s *Server) sessionResponse(r *http.Request, sess requestSession) SessionResponse {
	p, err := s.prefs.Load(r.Context(), sess.ID)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Using default preferences", log.FieldError, err)
	}

	state := sess.Controller.Snapshot()
	if p.HasOnboarded && !state.Onboarded {
		state = sess.Controller.CompleteOnboarding()
	}

	return SessionResponse{
		State:        state,
		Preferences:  p,
		Dir:          p.Dir(),
		LoginEnabled: s.loginAvailable(),
		GuestOnly:    s.registry.GuestOnly(),
	}
}

func (s *Server) loginAvailable() bool {
	return s.sessions.LoginEnabled() && !s.registry.GuestOnly()
}

func (s *Server) markOnboarded(r *http.Request, sess requestSession) {
	sess.Controller.CompleteOnboarding()
	if _, err := s.prefs.MarkOnboarded(r.Context(), sess.ID); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to persist onboarding", log.FieldError, err)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, sess requestSession) {
	OK(s.sessionResponse(r, sess)).Write(w)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request, sess requestSession) {
	s.markOnboarded(r, sess)
	OK(s.sessionResponse(r, sess)).Write(w)
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request, sess requestSession) {
	if _, err := sess.Controller.ContinueAsGuest(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.markOnboarded(r, sess)
	OK(s.sessionResponse(r, sess)).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginAvailable() {
		ErrorResponse(http.StatusServiceUnavailable, "Sign-in is not available").Write(w)
		return
	}
	target, err := s.sessions.BeginLogin(w, r)
	if err != nil {
		if errors.Is(err, auth.ErrLoginUnavailable) {
			ErrorResponse(http.StatusServiceUnavailable, "Sign-in is not available").Write(w)
			return
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).ErrorContext(r.Context(), "Failed to start sign-in", log.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Could not start sign-in").Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleCallback finishes the OAuth round trip. The SignedIn event loads the
// user's journal into the session's controller before the redirect.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.loginAvailable() {
		ErrorResponse(http.StatusServiceUnavailable, "Sign-in is not available").Write(w)
		return
	}
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)

	identity, err := s.sessions.CompleteLogin(r.Context(), w, r)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			logger.WarnContext(r.Context(), "Rejected OAuth callback", log.FieldError, err)
			BadRequestError("Invalid sign-in state").Write(w)
			return
		}
		logger.ErrorContext(r.Context(), "Sign-in failed", log.FieldError, err)
		http.Redirect(w, r, "/?login_error=1", http.StatusFound)
		return
	}

	if claims, err := s.sessions.Lookup(r); err == nil {
		if _, err := s.prefs.MarkOnboarded(r.Context(), claims.SessionID); err != nil {
			logger.WarnContext(r.Context(), "Failed to persist onboarding", log.FieldError, err)
		}
	}
	logger.InfoContext(r.Context(), "Sign-in completed", log.FieldOwnerID, identity.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.EndSession(w, r); err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			ErrorResponse(http.StatusUnauthorized, "Not signed in").Write(w)
			return
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).ErrorContext(r.Context(), "Sign-out failed", log.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Could not sign out").Write(w)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request, sess requestSession) {
	p, err := s.prefs.Load(r.Context(), sess.ID)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Using default preferences", log.FieldError, err)
	}
	OK(p).Write(w)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request, sess requestSession) {
	p := prefs.Default()
	if err := DecodeJSON(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := p.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err := s.prefs.Save(r.Context(), sess.ID, p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if p.HasOnboarded {
		sess.Controller.CompleteOnboarding()
	}
	OK(p).Write(w)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request, sess requestSession) {
	p, err := s.prefs.ToggleTheme(r.Context(), sess.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(p).Write(w)
}

func (s *Server) handleToggleLanguage(w http.ResponseWriter, r *http.Request, sess requestSession) {
	p, err := s.prefs.ToggleLanguage(r.Context(), sess.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	OK(p).Write(w)
}
