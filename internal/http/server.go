package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"tradeflow/internal/app"
	"tradeflow/internal/auth"
	"tradeflow/internal/cache"
	"tradeflow/internal/log"
	"tradeflow/internal/middleware/ratelimit"
	"tradeflow/internal/middleware/security"
	"tradeflow/internal/middleware/trace"
	"tradeflow/internal/prefs"
	appweb "tradeflow/web"
)

// Dependencies are the services the server routes requests to.
type Dependencies struct {
	Sessions *auth.Manager
	Registry *app.Registry
	Prefs    *prefs.Service
	Logger   *log.Logger

	// Ready checks backing services for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error

	RateLimitPerMinute int
	// SessionCleanupInterval drives expiry of idle sessions. Zero means
	// one minute.
	SessionCleanupInterval time.Duration
}

type Server struct {
	http.Server

	sessions *auth.Manager
	registry *app.Registry
	prefs    *prefs.Service
	ready    func(ctx context.Context) error
	logger   *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager
	startedAt        time.Time

	shutdownOnce sync.Once
	detachHub    func()
}

// NewServer wires routes and middleware and starts the background session
// cleanup. Call Shutdown to release it.
func NewServer(addr string, deps Dependencies) (*Server, error) {
	if deps.Sessions == nil || deps.Registry == nil || deps.Prefs == nil {
		return nil, errors.New("http server needs sessions, registry and preferences")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		sessions:         deps.Sessions,
		registry:         deps.Registry,
		prefs:            deps.Prefs,
		ready:            deps.Ready,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		cacheManager:     cache.NewManager(),
		startedAt:        time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)
	s.detachHub = deps.Registry.Attach(deps.Sessions.Hub())

	interval := deps.SessionCleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	s.cacheManager.Register(deps.Registry.Cleaner())
	s.cacheManager.StartCleanup(interval)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// analysis calls wait on the AI provider
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.FileServer(http.FS(sub))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(http.StripPrefix("/static/", static)))
		mux.Handle("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, sub, "index.html")
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/session", s.withSession(s.handleSession))
	mux.HandleFunc("POST /api/onboarding", s.withSession(s.handleOnboarding))
	mux.HandleFunc("POST /api/guest", s.withSession(s.handleGuest))

	mux.HandleFunc("GET /api/preferences", s.withSession(s.handleGetPreferences))
	mux.HandleFunc("PUT /api/preferences", s.withSession(s.handlePutPreferences))
	mux.HandleFunc("POST /api/preferences/theme/toggle", s.withSession(s.handleToggleTheme))
	mux.HandleFunc("POST /api/preferences/language/toggle", s.withSession(s.handleToggleLanguage))

	mux.HandleFunc("GET /api/strategies", s.withSession(s.handleListStrategies))
	mux.HandleFunc("POST /api/strategies", s.withSession(s.handleCreateStrategy))
	mux.HandleFunc("DELETE /api/strategies/{sid}", s.withSession(s.handleDeleteStrategy))
	mux.HandleFunc("PUT /api/strategies/{sid}/note", s.withSession(s.handleStrategyNote))

	mux.HandleFunc("POST /api/strategies/{sid}/months", s.withSession(s.handleCreateMonth))
	mux.HandleFunc("DELETE /api/strategies/{sid}/months/{mid}", s.withSession(s.handleDeleteMonth))
	mux.HandleFunc("PUT /api/strategies/{sid}/months/{mid}/note", s.withSession(s.handleMonthNote))
	mux.HandleFunc("GET /api/strategies/{sid}/months/{mid}/stats", s.withSession(s.handleMonthStats))
	mux.HandleFunc("GET /api/strategies/{sid}/months/{mid}/analysis", s.withSession(s.handleGetAnalysis))
	mux.HandleFunc("POST /api/strategies/{sid}/months/{mid}/analysis", s.withSession(s.handleAnalyze))

	mux.HandleFunc("POST /api/strategies/{sid}/months/{mid}/trades", s.withSession(s.handleCreateTrade))
	mux.HandleFunc("PATCH /api/strategies/{sid}/months/{mid}/trades/{tid}", s.withSession(s.handleUpdateTrade))
	mux.HandleFunc("DELETE /api/strategies/{sid}/months/{mid}/trades/{tid}", s.withSession(s.handleDeleteTrade))
}

// middleware wraps the mux, outermost first: logger, trace, security
// headers, detection, then rate limiting of mutating calls per client.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(
		s.securityDetector.ExtractClientIP,
		ratelimit.MutatingOnly,
		func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
		},
	)(next)

	h := s.securityDetector.Middleware(limited)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return log.Middleware(s.logger)(h)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)

		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		if s.detachHub != nil {
			s.detachHub()
		}
	})

	return shutdownErr
}
