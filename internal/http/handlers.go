package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tradeflow/internal/app"
	"tradeflow/internal/core"
	"tradeflow/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.registry.GuestOnly():
		checks["journal_store"] = "not_configured"
	case s.ready == nil:
		checks["journal_store"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["journal_store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["journal_store"] = "ok"
		}
	}

	checks["sessions"] = map[string]any{
		"active": s.registry.Len(),
		"status": "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}
	checks["sign_in"] = s.sessions.LoginEnabled() && !s.registry.GuestOnly()

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_request_duration_avg_ms", "gauge", "Mean request duration", traceMetrics.AverageResponseTime().Milliseconds())
	metric("active_sessions", "gauge", "Sessions with a live journal controller", s.registry.Len())
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests rejected by the detector", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.startedAt).Seconds()))
}

// writeError maps controller errors onto responses. Anything unrecognised
// is a store failure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNoJournal):
		ErrorResponse(http.StatusConflict, "No journal is open. Sign in or continue as guest.").Write(w)
	case errors.Is(err, app.ErrAnalysisInFlight):
		ErrorResponse(http.StatusConflict, "Analysis already running for this month").Write(w)
	case errors.Is(err, app.ErrAlreadySignedIn):
		ErrorResponse(http.StatusConflict, "Already signed in").Write(w)
	case errors.Is(err, app.ErrNoBackend):
		ErrorResponse(http.StatusServiceUnavailable, "Sign-in is not available").Write(w)
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrUnknownField),
		errors.Is(err, core.ErrInvalidValue),
		errors.Is(err, core.ErrInvalidDirection),
		errors.Is(err, core.ErrInvalidResult):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldError, err)
		StoreError().Write(w)
	}
}
