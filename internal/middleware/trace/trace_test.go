package trace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tradeflow/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})

	var seen string
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" })
	h := log.Middleware(logger)(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line[log.FieldRequestID] != seen {
		t.Errorf("logged request id = %v, want %s", line[log.FieldRequestID], seen)
	}
	if line[log.FieldStatusCode] != float64(http.StatusTeapot) {
		t.Errorf("logged status = %v, want 418", line[log.FieldStatusCode])
	}
	if line[log.FieldClientIP] != "10.0.0.1" {
		t.Errorf("logged client ip = %v", line[log.FieldClientIP])
	}

	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddleware_HonoursIncomingID(t *testing.T) {
	m := NewMiddleware(nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		incoming string
		keep     bool
	}{
		{"abc-123", true},
		{"bad id with spaces", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get(HeaderRequestID)
		if tt.keep && got != tt.incoming {
			t.Errorf("id %q replaced by %q", tt.incoming, got)
		}
		if !tt.keep && got == tt.incoming {
			t.Errorf("invalid id %q was kept", tt.incoming)
		}
	}
}

func TestMetrics_AverageResponseTime(t *testing.T) {
	if (Metrics{}).AverageResponseTime() != 0 {
		t.Error("empty metrics should average to zero")
	}
	m := Metrics{TotalRequests: 4, TotalDurationMicros: 4000}
	if got := m.AverageResponseTime().Microseconds(); got != 1000 {
		t.Errorf("average = %dµs, want 1000", got)
	}
}
