package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestLogger_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentJournal})
	l.Info("hello", FieldTradeID, "t1")
	l.WithComponent(ComponentAuth).Debug("debugging")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "journal", lines[0][FieldComponent])
	assert.Equal(t, "t1", lines[0][FieldTradeID])
	assert.Equal(t, "auth", lines[1][FieldComponent])
}

func TestMiddleware_ContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf})

	h := Middleware(l.With(FieldRequestID, "req-1"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0][FieldRequestID])

	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	ctx := context.Background()

	sl.LogMutation(ctx, OpDelete, "guest", "s1", "", "")
	sl.LogError(ctx, "boom", errors.New("down"), ComponentStorage, OpCreate, nil)
	sl.LogHTTPEnd(ctx, httptest.NewRequest(http.MethodGet, "/x", nil), 502, 3, "1.2.3.4")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "s1", lines[0][FieldStrategyID])
	assert.NotContains(t, lines[0], FieldMonthID)
	assert.Equal(t, "guest", lines[0][FieldMode])
	assert.Equal(t, "down", lines[1][FieldError])
	assert.Equal(t, "ERROR", lines[2]["level"])
	assert.EqualValues(t, 502, lines[2][FieldStatusCode])
}
