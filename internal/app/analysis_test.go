package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
)

type stubNarrator struct {
	text    string
	err     error
	release chan struct{}
	started chan struct{}
	calls   int
}

func (s *stubNarrator) Analyze(ctx context.Context, month core.Month, winRate int, netPnL float64) (string, error) {
	s.calls++
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	return s.text, s.err
}

func firstMonth(t *testing.T, c *Controller) (string, core.Month) {
	t.Helper()
	s := c.Snapshot()
	require.NotEmpty(t, s.Strategies)
	require.NotEmpty(t, s.Strategies[0].Months)
	return s.Strategies[0].ID, s.Strategies[0].Months[0]
}

func TestAnalyze_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		narrator *stubNarrator
	}{
		{"no narrator", nil},
		{"narrator error", &stubNarrator{err: errors.New("401")}},
		{"empty text", &stubNarrator{text: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{}
			if tt.narrator != nil {
				opts.Narrator = tt.narrator
			}
			c := NewController(opts)
			sid, m := firstMonth(t, c)

			a, found, err := c.Analyze(context.Background(), sid, m.ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.True(t, a.Failed)
			assert.Equal(t, "Error connecting to AI Coach. Please check API Key.", a.Text)
		})
	}
}

func TestAnalyze_StoresLatest(t *testing.T) {
	n := &stubNarrator{text: "first"}
	c := NewController(Options{Narrator: n})
	sid, m := firstMonth(t, c)

	_, ok := c.Analysis(sid, m.ID)
	assert.False(t, ok)

	a, found, err := c.Analyze(context.Background(), sid, m.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", a.Text)
	want := core.MonthStats(m)
	assert.Equal(t, want.WinRate, a.Stats.WinRate)
	assert.Equal(t, want.EquityCurve, a.Stats.EquityCurve)

	n.text = "second"
	_, _, err = c.Analyze(context.Background(), sid, m.ID)
	require.NoError(t, err)

	stored, ok := c.Analysis(sid, m.ID)
	require.True(t, ok)
	assert.Equal(t, "second", stored.Text)
	assert.Equal(t, 2, n.calls)

	_, found, err = c.Analyze(context.Background(), sid, "missing")
	assert.NoError(t, err)
	assert.False(t, found)

	_, err = c.DeleteMonth(context.Background(), sid, m.ID)
	require.NoError(t, err)
	_, ok = c.Analysis(sid, m.ID)
	assert.False(t, ok)
}

func TestAnalyze_OneInFlightPerMonth(t *testing.T) {
	n := &stubNarrator{text: "done", release: make(chan struct{}), started: make(chan struct{})}
	c := NewController(Options{Narrator: n})
	sid, m := firstMonth(t, c)

	done := make(chan Analysis)
	go func() {
		a, _, _ := c.Analyze(context.Background(), sid, m.ID)
		done <- a
	}()

	select {
	case <-n.started:
	case <-time.After(time.Second):
		t.Fatal("analysis never started")
	}

	_, found, err := c.Analyze(context.Background(), sid, m.ID)
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrAnalysisInFlight)

	close(n.release)
	a := <-done
	assert.Equal(t, "done", a.Text)
	assert.False(t, a.Failed)
}
