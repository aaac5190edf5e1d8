package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
	"tradeflow/internal/journal"
)

func TestStore_CRUDAndCascade(t *testing.T) {
	ctx := context.Background()
	s := New()

	st, err := s.CreateStrategy(ctx, "owner-1", "Breakout")
	require.NoError(t, err)
	assert.Equal(t, "mem:1", st.ID)

	m, err := s.CreateMonth(ctx, st.ID, "January 2025")
	require.NoError(t, err)

	tr, err := s.CreateTrade(ctx, m.ID, core.NewTrade(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, tr.ID)

	_, err = s.CreateMonth(ctx, "missing", "February 2025")
	assert.ErrorIs(t, err, journal.ErrNotFound)

	_, patch, err := tr.Apply(core.SetResult(core.Win))
	require.NoError(t, err)
	require.NoError(t, s.UpdateTrade(ctx, tr.ID, patch))
	require.NoError(t, s.UpdateMonthNote(ctx, m.ID, "patient month"))
	require.NoError(t, s.UpdateStrategyNote(ctx, st.ID, "only A+ setups"))

	tree, err := s.FetchAll(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "only A+ setups", tree[0].Note)
	require.Len(t, tree[0].Months, 1)
	assert.Equal(t, "patient month", tree[0].Months[0].Note)
	require.Len(t, tree[0].Months[0].Trades, 1)
	assert.Equal(t, core.Win, tree[0].Months[0].Trades[0].Result)
	assert.Equal(t, 2.0, tree[0].Months[0].Trades[0].PnLPercent)

	other, err := s.FetchAll(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.DeleteStrategy(ctx, st.ID))
	ns, nm, nt := s.Counts()
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{ns, nm, nt})
}

func TestNewSeeded(t *testing.T) {
	tree := []core.Strategy{{
		ID:   "local-1",
		Name: "Sample",
		Months: []core.Month{{
			ID:   "local-2",
			Name: "March 2025",
			Trades: []core.Trade{
				{ID: "local-3", Pair: "EURUSD", Result: core.Win, RR: 2, PnLPercent: 2, PnLDollar: decimal.NewFromInt(100)},
			},
		}},
	}}

	s := NewSeeded("owner", tree)
	got, err := s.FetchAll(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, "local-1", got[0].ID)
	assert.Equal(t, "mem:3", got[0].Months[0].Trades[0].ID)

	require.NoError(t, s.DeleteMonth(context.Background(), got[0].Months[0].ID))
	_, nm, nt := s.Counts()
	assert.Zero(t, nm)
	assert.Zero(t, nt)
}
