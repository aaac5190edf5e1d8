package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(result Result, rr float64) Trade {
	tr := Trade{Result: result, RR: rr, PnLDollar: decimal.Zero}
	tr.derivePnL()
	return tr
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil)

	assert.Equal(t, 0, st.WinRate)
	assert.Equal(t, 0.0, st.NetPnL)
	assert.Equal(t, []EquityPoint{{Index: 0, Equity: 0}}, st.EquityCurve)
	assert.Equal(t, 0, st.Total)
	assert.True(t, st.NetDollar.IsZero())
}

func TestComputeStats_Scenario(t *testing.T) {
	trades := []Trade{trade(Win, 2), trade(Loss, 3), trade(Win, 1)}

	st := ComputeStats(trades)

	assert.Equal(t, 67, st.WinRate)
	assert.Equal(t, 2.0, st.NetPnL)
	assert.Equal(t, []EquityPoint{
		{Index: 0, Equity: 0},
		{Index: 1, Equity: 2},
		{Index: 2, Equity: 1},
		{Index: 3, Equity: 2},
	}, st.EquityCurve)
	assert.Equal(t, 2, st.Wins)
	assert.Equal(t, 1, st.Losses)
}

func TestComputeStats_CurveIsCumulative(t *testing.T) {
	cases := []struct {
		name   string
		trades []Trade
	}{
		{"single win", []Trade{trade(Win, 3)}},
		{"all losses", []Trade{trade(Loss, 1), trade(Loss, 2), trade(Loss, 5)}},
		{"mixed with break even", []Trade{trade(Win, 1.5), trade(BreakEven, 2), trade(Loss, 1), trade(Win, 4)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := ComputeStats(tc.trades)

			require.Len(t, st.EquityCurve, len(tc.trades)+1)
			assert.Equal(t, EquityPoint{Index: 0, Equity: 0}, st.EquityCurve[0])
			for i, tr := range tc.trades {
				prev := st.EquityCurve[i]
				cur := st.EquityCurve[i+1]
				assert.Equal(t, i+1, cur.Index)
				assert.InDelta(t, prev.Equity+tr.PnLPercent, cur.Equity, 1e-9)
			}
			assert.GreaterOrEqual(t, st.WinRate, 0)
			assert.LessOrEqual(t, st.WinRate, 100)
		})
	}
}

func TestComputeStats_NetDollar(t *testing.T) {
	trades := []Trade{
		{Result: Win, PnLPercent: 2, PnLDollar: decimal.NewFromInt(120)},
		{Result: Loss, PnLPercent: -1, PnLDollar: decimal.RequireFromString("-60.5")},
	}

	st := ComputeStats(trades)

	assert.True(t, st.NetDollar.Equal(decimal.RequireFromString("59.5")), "got %s", st.NetDollar)
	assert.Equal(t, 50, st.WinRate)
}
