package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
)

func sampleMonth() core.Month {
	return core.Month{
		ID:   "m1",
		Name: "March 2025",
		Note: "Held winners",
		Trades: []core.Trade{
			{ID: "t1", Date: "3", Pair: "EURUSD", Direction: core.Long, RR: 2, Result: core.Win,
				PnLDollar: decimal.NewFromInt(200), PnLPercent: 2, MaxRR: 3.5},
			{ID: "t2", Date: "9", Pair: "GBPUSD", Direction: core.Short, RR: 2.5, Result: core.Loss,
				PnLDollar: decimal.NewFromInt(-100), PnLPercent: -1},
		},
	}
}

func TestFormatJournalOrg(t *testing.T) {
	t.Parallel()

	tree := []core.Strategy{
		{ID: "s1", Name: "Breakout", Note: "London only", Months: []core.Month{sampleMonth()}},
		{ID: "s2", Name: "Reversal", Months: []core.Month{}},
	}
	out := FormatJournalOrg(tree)

	assert.Contains(t, out, "* Breakout\n:PROPERTIES:\n:ID: s1\n:END:\nLondon only\n")
	assert.Contains(t, out, "** March 2025\n")
	assert.Contains(t, out, ":WIN_RATE: 50%")
	assert.Contains(t, out, ":NET_PNL: 1%")
	assert.Contains(t, out, ":NET_DOLLAR: 100.00")
	assert.Contains(t, out, "*** Day 3: EURUSD Long (Win)")
	assert.Contains(t, out, ":MAX_RR: 3.5")
	assert.Contains(t, out, ":RR: 2.5")
	assert.Contains(t, out, "* Reversal\n")
	assert.Equal(t, 1, strings.Count(out, ":MAX_RR:"))

	assert.Empty(t, FormatJournalOrg(nil))
}

func TestWriteStats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, core.Strategy{Name: "Breakout"}, sampleMonth()))
	out := buf.String()

	assert.Contains(t, out, "Breakout")
	assert.Contains(t, out, "Win rate")
	assert.Contains(t, out, "50%")
	assert.Contains(t, out, "1 / 1 / 0")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.Fields(lines[len(lines)-1])
	require.Len(t, last, 8)
	assert.Equal(t, "2", last[0])
	assert.Equal(t, "1", last[7])
}

func TestWriteStats_EmptyMonth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, core.Strategy{Name: "S"}, core.Month{Name: "Empty"}))
	assert.Contains(t, buf.String(), "0%")
}
