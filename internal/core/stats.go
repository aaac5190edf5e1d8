package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// EquityPoint is one step of the cumulative percentage curve. Index 0 is the
// origin; index i is the equity after the i-th trade.
type EquityPoint struct {
	Index  int     `json:"index"`
	Equity float64 `json:"equity"`
}

// Stats summarises a month's trades.
type Stats struct {
	WinRate     int             `json:"winRate"` // percent, 0-100
	NetPnL      float64         `json:"netPnL"`  // sum of pnlPercent
	EquityCurve []EquityPoint   `json:"equityCurve"`
	Total       int             `json:"totalTrades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	BreakEvens  int             `json:"breakEvens"`
	NetDollar   decimal.Decimal `json:"netDollar"`
}

// ComputeStats derives win rate, net P&L and the equity curve from trades in
// insertion order. It is recomputed on every call.
func ComputeStats(trades []Trade) Stats {
	st := Stats{
		Total:       len(trades),
		EquityCurve: make([]EquityPoint, 1, len(trades)+1),
		NetDollar:   decimal.Zero,
	}
	st.EquityCurve[0] = EquityPoint{Index: 0, Equity: 0}

	equity := 0.0
	for i, t := range trades {
		switch t.Result {
		case Win:
			st.Wins++
		case Loss:
			st.Losses++
		default:
			st.BreakEvens++
		}
		equity += t.PnLPercent
		st.EquityCurve = append(st.EquityCurve, EquityPoint{Index: i + 1, Equity: equity})
		st.NetDollar = st.NetDollar.Add(t.PnLDollar)
	}
	st.NetPnL = equity

	if st.Total > 0 {
		st.WinRate = int(math.Round(100 * float64(st.Wins) / float64(st.Total)))
	}
	return st
}

// MonthStats is ComputeStats over m's trades.
func MonthStats(m Month) Stats {
	return ComputeStats(m.Trades)
}
