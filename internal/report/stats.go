package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"tradeflow/internal/core"
)

// WriteStats prints the month's summary followed by the equity curve.
func WriteStats(w io.Writer, strategy core.Strategy, m core.Month) error {
	stats := core.MonthStats(m)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Strategy\t%s\n", strategy.Name)
	fmt.Fprintf(tw, "Month\t%s\n", m.Name)
	fmt.Fprintf(tw, "Trades\t%d\n", stats.Total)
	fmt.Fprintf(tw, "Wins / Losses / BE\t%d / %d / %d\n", stats.Wins, stats.Losses, stats.BreakEvens)
	fmt.Fprintf(tw, "Win rate\t%d%%\n", stats.WinRate)
	fmt.Fprintf(tw, "Net P&L\t%s%%\n", formatFloat(stats.NetPnL))
	fmt.Fprintf(tw, "Net $\t%s\n", stats.NetDollar.StringFixed(2))
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "#\tDay\tPair\tDir\tRR\tResult\tP&L %\tEquity")
	for i, t := range m.Trades {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, t.Date, t.Pair, t.Direction, formatFloat(t.RR), t.Result,
			formatFloat(t.PnLPercent), formatFloat(stats.EquityCurve[i+1].Equity))
	}
	return tw.Flush()
}
