// Package report renders stored journals for the terminal: stats tables and
// org-mode outlines.
package report

import (
	"fmt"
	"strings"

	"tradeflow/internal/core"
)

// FormatJournalOrg renders an owner's whole journal as an org-mode outline,
// one top-level heading per strategy.
func FormatJournalOrg(tree []core.Strategy) string {
	var b strings.Builder
	for i, st := range tree {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("* %s\n", st.Name))
		b.WriteString(":PROPERTIES:\n")
		b.WriteString(fmt.Sprintf(":ID: %s\n", st.ID))
		b.WriteString(":END:\n")
		if st.Note != "" {
			b.WriteString(st.Note + "\n")
		}
		for _, m := range st.Months {
			b.WriteString(FormatMonthOrg(m))
		}
	}
	return b.String()
}

// FormatMonthOrg renders one month as a second-level heading with its stats
// in the properties drawer and one third-level heading per trade.
func FormatMonthOrg(m core.Month) string {
	stats := core.MonthStats(m)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("** %s\n", m.Name))
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", m.ID))
	b.WriteString(fmt.Sprintf(":WIN_RATE: %d%%\n", stats.WinRate))
	b.WriteString(fmt.Sprintf(":NET_PNL: %s%%\n", formatFloat(stats.NetPnL)))
	b.WriteString(fmt.Sprintf(":NET_DOLLAR: %s\n", stats.NetDollar.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":TRADES: %d\n", stats.Total))
	b.WriteString(":END:\n")
	if m.Note != "" {
		b.WriteString(m.Note + "\n")
	}
	for _, t := range m.Trades {
		b.WriteString(formatTradeOrg(t))
	}
	return b.String()
}

func formatTradeOrg(t core.Trade) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("*** Day %s: %s %s (%s)\n", t.Date, t.Pair, t.Direction, t.Result))
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":RR: %s\n", formatFloat(t.RR)))
	b.WriteString(fmt.Sprintf(":PNL_PERCENT: %s\n", formatFloat(t.PnLPercent)))
	b.WriteString(fmt.Sprintf(":PNL_DOLLAR: %s\n", t.PnLDollar.StringFixed(2)))
	if t.MaxRR != 0 {
		b.WriteString(fmt.Sprintf(":MAX_RR: %s\n", formatFloat(t.MaxRR)))
	}
	if t.Screenshot != "" {
		b.WriteString(fmt.Sprintf(":SCREENSHOT: %s\n", t.Screenshot))
	}
	b.WriteString(":END:\n")
	return b.String()
}

func formatFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
