package sheets

import (
	"context"
	"strconv"

	"tradeflow/internal/core"
)

// Ports for outbound adapters.
type (
	// JournalMirror replaces the mirrored copy of one owner's journal.
	JournalMirror interface {
		WriteJournal(ctx context.Context, ownerID string, tree []core.Strategy) error
	}
)

// Header is the first row of every mirrored journal.
var Header = []any{"Strategy", "Month", "Day", "Pair", "Direction", "RR", "Result", "PnL $", "PnL %", "Max RR", "Screenshot"}

// Rows flattens tree into one row per trade, header first. Months without
// trades still get a row so they show up in the sheet.
func Rows(tree []core.Strategy) [][]any {
	rows := [][]any{Header}
	for _, st := range tree {
		for _, m := range st.Months {
			if len(m.Trades) == 0 {
				rows = append(rows, []any{st.Name, m.Name, "", "", "", "", "", "", "", "", ""})
				continue
			}
			for _, t := range m.Trades {
				maxRR := ""
				if t.MaxRR != 0 {
					maxRR = strconv.FormatFloat(t.MaxRR, 'f', -1, 64)
				}
				rows = append(rows, []any{
					st.Name,
					m.Name,
					t.Date,
					t.Pair,
					string(t.Direction),
					t.RR,
					string(t.Result),
					t.PnLDollar.InexactFloat64(),
					t.PnLPercent,
					maxRR,
					t.Screenshot,
				})
			}
		}
	}
	return rows
}
