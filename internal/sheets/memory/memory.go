// Package memory is a JournalMirror that keeps the flattened rows in
// process. The worker falls back to it when no spreadsheet is configured.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"tradeflow/internal/core"
	ports "tradeflow/internal/sheets"
)

type Mirror struct {
	mu     sync.Mutex
	rows   map[string][][]any
	writes int
}

var _ ports.JournalMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: make(map[string][][]any)}
}

func (m *Mirror) WriteJournal(ctx context.Context, ownerID string, tree []core.Strategy) error {
	rows := ports.Rows(tree)

	m.mu.Lock()
	m.rows[ownerID] = rows
	m.writes++
	m.mu.Unlock()

	slog.DebugContext(ctx, "Journal mirrored in memory", "owner_id", ownerID, "rows", len(rows)-1)
	return nil
}

// Rows returns the last rows written for ownerID, header included.
func (m *Mirror) Rows(ownerID string) ([][]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[ownerID]
	return r, ok
}

// Writes counts WriteJournal calls.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
