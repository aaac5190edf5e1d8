package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
)

func TestMirror_ReplacesOwnerRows(t *testing.T) {
	m := New()
	ctx := context.Background()
	tree := []core.Strategy{{Name: "S", Months: []core.Month{{Name: "M", Trades: []core.Trade{{Pair: "EURUSD"}}}}}}

	require.NoError(t, m.WriteJournal(ctx, "u1", tree))
	rows, ok := m.Rows("u1")
	require.True(t, ok)
	assert.Len(t, rows, 2)

	require.NoError(t, m.WriteJournal(ctx, "u1", nil))
	rows, _ = m.Rows("u1")
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, m.Writes())

	_, ok = m.Rows("u2")
	assert.False(t, ok)
}
