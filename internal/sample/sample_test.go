package sample

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
)

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func TestStrategies_Bundled(t *testing.T) {
	tree, err := Strategies(counter())
	require.NoError(t, err)
	require.NotEmpty(t, tree)

	seen := map[string]bool{}
	for _, st := range tree {
		assert.False(t, seen[st.ID])
		seen[st.ID] = true
		for _, m := range st.Months {
			assert.False(t, seen[m.ID])
			seen[m.ID] = true
			for _, tr := range m.Trades {
				assert.False(t, seen[tr.ID])
				seen[tr.ID] = true

				switch tr.Result {
				case core.Win:
					assert.Equal(t, tr.RR, tr.PnLPercent)
					assert.False(t, tr.PnLDollar.IsNegative())
				case core.Loss:
					assert.Equal(t, -1.0, tr.PnLPercent)
					assert.False(t, tr.PnLDollar.IsPositive())
				case core.BreakEven:
					assert.Zero(t, tr.PnLPercent)
					assert.True(t, tr.PnLDollar.IsZero())
				default:
					t.Fatalf("unexpected result %q", tr.Result)
				}
			}
		}
	}
}

func TestStrategies_IndependentCopies(t *testing.T) {
	a := MustStrategies(counter())
	b := MustStrategies(counter())

	a[0].Months[0].Trades[0].Pair = "CHANGED"
	assert.NotEqual(t, "CHANGED", b[0].Months[0].Trades[0].Pair)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("- name: [broken"), counter())
	assert.Error(t, err)

	bad := []byte(`
- name: X
  months:
    - name: M
      trades:
        - {date: "1", pair: EURUSD, direction: Sideways, rr: 2, result: Win}
`)
	_, err = Parse(bad, counter())
	assert.ErrorIs(t, err, core.ErrInvalidDirection)

	badResult := []byte(`
- name: X
  months:
    - name: M
      trades:
        - {date: "1", pair: EURUSD, direction: Long, rr: 2, result: Draw}
`)
	_, err = Parse(badResult, counter())
	assert.ErrorIs(t, err, core.ErrInvalidResult)
}
