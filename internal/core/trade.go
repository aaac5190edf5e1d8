package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	Long  Direction = "Long"
	Short Direction = "Short"

	Win       Result = "Win"
	Loss      Result = "Loss"
	BreakEven Result = "BE"
)

type (
	// Direction is the side of a position.
	Direction string

	// Result is the outcome of a trade. BreakEven is stored as "BE".
	Result string

	// Trade is a single logged position.
	Trade struct {
		ID         string          `json:"id"`
		Date       string          `json:"date"` // day-of-month label, not calendar checked
		Pair       string          `json:"pair"`
		Direction  Direction       `json:"direction"`
		RR         float64         `json:"rr"`
		Result     Result          `json:"result"`
		PnLDollar  decimal.Decimal `json:"pnlDollar"`
		PnLPercent float64         `json:"pnlPercent"`
		MaxRR      float64         `json:"maxRr,omitempty"` // informational, zero means not recorded
		Screenshot string          `json:"screenshot,omitempty"`
	}
)

// Dollar amounts go on the wire as JSON numbers, like rr and pnlPercent.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidResult    = errors.New("invalid result")
	ErrEmptyName        = errors.New("empty name")
)

// Validate reports whether d is Long or Short.
func (d Direction) Validate() error {
	switch d {
	case Long, Short:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDirection, string(d))
}

// Validate reports whether r is one of Win, Loss or BE.
func (r Result) Validate() error {
	switch r {
	case Win, Loss, BreakEven:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidResult, string(r))
}

// NewTrade returns the row added to a month. The pair is taken from the
// month's first trade, or EURUSD when the month is empty.
func NewTrade(existing []Trade) Trade {
	pair := "EURUSD"
	if len(existing) > 0 {
		pair = existing[0].Pair
	}
	return Trade{
		Date:       "1",
		Pair:       pair,
		Direction:  Long,
		RR:         2,
		Result:     BreakEven,
		PnLDollar:  decimal.Zero,
		PnLPercent: 0,
		MaxRR:      0,
	}
}

// derivePnL recomputes PnLPercent and normalises the sign of PnLDollar from
// the current Result and RR.
func (t *Trade) derivePnL() {
	switch t.Result {
	case Win:
		t.PnLPercent = t.RR
		if t.PnLDollar.IsNegative() {
			t.PnLDollar = t.PnLDollar.Abs()
		}
	case Loss:
		t.PnLPercent = -1
		if t.PnLDollar.IsPositive() {
			t.PnLDollar = t.PnLDollar.Abs().Neg()
		}
	default:
		t.PnLPercent = 0
		t.PnLDollar = decimal.Zero
	}
}

// ApplyPatch copies every column set in p onto t.
func (t *Trade) ApplyPatch(p TradePatch) {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Pair != nil {
		t.Pair = *p.Pair
	}
	if p.Direction != nil {
		t.Direction = *p.Direction
	}
	if p.RR != nil {
		t.RR = *p.RR
	}
	if p.Result != nil {
		t.Result = *p.Result
	}
	if p.PnLDollar != nil {
		t.PnLDollar = *p.PnLDollar
	}
	if p.PnLPercent != nil {
		t.PnLPercent = *p.PnLPercent
	}
	if p.MaxRR != nil {
		t.MaxRR = *p.MaxRR
	}
	if p.Screenshot != nil {
		t.Screenshot = *p.Screenshot
	}
}
