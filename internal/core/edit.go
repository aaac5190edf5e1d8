package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// TradeField names an editable trade column as it appears on the wire.
type TradeField string

const (
	FieldDate       TradeField = "date"
	FieldPair       TradeField = "pair"
	FieldDirection  TradeField = "direction"
	FieldRR         TradeField = "rr"
	FieldResult     TradeField = "result"
	FieldPnLDollar  TradeField = "pnlDollar"
	FieldPnLPercent TradeField = "pnlPercent"
	FieldMaxRR      TradeField = "maxRr"
	FieldScreenshot TradeField = "screenshot"
)

var (
	ErrUnknownField = errors.New("unknown trade field")
	ErrInvalidValue = errors.New("invalid field value")
)

// TradeEdit is one typed change to a trade. The set of implementations is
// closed: SetDate, SetPair, SetDirection, SetRR, SetResult, SetPnLDollar,
// SetMaxRR and SetScreenshot.
type TradeEdit interface {
	Field() TradeField
	apply(t *Trade, p *TradePatch) error
}

type (
	SetDate       string
	SetPair       string
	SetDirection  Direction
	SetRR         float64
	SetResult     Result
	SetMaxRR      float64
	SetScreenshot string
	SetPnLDollar  struct{ Value decimal.Decimal }
)

func (SetDate) Field() TradeField       { return FieldDate }
func (SetPair) Field() TradeField       { return FieldPair }
func (SetDirection) Field() TradeField  { return FieldDirection }
func (SetRR) Field() TradeField         { return FieldRR }
func (SetResult) Field() TradeField     { return FieldResult }
func (SetMaxRR) Field() TradeField      { return FieldMaxRR }
func (SetScreenshot) Field() TradeField { return FieldScreenshot }
func (SetPnLDollar) Field() TradeField  { return FieldPnLDollar }

func (e SetDate) apply(t *Trade, p *TradePatch) error {
	v := string(e)
	t.Date, p.Date = v, &v
	return nil
}

func (e SetPair) apply(t *Trade, p *TradePatch) error {
	v := string(e)
	t.Pair, p.Pair = v, &v
	return nil
}

func (e SetDirection) apply(t *Trade, p *TradePatch) error {
	v := Direction(e)
	if err := v.Validate(); err != nil {
		return err
	}
	t.Direction, p.Direction = v, &v
	return nil
}

func (e SetRR) apply(t *Trade, p *TradePatch) error {
	v := float64(e)
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: rr must be a non-negative number, got %v", ErrInvalidValue, v)
	}
	t.RR, p.RR = v, &v
	return nil
}

func (e SetResult) apply(t *Trade, p *TradePatch) error {
	v := Result(e)
	if err := v.Validate(); err != nil {
		return err
	}
	t.Result, p.Result = v, &v
	return nil
}

func (e SetMaxRR) apply(t *Trade, p *TradePatch) error {
	v := float64(e)
	t.MaxRR, p.MaxRR = v, &v
	return nil
}

func (e SetScreenshot) apply(t *Trade, p *TradePatch) error {
	v := string(e)
	t.Screenshot, p.Screenshot = v, &v
	return nil
}

func (e SetPnLDollar) apply(t *Trade, p *TradePatch) error {
	v := e.Value
	t.PnLDollar, p.PnLDollar = v, &v
	return nil
}

// TradePatch is the set of columns changed by an edit. Nil fields are
// untouched.
type TradePatch struct {
	Date       *string
	Pair       *string
	Direction  *Direction
	RR         *float64
	Result     *Result
	PnLDollar  *decimal.Decimal
	PnLPercent *float64
	MaxRR      *float64
	Screenshot *string
}

// Fields lists the columns set in the patch, in declaration order.
func (p TradePatch) Fields() []TradeField {
	var out []TradeField
	add := func(set bool, f TradeField) {
		if set {
			out = append(out, f)
		}
	}
	add(p.Date != nil, FieldDate)
	add(p.Pair != nil, FieldPair)
	add(p.Direction != nil, FieldDirection)
	add(p.RR != nil, FieldRR)
	add(p.Result != nil, FieldResult)
	add(p.PnLDollar != nil, FieldPnLDollar)
	add(p.PnLPercent != nil, FieldPnLPercent)
	add(p.MaxRR != nil, FieldMaxRR)
	add(p.Screenshot != nil, FieldScreenshot)
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p TradePatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply returns t with edit applied and the patch a store needs to persist
// it. Editing RR or Result re-derives PnLPercent and the sign of PnLDollar
// from the new values, and the patch then carries all four columns; other
// edits leave them untouched. On error t is
// returned unchanged.
func (t Trade) Apply(edit TradeEdit) (Trade, TradePatch, error) {
	if edit == nil {
		return t, TradePatch{}, ErrUnknownField
	}

	updated := t
	var patch TradePatch
	if err := edit.apply(&updated, &patch); err != nil {
		return t, TradePatch{}, err
	}

	switch edit.(type) {
	case SetRR, SetResult:
		updated.derivePnL()
		rr, res := updated.RR, updated.Result
		pct, usd := updated.PnLPercent, updated.PnLDollar
		patch.RR, patch.Result = &rr, &res
		patch.PnLPercent, patch.PnLDollar = &pct, &usd
	}

	return updated, patch, nil
}

// ParseTradeEdit decodes a {field, value} pair from a client into a typed
// edit.
func ParseTradeEdit(field string, raw json.RawMessage) (TradeEdit, error) {
	switch TradeField(field) {
	case FieldDate:
		var v string
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		return SetDate(v), nil
	case FieldPair:
		var v string
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		return SetPair(v), nil
	case FieldDirection:
		var v Direction
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		return SetDirection(v), nil
	case FieldRR:
		var v float64
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		return SetRR(v), nil
	case FieldResult:
		var v Result
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		return SetResult(v), nil
	case FieldPnLDollar:
		var v decimal.Decimal
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		return SetPnLDollar{Value: v}, nil
	case FieldMaxRR:
		var v float64
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		return SetMaxRR(v), nil
	case FieldScreenshot:
		var v string
		if err := decodeValue(field, raw, &v); err != nil {
			return nil, err
		}
		return SetScreenshot(v), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func decodeValue(field string, raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: %s: missing value", ErrInvalidValue, field)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	return nil
}
