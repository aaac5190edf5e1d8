package core

import (
	"strings"
	"time"
)

type (
	// Month is a named period holding trades in display order.
	Month struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Trades []Trade `json:"trades"`
		Note   string  `json:"note,omitempty"`
	}

	// Strategy is a named trading approach holding months.
	Strategy struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Months []Month `json:"months"`
		Note   string  `json:"note,omitempty"`
	}

	// Identity is the signed-in user as reported by the session provider.
	Identity struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Avatar string `json:"avatar,omitempty"`
	}
)

// DisplayName picks the first non-empty of the provider's full name, the
// local part of the email and "Trader".
func DisplayName(fullName, email string) string {
	if n := strings.TrimSpace(fullName); n != "" {
		return n
	}
	if local, _, _ := strings.Cut(email, "@"); local != "" {
		return local
	}
	return "Trader"
}

// MonthName formats t the way months are conventionally named, e.g.
// "January 2025".
func MonthName(t time.Time) string {
	return t.Format("January 2006")
}

// Clone returns a deep copy of the month.
func (m Month) Clone() Month {
	out := m
	out.Trades = append([]Trade(nil), m.Trades...)
	if out.Trades == nil {
		out.Trades = []Trade{}
	}
	return out
}

// Clone returns a deep copy of the strategy and its months.
func (s Strategy) Clone() Strategy {
	out := s
	out.Months = make([]Month, len(s.Months))
	for i, m := range s.Months {
		out.Months[i] = m.Clone()
	}
	return out
}

// CloneStrategies deep-copies a whole journal tree.
func CloneStrategies(in []Strategy) []Strategy {
	out := make([]Strategy, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// TradeCount returns the number of trades across all months.
func (s Strategy) TradeCount() int {
	n := 0
	for _, m := range s.Months {
		n += len(m.Trades)
	}
	return n
}
