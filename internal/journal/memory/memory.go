// Package memory is an in-process journal.Store. Rows are kept flat, the way
// a relational store holds them, and nested on FetchAll.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"tradeflow/internal/core"
	"tradeflow/internal/journal"
)

type strategyRow struct {
	id, ownerID, name, note string
}

type monthRow struct {
	id, strategyID, name, note string
}

type tradeRow struct {
	monthID string
	trade   core.Trade
}

type Store struct {
	mu         sync.Mutex
	seq        int
	strategies []strategyRow
	months     []monthRow
	trades     []tradeRow
}

var _ journal.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewSeeded returns a store pre-filled with tree under ownerID. Identifiers in
// tree are replaced by store-issued ones.
func NewSeeded(ownerID string, tree []core.Strategy) *Store {
	s := New()
	for _, st := range tree {
		sid := s.nextID()
		s.strategies = append(s.strategies, strategyRow{id: sid, ownerID: ownerID, name: st.Name, note: st.Note})
		for _, m := range st.Months {
			mid := s.nextID()
			s.months = append(s.months, monthRow{id: mid, strategyID: sid, name: m.Name, note: m.Note})
			for _, t := range m.Trades {
				t.ID = s.nextID()
				s.trades = append(s.trades, tradeRow{monthID: mid, trade: t})
			}
		}
	}
	return s
}

func (s *Store) nextID() string {
	s.seq++
	return fmt.Sprintf("mem:%d", s.seq)
}

// FetchAll implements journal.TreeReader.
func (s *Store) FetchAll(_ context.Context, ownerID string) ([]core.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []core.Strategy{}
	for _, sr := range s.strategies {
		if sr.ownerID != ownerID {
			continue
		}
		st := core.Strategy{ID: sr.id, Name: sr.name, Note: sr.note, Months: []core.Month{}}
		for _, mr := range s.months {
			if mr.strategyID != sr.id {
				continue
			}
			m := core.Month{ID: mr.id, Name: mr.name, Note: mr.note, Trades: []core.Trade{}}
			for _, tr := range s.trades {
				if tr.monthID == mr.id {
					m.Trades = append(m.Trades, tr.trade)
				}
			}
			st.Months = append(st.Months, m)
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) CreateStrategy(_ context.Context, ownerID, name string) (core.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := strategyRow{id: s.nextID(), ownerID: ownerID, name: name}
	s.strategies = append(s.strategies, row)
	return core.Strategy{ID: row.id, Name: name, Months: []core.Month{}}, nil
}

// DeleteStrategy removes the strategy with its months and trades.
func (s *Store) DeleteStrategy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strategies = slices.DeleteFunc(s.strategies, func(r strategyRow) bool { return r.id == id })
	var gone []string
	s.months = slices.DeleteFunc(s.months, func(r monthRow) bool {
		if r.strategyID == id {
			gone = append(gone, r.id)
			return true
		}
		return false
	})
	s.trades = slices.DeleteFunc(s.trades, func(r tradeRow) bool { return slices.Contains(gone, r.monthID) })
	return nil
}

func (s *Store) UpdateStrategyNote(_ context.Context, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.strategies {
		if s.strategies[i].id == id {
			s.strategies[i].note = note
		}
	}
	return nil
}

func (s *Store) CreateMonth(_ context.Context, strategyID, name string) (core.Month, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.strategies, func(r strategyRow) bool { return r.id == strategyID }) {
		return core.Month{}, fmt.Errorf("strategy %s: %w", strategyID, journal.ErrNotFound)
	}
	row := monthRow{id: s.nextID(), strategyID: strategyID, name: name}
	s.months = append(s.months, row)
	return core.Month{ID: row.id, Name: name, Trades: []core.Trade{}}, nil
}

// DeleteMonth removes the month and its trades.
func (s *Store) DeleteMonth(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.months = slices.DeleteFunc(s.months, func(r monthRow) bool { return r.id == id })
	s.trades = slices.DeleteFunc(s.trades, func(r tradeRow) bool { return r.monthID == id })
	return nil
}

func (s *Store) UpdateMonthNote(_ context.Context, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.months {
		if s.months[i].id == id {
			s.months[i].note = note
		}
	}
	return nil
}

func (s *Store) CreateTrade(_ context.Context, monthID string, t core.Trade) (core.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.months, func(r monthRow) bool { return r.id == monthID }) {
		return core.Trade{}, fmt.Errorf("month %s: %w", monthID, journal.ErrNotFound)
	}
	t.ID = s.nextID()
	s.trades = append(s.trades, tradeRow{monthID: monthID, trade: t})
	return t, nil
}

func (s *Store) UpdateTrade(_ context.Context, id string, patch core.TradePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.trades {
		if s.trades[i].trade.ID == id {
			s.trades[i].trade.ApplyPatch(patch)
		}
	}
	return nil
}

func (s *Store) DeleteTrade(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = slices.DeleteFunc(s.trades, func(r tradeRow) bool { return r.trade.ID == id })
	return nil
}

// Counts returns the number of stored strategies, months and trades.
func (s *Store) Counts() (strategies, months, trades int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.strategies), len(s.months), len(s.trades)
}
