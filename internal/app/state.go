package app

import "tradeflow/internal/core"

// Mode is who the journal tree belongs to.
type Mode string

const (
	ModeSignedOut     Mode = "signed_out"
	ModeGuest         Mode = "guest"
	ModeAuthenticated Mode = "authenticated"
)

// State is everything a session shows. Strategies is the full journal tree.
type State struct {
	Onboarded  bool            `json:"onboarded"`
	Mode       Mode            `json:"mode"`
	Identity   *core.Identity  `json:"identity,omitempty"`
	Strategies []core.Strategy `json:"strategies"`
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	out.Strategies = core.CloneStrategies(s.Strategies)
	return out
}

// The lookups below return pointers into the tree and are only valid while
// the controller lock is held.

func (s *State) strategy(id string) *core.Strategy {
	for i := range s.Strategies {
		if s.Strategies[i].ID == id {
			return &s.Strategies[i]
		}
	}
	return nil
}

func (s *State) month(strategyID, monthID string) *core.Month {
	st := s.strategy(strategyID)
	if st == nil {
		return nil
	}
	for i := range st.Months {
		if st.Months[i].ID == monthID {
			return &st.Months[i]
		}
	}
	return nil
}

func (s *State) trade(strategyID, monthID, tradeID string) *core.Trade {
	m := s.month(strategyID, monthID)
	if m == nil {
		return nil
	}
	for i := range m.Trades {
		if m.Trades[i].ID == tradeID {
			return &m.Trades[i]
		}
	}
	return nil
}

func (s *State) removeStrategy(id string) bool {
	for i := range s.Strategies {
		if s.Strategies[i].ID == id {
			s.Strategies = append(s.Strategies[:i:i], s.Strategies[i+1:]...)
			return true
		}
	}
	return false
}

func (s *State) removeMonth(strategyID, monthID string) bool {
	st := s.strategy(strategyID)
	if st == nil {
		return false
	}
	for i := range st.Months {
		if st.Months[i].ID == monthID {
			st.Months = append(st.Months[:i:i], st.Months[i+1:]...)
			return true
		}
	}
	return false
}

func (s *State) removeTrade(strategyID, monthID, tradeID string) bool {
	m := s.month(strategyID, monthID)
	if m == nil {
		return false
	}
	for i := range m.Trades {
		if m.Trades[i].ID == tradeID {
			m.Trades = append(m.Trades[:i:i], m.Trades[i+1:]...)
			return true
		}
	}
	return false
}
