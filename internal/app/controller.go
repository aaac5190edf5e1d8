// Package app holds the per-session journal controller and the registry
// that maps browser sessions onto controllers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradeflow/internal/core"
	"tradeflow/internal/id"
	"tradeflow/internal/journal"
	"tradeflow/internal/log"
	"tradeflow/internal/narrator"
	"tradeflow/internal/sample"
)

var (
	// ErrNoJournal is returned for mutations on a session that has neither
	// signed in nor chosen guest mode.
	ErrNoJournal = errors.New("no journal is open")
	// ErrNoBackend is returned by SignIn when no store is configured.
	ErrNoBackend = errors.New("no data backend configured")
	// ErrAlreadySignedIn is returned when an authenticated session asks for
	// guest mode.
	ErrAlreadySignedIn = errors.New("session is signed in")
)

type Options struct {
	// Store backs authenticated sessions. Nil means every session runs in
	// guest mode from the start.
	Store    journal.Store
	Narrator narrator.Narrator
	IDs      *id.Generator
	Now      func() time.Time
}

// Controller owns one session's journal tree. In guest mode it mutates the
// tree directly; when authenticated every mutation is confirmed by the store
// before it is applied.
type Controller struct {
	mu    sync.Mutex
	state State
	gen   uint64 // bumped whenever the whole tree is replaced

	store    journal.Store
	narrator narrator.Narrator
	ids      *id.Generator
	now      func() time.Time

	analyses map[string]Analysis
	inFlight map[string]bool

	edits map[string]*tradeLock // per-trade serialisation of UpdateTrade
}

type tradeLock struct {
	mu   sync.Mutex
	refs int
}

func NewController(opts Options) *Controller {
	c := &Controller{
		store:    opts.Store,
		narrator: opts.Narrator,
		ids:      opts.IDs,
		now:      opts.Now,
		state:    State{Mode: ModeSignedOut, Strategies: []core.Strategy{}},
		analyses: make(map[string]Analysis),
		inFlight: make(map[string]bool),
		edits:    make(map[string]*tradeLock),
	}
	if c.ids == nil {
		c.ids = id.NewGenerator(nil)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.store == nil {
		c.enterGuestLocked()
	}
	return c
}

// Snapshot returns a deep copy of the session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode
}

// GuestOnly reports whether the controller has no store to sign in to.
func (c *Controller) GuestOnly() bool { return c.store == nil }

func (c *Controller) CompleteOnboarding() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Onboarded = true
	return c.state.clone()
}

// ContinueAsGuest replaces the tree with a fresh copy of the sample journal.
func (c *Controller) ContinueAsGuest(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode == ModeAuthenticated {
		return c.state.clone(), ErrAlreadySignedIn
	}
	c.enterGuestLocked()
	log.FromContext(ctx).InfoContext(ctx, "Guest journal loaded", log.FieldMode, string(ModeGuest))
	return c.state.clone(), nil
}

func (c *Controller) enterGuestLocked() {
	c.state.Mode = ModeGuest
	c.state.Identity = nil
	c.state.Strategies = sample.MustStrategies(c.ids.New)
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.gen++
	c.analyses = make(map[string]Analysis)
}

// SignIn switches to the identity's stored journal. A failed fetch is logged
// and leaves the tree empty.
func (c *Controller) SignIn(ctx context.Context, identity core.Identity) (State, error) {
	if c.store == nil {
		return c.Snapshot(), ErrNoBackend
	}

	c.mu.Lock()
	c.state.Onboarded = true
	c.state.Mode = ModeAuthenticated
	ident := identity
	c.state.Identity = &ident
	c.state.Strategies = []core.Strategy{}
	c.resetLocked()
	gen := c.gen
	c.mu.Unlock()

	tree, err := c.store.FetchAll(ctx, identity.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentJournal).ErrorContext(ctx, "Failed to fetch journal",
			log.FieldOwnerID, identity.ID, log.FieldError, err)
		return c.state.clone(), nil
	}
	if c.gen == gen {
		if tree == nil {
			tree = []core.Strategy{}
		}
		c.state.Strategies = tree
	}
	return c.state.clone(), nil
}

// SignOut clears the tree and identity.
func (c *Controller) SignOut() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = ModeSignedOut
	c.state.Identity = nil
	c.state.Strategies = []core.Strategy{}
	c.resetLocked()
	return c.state.clone()
}

// backendLocked returns the store and owner when mutations must be confirmed
// remotely, or a nil store in guest mode.
func (c *Controller) backendLocked() (journal.Store, string, error) {
	switch c.state.Mode {
	case ModeGuest:
		return nil, "", nil
	case ModeAuthenticated:
		return c.store, c.state.Identity.ID, nil
	default:
		return nil, "", ErrNoJournal
	}
}

// FindMonth returns a copy of the month.
func (c *Controller) FindMonth(strategyID, monthID string) (core.Month, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.state.month(strategyID, monthID)
	if m == nil {
		return core.Month{}, false
	}
	return m.Clone(), true
}

// MonthStats computes stats for the month's current trades.
func (c *Controller) MonthStats(strategyID, monthID string) (core.Stats, bool) {
	m, ok := c.FindMonth(strategyID, monthID)
	if !ok {
		return core.Stats{}, false
	}
	return core.MonthStats(m), true
}

func storeFailure(ctx context.Context, op string, err error, strategyID, monthID, tradeID string) error {
	fields := log.NewFields().WithTarget(strategyID, monthID, tradeID).WithError(err).WithOperation(op)
	log.FromContext(ctx).WithComponent(log.ComponentJournal).ErrorContext(ctx, "Store rejected journal change", fields.ToSlice()...)
	return err
}

func logApplied(ctx context.Context, op string, mode Mode, strategyID, monthID, tradeID string) {
	log.NewStructuredLogger(log.FromContext(ctx)).LogMutation(ctx, op, string(mode), strategyID, monthID, tradeID)
}

// AddStrategy creates a strategy with the given name.
func (c *Controller) AddStrategy(ctx context.Context, name string) (core.Strategy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Strategy{}, core.ErrEmptyName
	}

	c.mu.Lock()
	store, owner, err := c.backendLocked()
	if err != nil {
		c.mu.Unlock()
		return core.Strategy{}, err
	}
	if store == nil {
		st := core.Strategy{ID: c.ids.New(), Name: name, Months: []core.Month{}}
		c.state.Strategies = append(c.state.Strategies, st)
		mode := c.state.Mode
		c.mu.Unlock()
		logApplied(ctx, log.OpCreate, mode, st.ID, "", "")
		return st.Clone(), nil
	}
	gen := c.gen
	c.mu.Unlock()

	st, err := store.CreateStrategy(ctx, owner, name)
	if err != nil {
		return core.Strategy{}, storeFailure(ctx, log.OpCreate, fmt.Errorf("create strategy: %w", err), "", "", "")
	}
	if st.Months == nil {
		st.Months = []core.Month{}
	}

	c.mu.Lock()
	if c.gen == gen {
		c.state.Strategies = append(c.state.Strategies, st.Clone())
	}
	c.mu.Unlock()
	logApplied(ctx, log.OpCreate, ModeAuthenticated, st.ID, "", "")
	return st, nil
}

// DeleteStrategy removes the strategy and everything under it.
func (c *Controller) DeleteStrategy(ctx context.Context, strategyID string) (bool, error) {
	return c.mutate(ctx, log.OpDelete, strategyID, "", "",
		func(s *State) bool { return s.strategy(strategyID) != nil },
		func(store journal.Store) error {
			if err := store.DeleteStrategy(ctx, strategyID); err != nil {
				return fmt.Errorf("delete strategy: %w", err)
			}
			return nil
		},
		func(s *State) {
			if st := s.strategy(strategyID); st != nil {
				for _, m := range st.Months {
					delete(c.analyses, m.ID)
				}
			}
			s.removeStrategy(strategyID)
		},
	)
}

func (c *Controller) UpdateStrategyNote(ctx context.Context, strategyID, note string) (bool, error) {
	return c.mutate(ctx, log.OpUpdate, strategyID, "", "",
		func(s *State) bool { return s.strategy(strategyID) != nil },
		func(store journal.Store) error {
			if err := store.UpdateStrategyNote(ctx, strategyID, note); err != nil {
				return fmt.Errorf("update strategy note: %w", err)
			}
			return nil
		},
		func(s *State) {
			if st := s.strategy(strategyID); st != nil {
				st.Note = note
			}
		},
	)
}

// AddMonth appends a month to the strategy. An empty name becomes the
// current calendar month.
func (c *Controller) AddMonth(ctx context.Context, strategyID, name string) (core.Month, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = core.MonthName(c.now())
	}

	c.mu.Lock()
	store, _, err := c.backendLocked()
	if err != nil {
		c.mu.Unlock()
		return core.Month{}, false, err
	}
	st := c.state.strategy(strategyID)
	if st == nil {
		c.mu.Unlock()
		return core.Month{}, false, nil
	}
	if store == nil {
		m := core.Month{ID: c.ids.New(), Name: name, Trades: []core.Trade{}}
		st.Months = append(st.Months, m)
		mode := c.state.Mode
		c.mu.Unlock()
		logApplied(ctx, log.OpCreate, mode, strategyID, m.ID, "")
		return m.Clone(), true, nil
	}
	gen := c.gen
	c.mu.Unlock()

	m, err := store.CreateMonth(ctx, strategyID, name)
	if errors.Is(err, journal.ErrNotFound) {
		return core.Month{}, false, nil
	}
	if err != nil {
		return core.Month{}, true, storeFailure(ctx, log.OpCreate, fmt.Errorf("create month: %w", err), strategyID, "", "")
	}
	if m.Trades == nil {
		m.Trades = []core.Trade{}
	}

	c.mu.Lock()
	if st := c.state.strategy(strategyID); st != nil && c.gen == gen {
		st.Months = append(st.Months, m.Clone())
	}
	c.mu.Unlock()
	logApplied(ctx, log.OpCreate, ModeAuthenticated, strategyID, m.ID, "")
	return m, true, nil
}

// DeleteMonth removes the month and its trades.
func (c *Controller) DeleteMonth(ctx context.Context, strategyID, monthID string) (bool, error) {
	return c.mutate(ctx, log.OpDelete, strategyID, monthID, "",
		func(s *State) bool { return s.month(strategyID, monthID) != nil },
		func(store journal.Store) error {
			if err := store.DeleteMonth(ctx, monthID); err != nil {
				return fmt.Errorf("delete month: %w", err)
			}
			return nil
		},
		func(s *State) {
			s.removeMonth(strategyID, monthID)
			delete(c.analyses, monthID)
		},
	)
}

func (c *Controller) UpdateMonthNote(ctx context.Context, strategyID, monthID, note string) (bool, error) {
	return c.mutate(ctx, log.OpUpdate, strategyID, monthID, "",
		func(s *State) bool { return s.month(strategyID, monthID) != nil },
		func(store journal.Store) error {
			if err := store.UpdateMonthNote(ctx, monthID, note); err != nil {
				return fmt.Errorf("update month note: %w", err)
			}
			return nil
		},
		func(s *State) {
			if m := s.month(strategyID, monthID); m != nil {
				m.Note = note
			}
		},
	)
}

// AddTrade appends a trade with the default values to the month.
func (c *Controller) AddTrade(ctx context.Context, strategyID, monthID string) (core.Trade, bool, error) {
	c.mu.Lock()
	store, _, err := c.backendLocked()
	if err != nil {
		c.mu.Unlock()
		return core.Trade{}, false, err
	}
	m := c.state.month(strategyID, monthID)
	if m == nil {
		c.mu.Unlock()
		return core.Trade{}, false, nil
	}
	t := core.NewTrade(m.Trades)
	if store == nil {
		t.ID = c.ids.New()
		m.Trades = append(m.Trades, t)
		mode := c.state.Mode
		c.mu.Unlock()
		logApplied(ctx, log.OpCreate, mode, strategyID, monthID, t.ID)
		return t, true, nil
	}
	gen := c.gen
	c.mu.Unlock()

	created, err := store.CreateTrade(ctx, monthID, t)
	if errors.Is(err, journal.ErrNotFound) {
		return core.Trade{}, false, nil
	}
	if err != nil {
		return core.Trade{}, true, storeFailure(ctx, log.OpCreate, fmt.Errorf("create trade: %w", err), strategyID, monthID, "")
	}

	c.mu.Lock()
	if m := c.state.month(strategyID, monthID); m != nil && c.gen == gen {
		m.Trades = append(m.Trades, created)
	}
	c.mu.Unlock()
	logApplied(ctx, log.OpCreate, ModeAuthenticated, strategyID, monthID, created.ID)
	return created, true, nil
}

// UpdateTrade applies one field edit. Editing rr or result re-derives the
// P&L columns. Edits to the same trade run one at a time, each derived from
// the row the previous one left behind.
func (c *Controller) UpdateTrade(ctx context.Context, strategyID, monthID, tradeID string, edit core.TradeEdit) (core.Trade, bool, error) {
	unlock := c.lockTrade(tradeID)
	defer unlock()

	c.mu.Lock()
	store, _, err := c.backendLocked()
	if err != nil {
		c.mu.Unlock()
		return core.Trade{}, false, err
	}
	t := c.state.trade(strategyID, monthID, tradeID)
	if t == nil {
		c.mu.Unlock()
		return core.Trade{}, false, nil
	}
	updated, patch, err := t.Apply(edit)
	if err != nil {
		c.mu.Unlock()
		return core.Trade{}, true, err
	}
	if store == nil {
		*t = updated
		mode := c.state.Mode
		c.mu.Unlock()
		logApplied(ctx, log.OpUpdate, mode, strategyID, monthID, tradeID)
		return updated, true, nil
	}
	gen := c.gen
	c.mu.Unlock()

	if err := store.UpdateTrade(ctx, tradeID, patch); err != nil {
		return core.Trade{}, true, storeFailure(ctx, log.OpUpdate, fmt.Errorf("update trade: %w", err), strategyID, monthID, tradeID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.state.trade(strategyID, monthID, tradeID); t != nil && c.gen == gen {
		t.ApplyPatch(patch)
		updated = *t
	}
	logApplied(ctx, log.OpUpdate, ModeAuthenticated, strategyID, monthID, tradeID)
	return updated, true, nil
}

// lockTrade holds the edit lock for tradeID until the returned func runs.
func (c *Controller) lockTrade(tradeID string) func() {
	c.mu.Lock()
	l := c.edits[tradeID]
	if l == nil {
		l = &tradeLock{}
		c.edits[tradeID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(c.edits, tradeID)
		}
		c.mu.Unlock()
	}
}

func (c *Controller) DeleteTrade(ctx context.Context, strategyID, monthID, tradeID string) (bool, error) {
	return c.mutate(ctx, log.OpDelete, strategyID, monthID, tradeID,
		func(s *State) bool { return s.trade(strategyID, monthID, tradeID) != nil },
		func(store journal.Store) error {
			if err := store.DeleteTrade(ctx, tradeID); err != nil {
				return fmt.Errorf("delete trade: %w", err)
			}
			return nil
		},
		func(s *State) { s.removeTrade(strategyID, monthID, tradeID) },
	)
}

// mutate runs the locate, confirm, apply sequence shared by the updates and
// deletes that return nothing but whether the target existed.
func (c *Controller) mutate(
	ctx context.Context,
	op, strategyID, monthID, tradeID string,
	exists func(*State) bool,
	persist func(journal.Store) error,
	apply func(*State),
) (bool, error) {
	c.mu.Lock()
	store, _, err := c.backendLocked()
	if err != nil {
		c.mu.Unlock()
		return false, err
	}
	if !exists(&c.state) {
		c.mu.Unlock()
		return false, nil
	}
	if store == nil {
		apply(&c.state)
		mode := c.state.Mode
		c.mu.Unlock()
		logApplied(ctx, op, mode, strategyID, monthID, tradeID)
		return true, nil
	}
	gen := c.gen
	c.mu.Unlock()

	if err := persist(store); err != nil {
		return true, storeFailure(ctx, op, err, strategyID, monthID, tradeID)
	}

	c.mu.Lock()
	if c.gen == gen {
		apply(&c.state)
	}
	c.mu.Unlock()
	logApplied(ctx, op, ModeAuthenticated, strategyID, monthID, tradeID)
	return true, nil
}
