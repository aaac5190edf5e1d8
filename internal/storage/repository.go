package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeflow/internal/core"
	"tradeflow/internal/journal"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the relational journal.Store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ journal.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FetchAll implements journal.TreeReader.
func (r *SQLiteRepository) FetchAll(ctx context.Context, ownerID string) ([]core.Strategy, error) {
	strategies, err := r.queries.ListStrategiesByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	months, err := r.queries.ListMonthsByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	trades, err := r.queries.ListTradesByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	tradesByMonth := make(map[string][]core.Trade)
	for _, row := range trades {
		t, err := tradeFromRow(row)
		if err != nil {
			return nil, err
		}
		tradesByMonth[row.MonthID] = append(tradesByMonth[row.MonthID], t)
	}

	monthsByStrategy := make(map[string][]core.Month)
	for _, row := range months {
		m := monthFromRow(row)
		if ts, ok := tradesByMonth[row.ID]; ok {
			m.Trades = ts
		}
		monthsByStrategy[row.StrategyID] = append(monthsByStrategy[row.StrategyID], m)
	}

	out := make([]core.Strategy, 0, len(strategies))
	for _, row := range strategies {
		s := core.Strategy{ID: row.ID, Name: row.Name, Note: row.Note.String, Months: []core.Month{}}
		if ms, ok := monthsByStrategy[row.ID]; ok {
			s.Months = ms
		}
		out = append(out, s)
	}

	slog.DebugContext(ctx, "Journal loaded from SQLite",
		"owner_id", ownerID,
		"strategies", len(strategies),
		"months", len(months),
		"trades", len(trades))

	return out, nil
}

// ListOwners returns every user that owns at least one strategy.
func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	owners, err := r.queries.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

func (r *SQLiteRepository) CreateStrategy(ctx context.Context, ownerID, name string) (core.Strategy, error) {
	id := uuid.NewString()
	if err := r.queries.InsertStrategy(ctx, id, ownerID, name); err != nil {
		return core.Strategy{}, fmt.Errorf("create strategy: %w", err)
	}

	slog.InfoContext(ctx, "Strategy saved to SQLite", "id", id, "owner_id", ownerID, "name", name)
	return core.Strategy{ID: id, Name: name, Months: []core.Month{}}, nil
}

// DeleteStrategy removes the strategy together with its months and trades.
func (r *SQLiteRepository) DeleteStrategy(ctx context.Context, id string) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteTradesByStrategy(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteMonthsByStrategy(ctx, id); err != nil {
			return err
		}
		return q.DeleteStrategy(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateStrategyNote(ctx context.Context, id, note string) error {
	if err := r.queries.UpdateStrategyNote(ctx, id, note); err != nil {
		return fmt.Errorf("update strategy note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateMonth(ctx context.Context, strategyID, name string) (core.Month, error) {
	if _, err := r.queries.StrategyOwner(ctx, strategyID); err != nil {
		return core.Month{}, fmt.Errorf("create month: %w", notFound(err))
	}

	id := uuid.NewString()
	if err := r.queries.InsertMonth(ctx, id, strategyID, name); err != nil {
		return core.Month{}, fmt.Errorf("create month: %w", err)
	}

	slog.InfoContext(ctx, "Month saved to SQLite", "id", id, "strategy_id", strategyID, "name", name)
	return core.Month{ID: id, Name: name, Trades: []core.Trade{}}, nil
}

// DeleteMonth removes the month and its trades.
func (r *SQLiteRepository) DeleteMonth(ctx context.Context, id string) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteTradesByMonth(ctx, id); err != nil {
			return err
		}
		return q.DeleteMonth(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete month: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateMonthNote(ctx context.Context, id, note string) error {
	if err := r.queries.UpdateMonthNote(ctx, id, note); err != nil {
		return fmt.Errorf("update month note: %w", err)
	}
	return nil
}

// GetMonth returns a single month with its trades.
func (r *SQLiteRepository) GetMonth(ctx context.Context, id string) (core.Month, error) {
	row, err := r.queries.GetMonth(ctx, id)
	if err != nil {
		return core.Month{}, fmt.Errorf("get month: %w", notFound(err))
	}
	rows, err := r.queries.ListTradesByMonth(ctx, id)
	if err != nil {
		return core.Month{}, fmt.Errorf("list month trades: %w", err)
	}

	m := monthFromRow(row)
	for _, tr := range rows {
		t, err := tradeFromRow(tr)
		if err != nil {
			return core.Month{}, err
		}
		m.Trades = append(m.Trades, t)
	}
	return m, nil
}

func (r *SQLiteRepository) CreateTrade(ctx context.Context, monthID string, t core.Trade) (core.Trade, error) {
	if _, err := r.queries.MonthOwner(ctx, monthID); err != nil {
		return core.Trade{}, fmt.Errorf("create trade: %w", notFound(err))
	}

	t.ID = uuid.NewString()
	if err := r.queries.InsertTrade(ctx, tradeToRow(monthID, t)); err != nil {
		return core.Trade{}, fmt.Errorf("create trade: %w", err)
	}

	slog.InfoContext(ctx, "Trade saved to SQLite",
		"id", t.ID,
		"month_id", monthID,
		"pair", t.Pair,
		"result", t.Result)

	return t, nil
}

// UpdateTrade writes the patched columns. Concurrent writers are resolved
// last-write-wins per column.
func (r *SQLiteRepository) UpdateTrade(ctx context.Context, id string, patch core.TradePatch) error {
	if err := r.queries.UpdateTradeColumns(ctx, id, patch); err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTrade(ctx context.Context, id string) error {
	if err := r.queries.DeleteTrade(ctx, id); err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	return nil
}

// StrategyOwner, MonthOwner and TradeOwner resolve the user a row belongs
// to. They return journal.ErrNotFound for unknown ids.
func (r *SQLiteRepository) StrategyOwner(ctx context.Context, id string) (string, error) {
	owner, err := r.queries.StrategyOwner(ctx, id)
	return owner, notFound(err)
}

func (r *SQLiteRepository) MonthOwner(ctx context.Context, id string) (string, error) {
	owner, err := r.queries.MonthOwner(ctx, id)
	return owner, notFound(err)
}

func (r *SQLiteRepository) TradeOwner(ctx context.Context, id string) (string, error) {
	owner, err := r.queries.TradeOwner(ctx, id)
	return owner, notFound(err)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return journal.ErrNotFound
	}
	return err
}

func monthFromRow(row MonthRow) core.Month {
	return core.Month{ID: row.ID, Name: row.Name, Note: row.Note.String, Trades: []core.Trade{}}
}

func tradeFromRow(row TradeRow) (core.Trade, error) {
	dollars, err := decimal.NewFromString(row.PnLDollar)
	if err != nil {
		return core.Trade{}, fmt.Errorf("parse pnl_dollar for trade %s: %w", row.ID, err)
	}
	return core.Trade{
		ID:         row.ID,
		Date:       row.Date,
		Pair:       row.Pair,
		Direction:  core.Direction(row.Direction),
		RR:         row.RR,
		Result:     core.Result(row.Result),
		PnLDollar:  dollars,
		PnLPercent: row.PnLPercent,
		MaxRR:      row.MaxRR.Float64,
		Screenshot: row.Screenshot.String,
	}, nil
}

func tradeToRow(monthID string, t core.Trade) TradeRow {
	return TradeRow{
		ID:         t.ID,
		MonthID:    monthID,
		Date:       t.Date,
		Pair:       t.Pair,
		Direction:  string(t.Direction),
		RR:         t.RR,
		Result:     string(t.Result),
		PnLDollar:  t.PnLDollar.String(),
		PnLPercent: t.PnLPercent,
		MaxRR:      nullableRR(t.MaxRR),
		Screenshot: nullableString(t.Screenshot),
	}
}
