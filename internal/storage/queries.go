package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tradeflow/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// StrategyRow mirrors the strategies table.
type StrategyRow struct {
	ID     string
	UserID string
	Name   string
	Note   sql.NullString
}

// MonthRow mirrors the months table.
type MonthRow struct {
	ID         string
	StrategyID string
	Name       string
	Note       sql.NullString
}

// TradeRow mirrors the trades table.
type TradeRow struct {
	ID         string
	MonthID    string
	Date       string
	Pair       string
	Direction  string
	RR         float64
	Result     string
	PnLDollar  string
	PnLPercent float64
	MaxRR      sql.NullFloat64
	Screenshot sql.NullString
}

const insertStrategy = `INSERT INTO strategies (id, user_id, name) VALUES (?, ?, ?)`

func (q *Queries) InsertStrategy(ctx context.Context, id, userID, name string) error {
	_, err := q.db.ExecContext(ctx, insertStrategy, id, userID, name)
	return err
}

const listStrategiesByUser = `SELECT id, user_id, name, note FROM strategies
WHERE user_id = ? ORDER BY created_at, rowid`

func (q *Queries) ListStrategiesByUser(ctx context.Context, userID string) ([]StrategyRow, error) {
	rows, err := q.db.QueryContext(ctx, listStrategiesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StrategyRow
	for rows.Next() {
		var i StrategyRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Note); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOwners = `SELECT DISTINCT user_id FROM strategies ORDER BY user_id`

func (q *Queries) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listOwners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		items = append(items, owner)
	}
	return items, rows.Err()
}

const updateStrategyNote = `UPDATE strategies SET note = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`

func (q *Queries) UpdateStrategyNote(ctx context.Context, id, note string) error {
	_, err := q.db.ExecContext(ctx, updateStrategyNote, note, id)
	return err
}

const deleteStrategy = `DELETE FROM strategies WHERE id = ?`

func (q *Queries) DeleteStrategy(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteStrategy, id)
	return err
}

const deleteMonthsByStrategy = `DELETE FROM months WHERE strategy_id = ?`

func (q *Queries) DeleteMonthsByStrategy(ctx context.Context, strategyID string) error {
	_, err := q.db.ExecContext(ctx, deleteMonthsByStrategy, strategyID)
	return err
}

const deleteTradesByStrategy = `DELETE FROM trades WHERE month_id IN (SELECT id FROM months WHERE strategy_id = ?)`

func (q *Queries) DeleteTradesByStrategy(ctx context.Context, strategyID string) error {
	_, err := q.db.ExecContext(ctx, deleteTradesByStrategy, strategyID)
	return err
}

const strategyOwner = `SELECT user_id FROM strategies WHERE id = ?`

func (q *Queries) StrategyOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := q.db.QueryRowContext(ctx, strategyOwner, id).Scan(&owner)
	return owner, err
}

const insertMonth = `INSERT INTO months (id, strategy_id, name) VALUES (?, ?, ?)`

func (q *Queries) InsertMonth(ctx context.Context, id, strategyID, name string) error {
	_, err := q.db.ExecContext(ctx, insertMonth, id, strategyID, name)
	return err
}

const getMonth = `SELECT id, strategy_id, name, note FROM months WHERE id = ?`

func (q *Queries) GetMonth(ctx context.Context, id string) (MonthRow, error) {
	var i MonthRow
	err := q.db.QueryRowContext(ctx, getMonth, id).Scan(&i.ID, &i.StrategyID, &i.Name, &i.Note)
	return i, err
}

const listMonthsByUser = `SELECT m.id, m.strategy_id, m.name, m.note FROM months m
JOIN strategies s ON s.id = m.strategy_id
WHERE s.user_id = ? ORDER BY m.created_at, m.rowid`

func (q *Queries) ListMonthsByUser(ctx context.Context, userID string) ([]MonthRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MonthRow
	for rows.Next() {
		var i MonthRow
		if err := rows.Scan(&i.ID, &i.StrategyID, &i.Name, &i.Note); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateMonthNote = `UPDATE months SET note = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`

func (q *Queries) UpdateMonthNote(ctx context.Context, id, note string) error {
	_, err := q.db.ExecContext(ctx, updateMonthNote, note, id)
	return err
}

const deleteMonth = `DELETE FROM months WHERE id = ?`

func (q *Queries) DeleteMonth(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteMonth, id)
	return err
}

const deleteTradesByMonth = `DELETE FROM trades WHERE month_id = ?`

func (q *Queries) DeleteTradesByMonth(ctx context.Context, monthID string) error {
	_, err := q.db.ExecContext(ctx, deleteTradesByMonth, monthID)
	return err
}

const monthOwner = `SELECT s.user_id FROM months m JOIN strategies s ON s.id = m.strategy_id WHERE m.id = ?`

func (q *Queries) MonthOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := q.db.QueryRowContext(ctx, monthOwner, id).Scan(&owner)
	return owner, err
}

const insertTrade = `INSERT INTO trades
(id, month_id, date, pair, direction, rr, result, pnl_dollar, pnl_percent, max_rr, screenshot)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTrade(ctx context.Context, r TradeRow) error {
	_, err := q.db.ExecContext(ctx, insertTrade,
		r.ID, r.MonthID, r.Date, r.Pair, r.Direction, r.RR, r.Result,
		r.PnLDollar, r.PnLPercent, r.MaxRR, r.Screenshot)
	return err
}

const tradeColumns = `t.id, t.month_id, t.date, t.pair, t.direction, t.rr, t.result,
t.pnl_dollar, t.pnl_percent, t.max_rr, t.screenshot`

const listTradesByUser = `SELECT ` + tradeColumns + ` FROM trades t
JOIN months m ON m.id = t.month_id
JOIN strategies s ON s.id = m.strategy_id
WHERE s.user_id = ? ORDER BY t.created_at, t.rowid`

func (q *Queries) ListTradesByUser(ctx context.Context, userID string) ([]TradeRow, error) {
	return q.listTrades(ctx, listTradesByUser, userID)
}

const listTradesByMonth = `SELECT ` + tradeColumns + ` FROM trades t
WHERE t.month_id = ? ORDER BY t.created_at, t.rowid`

func (q *Queries) ListTradesByMonth(ctx context.Context, monthID string) ([]TradeRow, error) {
	return q.listTrades(ctx, listTradesByMonth, monthID)
}

func (q *Queries) listTrades(ctx context.Context, query string, arg string) ([]TradeRow, error) {
	rows, err := q.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TradeRow
	for rows.Next() {
		var i TradeRow
		if err := rows.Scan(&i.ID, &i.MonthID, &i.Date, &i.Pair, &i.Direction, &i.RR, &i.Result,
			&i.PnLDollar, &i.PnLPercent, &i.MaxRR, &i.Screenshot); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const tradeOwner = `SELECT s.user_id FROM trades t
JOIN months m ON m.id = t.month_id
JOIN strategies s ON s.id = m.strategy_id WHERE t.id = ?`

func (q *Queries) TradeOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := q.db.QueryRowContext(ctx, tradeOwner, id).Scan(&owner)
	return owner, err
}

const deleteTrade = `DELETE FROM trades WHERE id = ?`

func (q *Queries) DeleteTrade(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteTrade, id)
	return err
}

// UpdateTradeColumns writes only the columns present in patch.
func (q *Queries) UpdateTradeColumns(ctx context.Context, id string, patch core.TradePatch) error {
	sets, args := tradePatchColumns(patch)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE trades SET %s WHERE id = ?", strings.Join(sets, ", "))
	_, err := q.db.ExecContext(ctx, query, args...)
	return err
}

// tradePatchColumns translates a patch into snake_case assignments.
func tradePatchColumns(p core.TradePatch) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Date != nil {
		add("date", *p.Date)
	}
	if p.Pair != nil {
		add("pair", *p.Pair)
	}
	if p.Direction != nil {
		add("direction", string(*p.Direction))
	}
	if p.RR != nil {
		add("rr", *p.RR)
	}
	if p.Result != nil {
		add("result", string(*p.Result))
	}
	if p.PnLDollar != nil {
		add("pnl_dollar", p.PnLDollar.String())
	}
	if p.PnLPercent != nil {
		add("pnl_percent", *p.PnLPercent)
	}
	if p.MaxRR != nil {
		add("max_rr", nullableRR(*p.MaxRR))
	}
	if p.Screenshot != nil {
		add("screenshot", nullableString(*p.Screenshot))
	}
	return sets, args
}

func nullableRR(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func nullableString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
