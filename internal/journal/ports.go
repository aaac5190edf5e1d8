// Package journal defines the store ports the application controller talks
// to. Implementations live in internal/storage (sqlite) and
// internal/journal/memory.
package journal

import (
	"context"
	"errors"

	"tradeflow/internal/core"
)

// ErrNotFound is returned by a store when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	TreeReader interface {
		// FetchAll returns every strategy owned by ownerID with months and
		// trades nested, each level in creation order.
		FetchAll(ctx context.Context, ownerID string) ([]core.Strategy, error)
	}

	StrategyStore interface {
		CreateStrategy(ctx context.Context, ownerID, name string) (core.Strategy, error)
		DeleteStrategy(ctx context.Context, id string) error
		UpdateStrategyNote(ctx context.Context, id, note string) error
	}

	MonthStore interface {
		CreateMonth(ctx context.Context, strategyID, name string) (core.Month, error)
		DeleteMonth(ctx context.Context, id string) error
		UpdateMonthNote(ctx context.Context, id, note string) error
	}

	TradeStore interface {
		// CreateTrade persists t under monthID and returns it with the
		// store-issued identifier.
		CreateTrade(ctx context.Context, monthID string, t core.Trade) (core.Trade, error)
		UpdateTrade(ctx context.Context, id string, patch core.TradePatch) error
		DeleteTrade(ctx context.Context, id string) error
	}

	// Store is everything the controller needs in backed mode.
	Store interface {
		TreeReader
		StrategyStore
		MonthStore
		TradeStore
	}
)
