package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"tradeflow/internal/amqp"
	"tradeflow/internal/core"
	"tradeflow/internal/journal"
	"tradeflow/internal/log"
)

// OwnerResolver finds the user a journal row belongs to.
type OwnerResolver interface {
	StrategyOwner(ctx context.Context, id string) (string, error)
	MonthOwner(ctx context.Context, id string) (string, error)
	TradeOwner(ctx context.Context, id string) (string, error)
}

// Repository is a journal store that can resolve owners, such as
// storage.SQLiteRepository.
type Repository interface {
	journal.Store
	OwnerResolver
	io.Closer
}

// JournalService writes through to the repository and announces each
// confirmed change so the sheet mirror can catch up. Announcing is best
// effort: a failed publish never fails the write.
type JournalService struct {
	repo      Repository
	publisher amqp.Publisher
}

var _ journal.Store = (*JournalService)(nil)

// NewJournalService wraps repo. A nil publisher disables announcements.
func NewJournalService(repo Repository, publisher amqp.Publisher) *JournalService {
	return &JournalService{repo: repo, publisher: publisher}
}

func (s *JournalService) FetchAll(ctx context.Context, ownerID string) ([]core.Strategy, error) {
	return s.repo.FetchAll(ctx, ownerID)
}

func (s *JournalService) CreateStrategy(ctx context.Context, ownerID, name string) (core.Strategy, error) {
	st, err := s.repo.CreateStrategy(ctx, ownerID, name)
	if err != nil {
		return core.Strategy{}, err
	}
	s.announce(ctx, ownerID, log.OpCreate)
	return st, nil
}

func (s *JournalService) DeleteStrategy(ctx context.Context, id string) error {
	return s.withOwner(ctx, s.repo.StrategyOwner, id, log.OpDelete, func() error {
		return s.repo.DeleteStrategy(ctx, id)
	})
}

func (s *JournalService) UpdateStrategyNote(ctx context.Context, id, note string) error {
	return s.withOwner(ctx, s.repo.StrategyOwner, id, log.OpUpdate, func() error {
		return s.repo.UpdateStrategyNote(ctx, id, note)
	})
}

func (s *JournalService) CreateMonth(ctx context.Context, strategyID, name string) (core.Month, error) {
	var m core.Month
	err := s.withOwner(ctx, s.repo.StrategyOwner, strategyID, log.OpCreate, func() error {
		var err error
		m, err = s.repo.CreateMonth(ctx, strategyID, name)
		return err
	})
	return m, err
}

func (s *JournalService) DeleteMonth(ctx context.Context, id string) error {
	return s.withOwner(ctx, s.repo.MonthOwner, id, log.OpDelete, func() error {
		return s.repo.DeleteMonth(ctx, id)
	})
}

func (s *JournalService) UpdateMonthNote(ctx context.Context, id, note string) error {
	return s.withOwner(ctx, s.repo.MonthOwner, id, log.OpUpdate, func() error {
		return s.repo.UpdateMonthNote(ctx, id, note)
	})
}

func (s *JournalService) CreateTrade(ctx context.Context, monthID string, t core.Trade) (core.Trade, error) {
	var created core.Trade
	err := s.withOwner(ctx, s.repo.MonthOwner, monthID, log.OpCreate, func() error {
		var err error
		created, err = s.repo.CreateTrade(ctx, monthID, t)
		return err
	})
	return created, err
}

func (s *JournalService) UpdateTrade(ctx context.Context, id string, patch core.TradePatch) error {
	return s.withOwner(ctx, s.repo.TradeOwner, id, log.OpUpdate, func() error {
		return s.repo.UpdateTrade(ctx, id, patch)
	})
}

func (s *JournalService) DeleteTrade(ctx context.Context, id string) error {
	return s.withOwner(ctx, s.repo.TradeOwner, id, log.OpDelete, func() error {
		return s.repo.DeleteTrade(ctx, id)
	})
}

// withOwner resolves the owner before running write, since deletes leave
// nothing to resolve afterwards. Missing rows are reported as
// journal.ErrNotFound for creates and ignored otherwise.
func (s *JournalService) withOwner(ctx context.Context, resolve func(context.Context, string) (string, error), id, op string, write func() error) error {
	owner, err := resolve(ctx, id)
	if errors.Is(err, journal.ErrNotFound) {
		if op == log.OpCreate {
			return err
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	if err := write(); err != nil {
		return err
	}
	s.announce(ctx, owner, op)
	return nil
}

func (s *JournalService) announce(ctx context.Context, ownerID, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJournalChanged(ctx, ownerID, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish journal change",
			log.FieldOwnerID, ownerID, log.FieldOperation, op, log.FieldError, err)
	}
}

// Ping checks the repository when it supports it.
func (s *JournalService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the repository and the publisher.
func (s *JournalService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
