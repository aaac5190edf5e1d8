package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tradeflow/internal/amqp"
	"tradeflow/internal/journal"
	"tradeflow/internal/sheets"
)

// OwnerLister enumerates every user with a stored journal.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

type Source interface {
	journal.TreeReader
	OwnerLister
}

type Config struct {
	// ResyncInterval is how often every owner is mirrored again (default: 1h)
	ResyncInterval time.Duration
}

func DefaultConfig() Config {
	return Config{ResyncInterval: time.Hour}
}

// MirrorWorker copies journals into the sheet mirror: per owner on each
// change notice, and for every owner on a timer to repair lost notices.
type MirrorWorker struct {
	source Source
	mirror sheets.JournalMirror
	config Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorWorker(source Source, mirror sheets.JournalMirror, config Config) *MirrorWorker {
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = DefaultConfig().ResyncInterval
	}
	return &MirrorWorker{source: source, mirror: mirror, config: config}
}

// HandleJournalChanged mirrors the owner named in msg.
func (w *MirrorWorker) HandleJournalChanged(ctx context.Context, msg *amqp.JournalChangedMessage) error {
	slog.InfoContext(ctx, "Processing journal change",
		"owner_id", msg.OwnerID,
		"operation", msg.Operation)
	return w.MirrorOwner(ctx, msg.OwnerID)
}

func (w *MirrorWorker) MirrorOwner(ctx context.Context, ownerID string) error {
	tree, err := w.source.FetchAll(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("fetch journal: %w", err)
	}
	if err := w.mirror.WriteJournal(ctx, ownerID, tree); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}

// ResyncAll mirrors every owner, continuing past individual failures.
func (w *MirrorWorker) ResyncAll(ctx context.Context) error {
	owners, err := w.source.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	var errs []error
	for _, owner := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.MirrorOwner(ctx, owner); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror journal", "owner_id", owner, "error", err)
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
		}
	}

	slog.InfoContext(ctx, "Resync completed", "owners", len(owners), "failed", len(errs))
	return errors.Join(errs...)
}

// Start runs ResyncAll now and then on every interval. Returns an error if
// already running.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("mirror worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror worker started", "resync_interval", w.config.ResyncInterval)
	return nil
}

// Stop ends the loop and waits for the current pass to finish.
func (w *MirrorWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Mirror worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror worker stop timed out")
		return ctx.Err()
	}
}

func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *MirrorWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.ResyncInterval)
	defer ticker.Stop()

	w.resync(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.resync(ctx)
		}
	}
}

func (w *MirrorWorker) resync(ctx context.Context) {
	if err := w.ResyncAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "Resync finished with errors", "error", err)
	}
}
