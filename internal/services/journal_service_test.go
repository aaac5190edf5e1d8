package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
	"tradeflow/internal/journal"
	"tradeflow/internal/journal/memory"
)

type published struct{ owner, op string }

type recordingPublisher struct {
	got    []published
	err    error
	closed bool
}

func (p *recordingPublisher) PublishJournalChanged(_ context.Context, ownerID, operation string) error {
	p.got = append(p.got, published{ownerID, operation})
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

// ownedMemory tracks owners alongside the in-memory store.
type ownedMemory struct {
	*memory.Store
	owners   map[string]string
	closeErr error
}

func newOwnedMemory() *ownedMemory {
	return &ownedMemory{Store: memory.New(), owners: map[string]string{}}
}

func (o *ownedMemory) owner(id string) (string, error) {
	if u, ok := o.owners[id]; ok {
		return u, nil
	}
	return "", journal.ErrNotFound
}

func (o *ownedMemory) StrategyOwner(_ context.Context, id string) (string, error) { return o.owner(id) }
func (o *ownedMemory) MonthOwner(_ context.Context, id string) (string, error)    { return o.owner(id) }
func (o *ownedMemory) TradeOwner(_ context.Context, id string) (string, error)    { return o.owner(id) }
func (o *ownedMemory) Close() error                                               { return o.closeErr }

func TestJournalService_AnnouncesConfirmedWrites(t *testing.T) {
	ctx := context.Background()
	repo := newOwnedMemory()
	pub := &recordingPublisher{}
	svc := NewJournalService(repo, pub)

	st, err := svc.CreateStrategy(ctx, "u1", "Breakout")
	require.NoError(t, err)
	repo.owners[st.ID] = "u1"

	m, err := svc.CreateMonth(ctx, st.ID, "January 2025")
	require.NoError(t, err)
	repo.owners[m.ID] = "u1"

	tr, err := svc.CreateTrade(ctx, m.ID, core.NewTrade(nil))
	require.NoError(t, err)
	repo.owners[tr.ID] = "u1"

	pair := "GBPUSD"
	require.NoError(t, svc.UpdateTrade(ctx, tr.ID, core.TradePatch{Pair: &pair}))
	require.NoError(t, svc.DeleteStrategy(ctx, st.ID))

	assert.Equal(t, []published{
		{"u1", "create"},
		{"u1", "create"},
		{"u1", "create"},
		{"u1", "update"},
		{"u1", "delete"},
	}, pub.got)

	tree, err := svc.FetchAll(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestJournalService_MissingRows(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewJournalService(newOwnedMemory(), pub)

	_, err := svc.CreateMonth(ctx, "nope", "x")
	assert.ErrorIs(t, err, journal.ErrNotFound)
	assert.NoError(t, svc.DeleteTrade(ctx, "nope"))
	assert.NoError(t, svc.UpdateMonthNote(ctx, "nope", "n"))
	assert.Empty(t, pub.got)
}

func TestJournalService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewJournalService(newOwnedMemory(), pub)

	_, err := svc.CreateStrategy(context.Background(), "u1", "S")
	assert.NoError(t, err)
	assert.Len(t, pub.got, 1)
}

func TestJournalService_Close(t *testing.T) {
	t.Run("no publisher", func(t *testing.T) {
		svc := NewJournalService(newOwnedMemory(), nil)
		_, err := svc.CreateStrategy(context.Background(), "u1", "S")
		assert.NoError(t, err)
		assert.NoError(t, svc.Close())
		assert.NoError(t, svc.Ping(context.Background()))
	})

	t.Run("aggregates errors", func(t *testing.T) {
		repo := newOwnedMemory()
		repo.closeErr = errors.New("locked")
		pub := &recordingPublisher{}
		err := NewJournalService(repo, pub).Close()
		assert.ErrorContains(t, err, "storage: locked")
		assert.True(t, pub.closed)
	})
}
