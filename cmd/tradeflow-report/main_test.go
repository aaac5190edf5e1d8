package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
	"tradeflow/internal/storage"
)

func seed(t *testing.T) (dbPath, strategyID, monthID string) {
	t.Helper()
	dbPath = filepath.Join(t.TempDir(), "journal.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	st, err := repo.CreateStrategy(ctx, "owner-1", "Breakout")
	require.NoError(t, err)
	m, err := repo.CreateMonth(ctx, st.ID, "March 2025")
	require.NoError(t, err)
	_, err = repo.CreateTrade(ctx, m.ID, core.Trade{Date: "3", Pair: "EURUSD", Direction: core.Long,
		RR: 2, Result: core.Win, PnLDollar: decimal.NewFromInt(200), PnLPercent: 2})
	require.NoError(t, err)
	return dbPath, st.ID, m.ID
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	db, sid, mid := seed(t)

	out, err := run(t, "stats", sid, mid, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Breakout")
	assert.Contains(t, out, "100%")

	_, err = run(t, "stats", "missing", mid, "--db", db)
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "stats", sid, "missing", "--db", db)
	assert.ErrorContains(t, err, "not found")
}

func TestOrgCommand(t *testing.T) {
	db, _, _ := seed(t)

	out, err := run(t, "org", "owner-1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "* Breakout")
	assert.Contains(t, out, "*** Day 3: EURUSD Long (Win)")

	_, err = run(t, "org", "nobody", "--db", db)
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fresh.db")
	out, err := run(t, "migrate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "dirty=false")
}
