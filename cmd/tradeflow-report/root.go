package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradeflow/internal/cli"
	"tradeflow/internal/config"
	"tradeflow/internal/core"
	"tradeflow/internal/storage"
)

type rootOptions struct {
	dbPath string
}

func newRootCmd() *cobra.Command {
	cli.LoadEnvFile()
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tradeflow-report",
		Short: "Inspect stored trading journals",
		Long: `tradeflow-report reads the sqlite journal store directly.

Subcommands:
  stats    - Win rate, net P&L and equity curve of one month
  org      - An owner's whole journal as an org-mode outline
  migrate  - Apply pending schema migrations

Examples:
  tradeflow-report stats <strategy-id> <month-id>
  tradeflow-report org <owner-id> > journal.org
  tradeflow-report migrate --db ./data/tradeflow.db`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", config.Load().SQLiteDBPath, "path to the SQLite journal database")

	cmd.AddCommand(
		newStatsCmd(opts),
		newOrgCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

func (o *rootOptions) open() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return repo, nil
}

func findMonth(tree []core.Strategy, strategyID, monthID string) (core.Strategy, core.Month, bool) {
	for _, st := range tree {
		if st.ID != strategyID {
			continue
		}
		for _, m := range st.Months {
			if m.ID == monthID {
				return st, m, true
			}
		}
	}
	return core.Strategy{}, core.Month{}, false
}
