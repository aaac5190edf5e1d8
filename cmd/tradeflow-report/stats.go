package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tradeflow/internal/journal"
	"tradeflow/internal/report"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <strategy-id> <month-id>",
		Short: "Print the stats table of one month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			owner, err := repo.StrategyOwner(ctx, args[0])
			if errors.Is(err, journal.ErrNotFound) {
				return fmt.Errorf("strategy %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("look up strategy: %w", err)
			}
			tree, err := repo.FetchAll(ctx, owner)
			if err != nil {
				return fmt.Errorf("fetch journal: %w", err)
			}
			st, m, ok := findMonth(tree, args[0], args[1])
			if !ok {
				return fmt.Errorf("month %s not found in strategy %s", args[1], args[0])
			}
			return report.WriteStats(cmd.OutOrStdout(), st, m)
		},
	}
}
