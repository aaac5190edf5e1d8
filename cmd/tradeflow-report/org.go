package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradeflow/internal/report"
)

func newOrgCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "org <owner-id>",
		Short: "Print an owner's journal as org-mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			tree, err := repo.FetchAll(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch journal: %w", err)
			}
			if len(tree) == 0 {
				return fmt.Errorf("no journal stored for owner %s", args[0])
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.FormatJournalOrg(tree))
			return err
		},
	}
}
