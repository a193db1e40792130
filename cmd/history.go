package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/tubeq/internal/history"
	"github.com/tanq16/tubeq/internal/output"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(settings.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			output.PrintHistory(os.Stdout, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	return cmd
}
