package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/tubeq/internal/output"
	"github.com/tanq16/tubeq/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove leftover temporary files from a download folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := settings.DownloadFolder
			if len(args) > 0 {
				dir = args[0]
			}
			if err := utils.CleanLocal(dir); err != nil {
				return fmt.Errorf("error cleaning up temporary files: %w", err)
			}
			output.PrintSuccess("Temporary files cleaned up in " + utils.TempDir(dir))
			return nil
		},
	}
}
