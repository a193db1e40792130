package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/tubeq/internal/extractor"
	"github.com/tanq16/tubeq/internal/fetcher"
	"github.com/tanq16/tubeq/internal/output"
	"github.com/tanq16/tubeq/internal/utils"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info URL",
		Short: "Show title, streams and captions of a video or playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			client := utils.NewTubeHTTPClient(httpConfig(settings))
			f := fetcher.New(extractor.NewYouTube(client), nil, fetcher.Config{
				Parallelism:     settings.ConcurrentDownloads * 2,
				MetadataTimeout: settings.Network.MetadataTimeout,
			})
			failed := 0
			for i, res := range f.FetchAll(ctx, args[0]) {
				if i > 0 {
					fmt.Println()
				}
				if res.Err != nil {
					failed++
					output.PrintError(fmt.Sprintf("%s: %v", res.URL, res.Err))
					continue
				}
				output.PrintVideoInfo(os.Stdout, res.Video)
			}
			if failed > 0 {
				return fmt.Errorf("%d video(s) could not be fetched", failed)
			}
			return nil
		},
	}
}
