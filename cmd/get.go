package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/tubeq/internal/extractor"
	"github.com/tanq16/tubeq/internal/fetcher"
	"github.com/tanq16/tubeq/internal/history"
	"github.com/tanq16/tubeq/internal/merge"
	"github.com/tanq16/tubeq/internal/output"
	"github.com/tanq16/tubeq/internal/scheduler"
	"github.com/tanq16/tubeq/internal/storage"
	"github.com/tanq16/tubeq/internal/utils"
)

type downloadFlags struct {
	quality   string
	audioOnly bool
	subtitles bool
	lang      string
	ffmpeg    string
	noHistory bool
	noArchive bool
}

func newGetCmd() *cobra.Command {
	var flags downloadFlags
	cmd := &cobra.Command{
		Use:     "get URL [URL...]",
		Short:   "Download YouTube videos or playlists",
		Aliases: []string{"yt", "dl"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return download(args, flags)
		},
	}
	addDownloadFlags(cmd, &flags)
	return cmd
}

func addDownloadFlags(cmd *cobra.Command, flags *downloadFlags) {
	cmd.Flags().StringVarP(&flags.quality, "quality", "q", "", "Quality: highest, 2160p, 1440p, 1080p, 720p, 480p, 360p or audio (default from settings)")
	cmd.Flags().BoolVarP(&flags.audioOnly, "audio", "a", false, "Download the best audio stream only")
	cmd.Flags().BoolVarP(&flags.subtitles, "subs", "s", false, "Also save subtitles as .srt")
	cmd.Flags().StringVar(&flags.lang, "lang", "", "Subtitle language code (default from settings)")
	cmd.Flags().StringVar(&flags.ffmpeg, "ffmpeg", "", "Path to the ffmpeg executable")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record downloads in the history database")
	cmd.Flags().BoolVar(&flags.noArchive, "no-archive", false, "Skip uploading finished files to the configured S3 archive")
}

func download(urls []string, flags downloadFlags) error {
	ctx, cancel := signalContext()
	defer cancel()

	quality := flags.quality
	if quality == "" {
		quality = settings.DefaultQuality
	}
	lang := flags.lang
	if lang == "" {
		lang = settings.SubtitleLanguage
	}

	client := utils.NewTubeHTTPClient(httpConfig(settings))
	src := extractor.NewYouTube(client)
	opts := scheduler.Options{
		URLs:         urls,
		Quality:      quality,
		AudioOnly:    flags.audioOnly,
		Subtitles:    flags.subtitles || settings.AutoSubtitles,
		SubtitleLang: lang,
		OutputDir:    settings.DownloadFolder,
		Workers:      settings.ConcurrentDownloads,
		StallTimeout: settings.Network.StallTimeout,
		Extractor:    src,
		Fetcher: fetcher.New(src, client, fetcher.Config{
			Parallelism:     settings.ConcurrentDownloads * 2,
			MetadataTimeout: settings.Network.MetadataTimeout,
		}),
		Merger:  merge.NewFFmpeg(flags.ffmpeg),
		Display: output.NewManager(os.Stdout),
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return err
	}

	if !flags.noHistory {
		store, err := history.Open(settings.HistoryPath)
		if err != nil {
			log.Warn().Str("op", "cmd/get").Err(err).Msg("history disabled")
		} else {
			defer store.Close()
			opts.History = store
		}
	}
	if settings.Archive.Enabled() && !flags.noArchive {
		archiver, err := newArchiver(ctx)
		if err != nil {
			log.Warn().Str("op", "cmd/get").Err(err).Msg("archive disabled")
		} else {
			opts.Archiver = archiver
		}
	}

	log.Debug().Str("op", "cmd/get").Msgf("starting session with %d urls", len(urls))
	summary, err := scheduler.Run(ctx, opts)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("encountered %d failed download(s)", summary.Failed)
	}
	return nil
}

func newArchiver(ctx context.Context) (*storage.S3Archiver, error) {
	a := settings.Archive
	return storage.NewS3Archiver(ctx, storage.ArchiveConfig{
		Bucket:  a.Bucket,
		Prefix:  a.Prefix,
		Profile: a.Profile,
		Region:  a.Region,
	})
}
