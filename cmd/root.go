package cmd

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/tubeq/internal/config"
	"github.com/tanq16/tubeq/internal/output"
	"github.com/tanq16/tubeq/internal/utils"
)

var (
	configPath string
	debug      bool
	workers    int
	outputDir  string

	settingsStore *config.Store
	settings      *config.Settings
)

var TubeqVersion = "dev"

var rootCmd = &cobra.Command{
	Use:           "tubeq",
	Short:         "tubeq is a queue-based YouTube video and playlist downloader",
	Version:       TubeqVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.InitLogger(debug)
		if configPath == "" {
			configPath = config.DefaultPath()
		}
		settingsStore = config.NewStore(configPath)
		loaded, err := settingsStore.Load()
		if err != nil {
			return err
		}
		settings = loaded
		if cmd.Flags().Changed("workers") {
			settings.ConcurrentDownloads = config.ClampConcurrency(workers)
		}
		if outputDir != "" {
			settings.DownloadFolder = outputDir
		}
		output.SetTheme(settings.Theme)
		log.Debug().Str("op", "cmd/root").Msgf("settings loaded from %s", configPath)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default <user config dir>/tubeq/settings.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Number of videos to download in parallel (1-5)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Download folder (overrides the download_folder setting)")

	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// signalContext is cancelled on the first interrupt so running downloads
// can clean up their partial files.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// httpConfig builds the client settings, moving credentials embedded in the
// proxy URL into their own fields.
func httpConfig(s *config.Settings) utils.HTTPClientConfig {
	cfg := utils.HTTPClientConfig{
		DialTimeout: s.Network.ConnectTimeout,
		UserAgent:   s.Network.UserAgent,
		ProxyURL:    s.Network.Proxy,
	}
	if parsed, err := url.Parse(s.Network.Proxy); err == nil && parsed.User != nil {
		cfg.ProxyUsername = parsed.User.Username()
		if password, set := parsed.User.Password(); set {
			cfg.ProxyPassword = password
		}
		parsed.User = nil
		cfg.ProxyURL = parsed.String()
	}
	return cfg
}
