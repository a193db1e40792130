package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	MinConcurrent = 1
	MaxConcurrent = 5

	QualityHighest = "highest"
	QualityAudio   = "audio"
)

var KnownQualities = []string{QualityHighest, "2160p", "1440p", "1080p", "720p", "480p", "360p", QualityAudio}

type Settings struct {
	DownloadFolder      string          `mapstructure:"download_folder" yaml:"download_folder"`
	ConcurrentDownloads int             `mapstructure:"concurrent_downloads" yaml:"concurrent_downloads"`
	DefaultQuality      string          `mapstructure:"default_quality" yaml:"default_quality"`
	AutoSubtitles       bool            `mapstructure:"auto_subtitles" yaml:"auto_subtitles"`
	SubtitleLanguage    string          `mapstructure:"subtitle_language" yaml:"subtitle_language"`
	Theme               string          `mapstructure:"theme" yaml:"theme"`
	HistoryPath         string          `mapstructure:"history_path" yaml:"history_path"`
	Network             NetworkSettings `mapstructure:"network" yaml:"network"`
	Archive             ArchiveSettings `mapstructure:"archive" yaml:"archive"`
}

type NetworkSettings struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout" yaml:"metadata_timeout"`
	StallTimeout    time.Duration `mapstructure:"stall_timeout" yaml:"stall_timeout"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	Proxy           string        `mapstructure:"proxy" yaml:"proxy"`
}

// ArchiveSettings enables uploading finished downloads to S3 when Bucket is set.
type ArchiveSettings struct {
	Bucket  string `mapstructure:"bucket" yaml:"bucket"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
	Profile string `mapstructure:"profile" yaml:"profile"`
	Region  string `mapstructure:"region" yaml:"region"`
}

func (a ArchiveSettings) Enabled() bool { return a.Bucket != "" }

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// DefaultPath is <user config dir>/tubeq/settings.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tubeq", "settings.yaml")
}

// Load reads the settings file layered over defaults and TUBEQ_* environment
// variables. A missing file is not an error.
func (s *Store) Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TUBEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, filepath.Dir(s.path))

	if _, err := os.Stat(s.path); err == nil {
		v.SetConfigFile(s.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat settings: %w", err)
	} else {
		log.Debug().Str("op", "config/settings").Msgf("no settings file at %s, using defaults", s.path)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	settings.Normalize()
	return &settings, nil
}

// Save writes the settings atomically through a temp file rename.
func (s *Store) Save(settings *Settings) error {
	settings.Normalize()
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize settings: %w", err)
	}
	log.Debug().Str("op", "config/settings").Msgf("settings saved to %s", s.path)
	return nil
}

func setDefaults(v *viper.Viper, configDir string) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("download_folder", filepath.Join(home, "Downloads"))
	v.SetDefault("concurrent_downloads", 2)
	v.SetDefault("default_quality", QualityHighest)
	v.SetDefault("auto_subtitles", false)
	v.SetDefault("subtitle_language", "en")
	v.SetDefault("theme", "dark")
	v.SetDefault("history_path", filepath.Join(configDir, "history.db"))

	v.SetDefault("network.connect_timeout", "30s")
	v.SetDefault("network.metadata_timeout", "45s")
	v.SetDefault("network.stall_timeout", "60s")
	v.SetDefault("network.user_agent", "")
	v.SetDefault("network.proxy", "")

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "tubeq/")
	v.SetDefault("archive.profile", "default")
	v.SetDefault("archive.region", "")
}

// Normalize clamps and repairs values that may come from hand-edited files.
func (s *Settings) Normalize() {
	s.ConcurrentDownloads = ClampConcurrency(s.ConcurrentDownloads)
	if !isKnownQuality(s.DefaultQuality) {
		s.DefaultQuality = QualityHighest
	}
	if s.Theme != "light" {
		s.Theme = "dark"
	}
	if s.SubtitleLanguage == "" {
		s.SubtitleLanguage = "en"
	}
	if s.DownloadFolder == "" {
		s.DownloadFolder = "."
	}
}

func ClampConcurrency(n int) int {
	return max(MinConcurrent, min(n, MaxConcurrent))
}

func isKnownQuality(q string) bool {
	for _, k := range KnownQualities {
		if k == q {
			return true
		}
	}
	return false
}

// Set updates a single setting addressed by its YAML key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "download_folder":
		abs, err := filepath.Abs(value)
		if err != nil {
			return fmt.Errorf("invalid folder %q: %w", value, err)
		}
		s.DownloadFolder = abs
	case "concurrent_downloads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", value, err)
		}
		s.ConcurrentDownloads = ClampConcurrency(n)
	case "default_quality":
		if !isKnownQuality(value) {
			return fmt.Errorf("unknown quality %q (one of %s)", value, strings.Join(KnownQualities, ", "))
		}
		s.DefaultQuality = value
	case "auto_subtitles":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", value, err)
		}
		s.AutoSubtitles = b
	case "subtitle_language":
		s.SubtitleLanguage = strings.TrimSpace(value)
	case "theme":
		if value != "dark" && value != "light" {
			return fmt.Errorf("unknown theme %q (dark or light)", value)
		}
		s.Theme = value
	case "history_path":
		s.HistoryPath = value
	case "network.connect_timeout", "network.metadata_timeout", "network.stall_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		switch key {
		case "network.connect_timeout":
			s.Network.ConnectTimeout = d
		case "network.metadata_timeout":
			s.Network.MetadataTimeout = d
		default:
			s.Network.StallTimeout = d
		}
	case "network.user_agent":
		s.Network.UserAgent = value
	case "network.proxy":
		s.Network.Proxy = value
	case "archive.bucket":
		s.Archive.Bucket = value
	case "archive.prefix":
		s.Archive.Prefix = value
	case "archive.profile":
		s.Archive.Profile = value
	case "archive.region":
		s.Archive.Region = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
