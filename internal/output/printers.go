package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tanq16/tubeq/internal/config"
	"github.com/tanq16/tubeq/internal/history"
	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
)

func PrintVideoInfo(w io.Writer, v *types.VideoInfo) {
	fmt.Fprintln(w, FHeader(v.Title))
	fmt.Fprintf(w, "  %s %s\n", FDebug("author  "), v.Author)
	fmt.Fprintf(w, "  %s %s\n", FDebug("duration"), v.DurationString())
	fmt.Fprintf(w, "  %s %s\n", FDebug("url     "), v.URL)

	fmt.Fprintln(w)
	fmt.Fprintln(w, FInfo("  Streams"))
	for _, s := range v.Streams {
		line := fmt.Sprintf("    %-6s %-10s %-5s %-12s %s", s.ID, s.QualityLabel(), s.Container, s.Kind, utils.FormatBytes(s.Size))
		if s.FPS > 0 {
			line += fmt.Sprintf(" %dfps", s.FPS)
		}
		fmt.Fprintln(w, line)
	}
	if len(v.AudioStreams) > 0 {
		fmt.Fprintln(w, FInfo("  Audio"))
		for _, s := range v.AudioStreams {
			fmt.Fprintf(w, "    %-6s %-10s %-5s %s\n", s.ID, s.QualityLabel(), s.Container, utils.FormatBytes(s.Size))
		}
	}
	if len(v.Captions) > 0 {
		fmt.Fprintln(w, FInfo("  Captions"))
		for _, c := range v.Captions {
			label := c.Name
			if c.AutoGenerated {
				label += " (auto)"
			}
			fmt.Fprintf(w, "    %-8s %s\n", c.LanguageCode, label)
		}
	}
}

func PrintSettings(w io.Writer, s *config.Settings, path string) {
	fmt.Fprintln(w, FHeader("Settings")+" "+FDebug(path))
	rows := [][2]string{
		{"download_folder", s.DownloadFolder},
		{"concurrent_downloads", fmt.Sprint(s.ConcurrentDownloads)},
		{"default_quality", s.DefaultQuality},
		{"auto_subtitles", fmt.Sprint(s.AutoSubtitles)},
		{"subtitle_language", s.SubtitleLanguage},
		{"theme", s.Theme},
		{"history_path", s.HistoryPath},
		{"network.connect_timeout", s.Network.ConnectTimeout.String()},
		{"network.metadata_timeout", s.Network.MetadataTimeout.String()},
		{"network.stall_timeout", s.Network.StallTimeout.String()},
		{"network.user_agent", s.Network.UserAgent},
		{"network.proxy", s.Network.Proxy},
		{"archive.bucket", s.Archive.Bucket},
		{"archive.prefix", s.Archive.Prefix},
		{"archive.profile", s.Archive.Profile},
		{"archive.region", s.Archive.Region},
	}
	for _, r := range rows {
		value := r[1]
		if value == "" {
			value = FDebug("-")
		}
		fmt.Fprintf(w, "  %-26s %s\n", FDetail(r[0]), value)
	}
}

func PrintHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, FDebug("No downloads recorded yet"))
		return
	}
	for _, e := range entries {
		indicator := FSuccess(StyleSymbols["pass"])
		switch e.Status {
		case types.StatusFailed:
			indicator = FError(StyleSymbols["fail"])
		case types.StatusCancelled:
			indicator = FWarning(StyleSymbols["warning"])
		}
		fmt.Fprintf(w, "%s %s %s %s\n", indicator, FDebug(humanize.RelTime(e.FinishedAt, time.Now(), "ago", "from now")), e.Title, FDebug("["+e.Quality+"]"))
		var details []string
		if e.OutputPath != "" {
			details = append(details, e.OutputPath)
		}
		if e.Size > 0 {
			details = append(details, utils.FormatBytes(e.Size))
		}
		if e.ArchivedTo != "" {
			details = append(details, e.ArchivedTo)
		}
		if e.Error != "" {
			details = append(details, FError(e.Error))
		}
		if len(details) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(details, " "+StyleSymbols["dot"]+" "))
		}
	}
}
