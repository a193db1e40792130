package downloader

import (
	"fmt"

	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
)

// audioContainerFor returns the audio container that can be stream-copied
// into the given video container.
func audioContainerFor(videoContainer string) string {
	switch videoContainer {
	case "mp4":
		return "m4a"
	case "webm":
		return "webm"
	default:
		return ""
	}
}

func outputExtension(t *types.DownloadTask) string {
	if !t.NeedsMerge() {
		return t.Stream.Container
	}
	if audioContainerFor(t.Stream.Container) == t.Audio.Container {
		return t.Stream.Container
	}
	return "mkv"
}

// outputName is <sanitized title>_<quality>.<ext>, e.g. My Video_720p.mp4.
func outputName(t *types.DownloadTask) string {
	return fmt.Sprintf("%s_%s.%s", utils.SanitizeFilename(t.Title()), t.Stream.QualityLabel(), outputExtension(t))
}
