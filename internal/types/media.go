package types

import (
	"fmt"
	"strings"
	"time"
)

type StreamKind int

const (
	Progressive StreamKind = iota
	VideoOnly
	AudioOnly
)

func (k StreamKind) String() string {
	switch k {
	case Progressive:
		return "progressive"
	case VideoOnly:
		return "video-only"
	case AudioOnly:
		return "audio-only"
	default:
		return "unknown"
	}
}

// StreamInfo describes one downloadable encoding of a video.
// Size is -1 when the source does not advertise a content length.
type StreamInfo struct {
	ID           string
	Itag         int
	Resolution   string
	MimeType     string
	Container    string
	Size         int64
	Kind         StreamKind
	AudioBitrate string
	Bitrate      int
	FPS          int
	Height       int
}

func (s StreamInfo) IsProgressive() bool { return s.Kind == Progressive }
func (s StreamInfo) IsAudioOnly() bool   { return s.Kind == AudioOnly }
func (s StreamInfo) HasVideo() bool      { return s.Kind != AudioOnly }
func (s StreamInfo) SizeKnown() bool     { return s.Size > 0 }

// QualityLabel is the suffix used in output filenames (720p, 128kbps).
func (s StreamInfo) QualityLabel() string {
	if s.Kind == AudioOnly {
		if s.AudioBitrate != "" {
			return s.AudioBitrate
		}
		return "audio"
	}
	if s.Resolution != "" {
		return s.Resolution
	}
	return fmt.Sprintf("itag%d", s.Itag)
}

func (s StreamInfo) DisplayName() string {
	parts := []string{s.QualityLabel(), s.Container, s.Kind.String()}
	if s.Kind == Progressive && s.AudioBitrate != "" {
		parts = append(parts, s.AudioBitrate)
	}
	return strings.Join(parts, " ")
}

type CaptionInfo struct {
	ID            string
	LanguageCode  string
	Name          string
	AutoGenerated bool
}

type VideoInfo struct {
	ID           string
	URL          string
	Title        string
	Author       string
	Duration     time.Duration
	ThumbnailURL string
	Thumbnail    []byte
	Streams      []StreamInfo
	AudioStreams []StreamInfo
	Captions     []CaptionInfo
}

func (v *VideoInfo) HasStreams() bool {
	return len(v.Streams)+len(v.AudioStreams) > 0
}

func (v *VideoInfo) StreamByID(id string) (StreamInfo, bool) {
	for _, s := range v.Streams {
		if s.ID == id {
			return s, true
		}
	}
	for _, s := range v.AudioStreams {
		if s.ID == id {
			return s, true
		}
	}
	return StreamInfo{}, false
}

// BestAudio returns the highest bitrate audio-only stream, preferring one
// whose container matches preferContainer so the merge can stream-copy.
func (v *VideoInfo) BestAudio(preferContainer string) (StreamInfo, bool) {
	if len(v.AudioStreams) == 0 {
		return StreamInfo{}, false
	}
	best := -1
	for i, s := range v.AudioStreams {
		if preferContainer != "" && s.Container != preferContainer {
			continue
		}
		if best < 0 || s.Bitrate > v.AudioStreams[best].Bitrate {
			best = i
		}
	}
	if best >= 0 {
		return v.AudioStreams[best], true
	}
	best = 0
	for i, s := range v.AudioStreams {
		if s.Bitrate > v.AudioStreams[best].Bitrate {
			best = i
		}
	}
	return v.AudioStreams[best], true
}

// CaptionFor matches an exact language code first, then a prefix match
// (en matches en-US), and falls back to the first available track.
func (v *VideoInfo) CaptionFor(lang string) (CaptionInfo, bool) {
	if len(v.Captions) == 0 {
		return CaptionInfo{}, false
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != "" {
		for _, c := range v.Captions {
			if strings.ToLower(c.LanguageCode) == lang {
				return c, true
			}
		}
		for _, c := range v.Captions {
			if strings.HasPrefix(strings.ToLower(c.LanguageCode), lang) {
				return c, true
			}
		}
	}
	return v.Captions[0], true
}

func (v *VideoInfo) DurationString() string {
	total := int(v.Duration.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
