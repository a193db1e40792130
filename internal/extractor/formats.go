package extractor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/tanq16/tubeq/internal/types"
)

func convertVideo(video *youtube.Video) *types.VideoInfo {
	info := &types.VideoInfo{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
	}
	var bestWidth uint
	for _, thumb := range video.Thumbnails {
		if thumb.Width >= bestWidth {
			bestWidth = thumb.Width
			info.ThumbnailURL = thumb.URL
		}
	}
	for i := range video.Formats {
		stream := convertFormat(&video.Formats[i])
		if stream.Kind == types.AudioOnly {
			info.AudioStreams = append(info.AudioStreams, stream)
		} else {
			info.Streams = append(info.Streams, stream)
		}
	}
	sort.SliceStable(info.Streams, func(i, j int) bool {
		a, b := info.Streams[i], info.Streams[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.Kind != b.Kind {
			return a.Kind == types.Progressive
		}
		return a.Bitrate > b.Bitrate
	})
	sort.SliceStable(info.AudioStreams, func(i, j int) bool {
		return info.AudioStreams[i].Bitrate > info.AudioStreams[j].Bitrate
	})
	for _, track := range video.CaptionTracks {
		info.Captions = append(info.Captions, types.CaptionInfo{
			ID:            captionTrackID(track),
			LanguageCode:  track.LanguageCode,
			Name:          track.Name.SimpleText,
			AutoGenerated: track.Kind == "asr",
		})
	}
	return info
}

func convertFormat(f *youtube.Format) types.StreamInfo {
	mime := strings.ToLower(f.MimeType)
	bitrate := f.AverageBitrate
	if bitrate <= 0 {
		bitrate = f.Bitrate
	}
	stream := types.StreamInfo{
		ID:        strconv.Itoa(f.ItagNo),
		Itag:      f.ItagNo,
		MimeType:  f.MimeType,
		Container: containerFor(mime),
		Size:      f.ContentLength,
		Bitrate:   bitrate,
		FPS:       f.FPS,
		Height:    f.Height,
	}
	if stream.Size <= 0 {
		stream.Size = -1
	}
	switch {
	case strings.HasPrefix(mime, "audio/"):
		stream.Kind = types.AudioOnly
		if bitrate > 0 {
			stream.AudioBitrate = fmt.Sprintf("%dkbps", (bitrate+500)/1000)
		}
	case f.AudioChannels > 0:
		stream.Kind = types.Progressive
	default:
		stream.Kind = types.VideoOnly
	}
	if stream.Kind != types.AudioOnly {
		stream.Resolution = f.QualityLabel
		if stream.Resolution == "" && f.Height > 0 {
			stream.Resolution = fmt.Sprintf("%dp", f.Height)
		}
	}
	return stream
}

func containerFor(mime string) string {
	base := mime
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	switch strings.TrimSpace(base) {
	case "video/mp4":
		return "mp4"
	case "audio/mp4":
		return "m4a"
	case "video/webm", "audio/webm":
		return "webm"
	case "video/3gpp":
		return "3gp"
	default:
		if i := strings.IndexByte(base, '/'); i >= 0 {
			return strings.TrimSpace(base[i+1:])
		}
		return "bin"
	}
}

func findFormat(video *youtube.Video, streamID string) *youtube.Format {
	for i := range video.Formats {
		if strconv.Itoa(video.Formats[i].ItagNo) == streamID {
			return &video.Formats[i]
		}
	}
	return nil
}

func captionTrackID(track youtube.CaptionTrack) string {
	if track.Kind == "asr" {
		return "a." + track.LanguageCode
	}
	return track.LanguageCode
}
