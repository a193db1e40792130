package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tanq16/tubeq/internal/config"
	"github.com/tanq16/tubeq/internal/types"
)

// SelectStream picks the stream to download for a quality preference:
// "highest", "audio" or a resolution such as "720p". A resolution picks the
// best stream at or below it, or the smallest one when every stream is
// larger. At equal height a progressive stream beats a video-only one and
// mp4 beats other containers. Video-only streams are skipped when the video
// offers no audio to merge them with.
func SelectStream(video *types.VideoInfo, quality string) (types.StreamInfo, error) {
	quality = strings.ToLower(strings.TrimSpace(quality))
	if quality == config.QualityAudio {
		if s, ok := video.BestAudio("m4a"); ok {
			return s, nil
		}
		return types.StreamInfo{}, fmt.Errorf("%w: %s has no audio stream", types.ErrNoStreams, video.ID)
	}

	var candidates []types.StreamInfo
	for _, s := range video.Streams {
		if s.Kind == types.VideoOnly && len(video.AudioStreams) == 0 {
			continue
		}
		if s.HasVideo() {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return types.StreamInfo{}, fmt.Errorf("%w: %s has no video stream", types.ErrNoStreams, video.ID)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return better(candidates[i], candidates[j]) })
	if quality == "" || quality == config.QualityHighest {
		return candidates[0], nil
	}

	target, err := parseHeight(quality)
	if err != nil {
		return types.StreamInfo{}, err
	}
	for _, s := range candidates {
		if height(s) <= target {
			return s, nil
		}
	}
	return candidates[len(candidates)-1], nil
}

func better(a, b types.StreamInfo) bool {
	if ha, hb := height(a), height(b); ha != hb {
		return ha > hb
	}
	if a.IsProgressive() != b.IsProgressive() {
		return a.IsProgressive()
	}
	if (a.Container == "mp4") != (b.Container == "mp4") {
		return a.Container == "mp4"
	}
	return a.Bitrate > b.Bitrate
}

func height(s types.StreamInfo) int {
	if s.Height > 0 {
		return s.Height
	}
	h, _ := parseHeight(s.Resolution)
	return h
}

// parseHeight reads the leading number of labels like "720p" or "1080p60".
func parseHeight(label string) (int, error) {
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 || end >= len(label) || label[end] != 'p' {
		return 0, fmt.Errorf("unknown quality %q", label)
	}
	return strconv.Atoi(label[:end])
}
