package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
)

const maxCaptionBytes = 8 << 20

type YouTube struct {
	client *youtube.Client
	http   *utils.TubeHTTPClient

	mu     sync.Mutex
	videos map[string]*youtube.Video
}

func NewYouTube(httpClient *utils.TubeHTTPClient) *YouTube {
	return &YouTube{
		client: &youtube.Client{HTTPClient: httpClient.StdClient()},
		http:   httpClient,
		videos: make(map[string]*youtube.Video),
	}
}

func (y *YouTube) ResolveVideo(ctx context.Context, url string) (*types.VideoInfo, error) {
	video, err := y.client.GetVideoContext(ctx, url)
	if err != nil {
		log.Debug().Str("op", "extractor/youtube").Err(err).Msgf("failed to resolve %s", url)
		return nil, classifyError(url, err)
	}
	y.remember(video)
	info := convertVideo(video)
	info.URL = url
	log.Debug().Str("op", "extractor/youtube").Msgf("resolved %s with %d video and %d audio streams", video.ID, len(info.Streams), len(info.AudioStreams))
	return info, nil
}

func (y *YouTube) ResolvePlaylist(ctx context.Context, url string) ([]string, error) {
	playlist, err := y.client.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, classifyError(url, err)
	}
	urls := make([]string, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		urls = append(urls, utils.WatchURL(entry.ID))
	}
	log.Debug().Str("op", "extractor/youtube").Msgf("playlist %q expanded to %d videos", playlist.Title, len(urls))
	return urls, nil
}

func (y *YouTube) OpenStream(ctx context.Context, videoID, streamID string) (io.ReadCloser, int64, error) {
	video, err := y.video(ctx, videoID)
	if err != nil {
		return nil, 0, err
	}
	format := findFormat(video, streamID)
	if format == nil {
		return nil, 0, fmt.Errorf("%w: stream %s not offered for %s", types.ErrNoStreams, streamID, videoID)
	}
	stream, size, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, 0, fmt.Errorf("starting stream: %w", err)
	}
	if size <= 0 {
		size = -1
	}
	return stream, size, nil
}

func (y *YouTube) OpenCaption(ctx context.Context, videoID, captionID string) (io.ReadCloser, error) {
	video, err := y.video(ctx, videoID)
	if err != nil {
		return nil, err
	}
	var track *youtube.CaptionTrack
	for i := range video.CaptionTracks {
		if captionTrackID(video.CaptionTracks[i]) == captionID {
			track = &video.CaptionTracks[i]
			break
		}
	}
	if track == nil {
		return nil, fmt.Errorf("caption track %s not found for %s", captionID, videoID)
	}
	raw, err := y.http.Fetch(ctx, track.BaseURL, maxCaptionBytes)
	if err != nil {
		return nil, fmt.Errorf("fetching caption track: %w", err)
	}
	srt, err := TimedTextToSRT(raw)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(srt)), nil
}

func (y *YouTube) remember(video *youtube.Video) {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.videos[video.ID] = video
}

func (y *YouTube) video(ctx context.Context, videoID string) (*youtube.Video, error) {
	y.mu.Lock()
	video, ok := y.videos[videoID]
	y.mu.Unlock()
	if ok {
		return video, nil
	}
	url := utils.WatchURL(videoID)
	video, err := y.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, classifyError(url, err)
	}
	y.remember(video)
	return video, nil
}

func classifyError(url string, err error) error {
	reason := types.ReasonNetwork
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate):
		reason = types.ReasonPrivate
	case errors.Is(err, youtube.ErrLoginRequired):
		reason = types.ReasonLogin
	case errors.Is(err, youtube.ErrNotPlayableInEmbed):
		reason = types.ReasonUnavailable
	case errors.Is(err, youtube.ErrInvalidPlaylist),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		reason = types.ReasonUnavailable
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "private"):
		reason = types.ReasonPrivate
	case strings.Contains(msg, "country"), strings.Contains(msg, "region"):
		reason = types.ReasonRegion
	case strings.Contains(msg, "sign in"), strings.Contains(msg, "login"):
		reason = types.ReasonLogin
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "removed"):
		reason = types.ReasonUnavailable
	}
	return &types.FetchError{URL: url, Reason: reason, Err: err}
}
