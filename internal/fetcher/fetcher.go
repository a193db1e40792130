package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/extractor"
	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
	"golang.org/x/sync/errgroup"
)

const (
	defaultParallelism = 4
	maxThumbnailBytes  = 4 << 20
)

// Result is the outcome for one video. Index is the position inside the
// source playlist, 0 for a single video URL.
type Result struct {
	URL   string
	Index int
	Video *types.VideoInfo
	Err   error
}

type Config struct {
	Parallelism     int
	MetadataTimeout time.Duration
	Thumbnails      bool
}

type Fetcher struct {
	src    extractor.Extractor
	client *utils.TubeHTTPClient
	cfg    Config
}

// New returns a Fetcher. client may be nil when thumbnails are not needed.
func New(src extractor.Extractor, client *utils.TubeHTTPClient, cfg Config) *Fetcher {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = 45 * time.Second
	}
	return &Fetcher{src: src, client: client, cfg: cfg}
}

// Fetch resolves url off the caller's goroutine and streams one Result per
// video, in completion order. The channel is closed when every video has
// been reported. A URL that fails validation or a playlist that cannot be
// expanded yields a single Result carrying the error.
func (f *Fetcher) Fetch(ctx context.Context, url string) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		f.fetch(ctx, url, out)
	}()
	return out
}

// FetchAll collects every Result of url ordered by playlist position.
func (f *Fetcher) FetchAll(ctx context.Context, url string) []Result {
	var results []Result
	for r := range f.Fetch(ctx, url) {
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

func (f *Fetcher) fetch(ctx context.Context, url string, out chan<- Result) {
	kind, err := utils.ClassifyURL(url)
	if err != nil {
		send(ctx, out, Result{URL: url, Err: err})
		return
	}
	if kind == utils.URLVideo {
		send(ctx, out, f.one(ctx, url, 0))
		return
	}

	urls, err := f.src.ResolvePlaylist(ctx, url)
	if err != nil {
		send(ctx, out, Result{URL: url, Err: fmt.Errorf("expanding playlist: %w", err)})
		return
	}
	if len(urls) == 0 {
		send(ctx, out, Result{URL: url, Err: fmt.Errorf("%w: playlist has no videos", types.ErrNoStreams)})
		return
	}
	log.Debug().Str("op", "fetcher/fetch").Msgf("fetching %d playlist entries from %s", len(urls), url)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Parallelism)
	for i, videoURL := range urls {
		g.Go(func() error {
			send(gctx, out, f.one(gctx, videoURL, i+1))
			// per-entry failures travel in the Result, never through the group
			return nil
		})
	}
	g.Wait()
}

func (f *Fetcher) one(ctx context.Context, url string, index int) Result {
	res := Result{URL: url, Index: index}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.MetadataTimeout)
	defer cancel()

	video, err := f.src.ResolveVideo(ctx, url)
	if err != nil {
		var fe *types.FetchError
		if !errors.As(err, &fe) && !errors.Is(err, types.ErrInvalidURL) {
			err = &types.FetchError{URL: url, Reason: types.ReasonNetwork, Err: err}
		}
		res.Err = err
		log.Debug().Str("op", "fetcher/fetch").Err(err).Msgf("entry %d failed", index)
		return res
	}
	if !video.HasStreams() {
		res.Err = fmt.Errorf("%w: %s", types.ErrNoStreams, url)
		return res
	}
	if f.cfg.Thumbnails && f.client != nil && video.ThumbnailURL != "" {
		thumb, err := f.client.Fetch(ctx, video.ThumbnailURL, maxThumbnailBytes)
		if err != nil {
			log.Debug().Str("op", "fetcher/fetch").Err(err).Msgf("thumbnail unavailable for %s", video.ID)
		} else {
			video.Thumbnail = thumb
		}
	}
	res.Video = video
	return res
}

func send(ctx context.Context, out chan<- Result, r Result) {
	select {
	case out <- r:
	case <-ctx.Done():
	}
}
