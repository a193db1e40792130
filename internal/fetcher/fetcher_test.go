package fetcher

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
)

type fakeExtractor struct {
	mu        sync.Mutex
	videos    map[string]*types.VideoInfo
	errs      map[string]error
	playlists map[string][]string
	calls     int
}

func (f *fakeExtractor) ResolveVideo(ctx context.Context, url string) (*types.VideoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if v, ok := f.videos[url]; ok {
		return v, nil
	}
	return nil, &types.FetchError{URL: url, Reason: types.ReasonUnavailable}
}

func (f *fakeExtractor) ResolvePlaylist(ctx context.Context, url string) ([]string, error) {
	if urls, ok := f.playlists[url]; ok {
		return urls, nil
	}
	return nil, &types.FetchError{URL: url, Reason: types.ReasonUnavailable}
}

func (f *fakeExtractor) OpenStream(ctx context.Context, videoID, streamID string) (io.ReadCloser, int64, error) {
	return nil, 0, errors.New("not used")
}

func (f *fakeExtractor) OpenCaption(ctx context.Context, videoID, captionID string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

func video(id, title string) *types.VideoInfo {
	return &types.VideoInfo{
		ID:    id,
		URL:   utils.WatchURL(id),
		Title: title,
		Streams: []types.StreamInfo{
			{ID: "22", Itag: 22, Resolution: "720p", Container: "mp4", Size: 100, Kind: types.Progressive},
		},
	}
}

const playlistURL = "https://www.youtube.com/playlist?list=PLabcdefghijklmnop"

func TestFetchSingleVideo(t *testing.T) {
	url := utils.WatchURL("aaaaaaaaaaa")
	src := &fakeExtractor{videos: map[string]*types.VideoInfo{url: video("aaaaaaaaaaa", "One")}}
	f := New(src, nil, Config{})

	results := f.FetchAll(context.Background(), url)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "One", results[0].Video.Title)
	assert.Equal(t, 0, results[0].Index)
}

func TestFetchPlaylistPartialFailure(t *testing.T) {
	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = utils.WatchURL(id)
	}
	src := &fakeExtractor{
		playlists: map[string][]string{playlistURL: urls},
		videos: map[string]*types.VideoInfo{
			urls[0]: video(ids[0], "First"),
			urls[2]: video(ids[2], "Third"),
		},
		errs: map[string]error{
			urls[1]: &types.FetchError{URL: urls[1], Reason: types.ReasonPrivate},
		},
	}
	f := New(src, nil, Config{Parallelism: 2})

	results := f.FetchAll(context.Background(), playlistURL)
	require.Len(t, results, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Index, results[1].Index, results[2].Index})
	assert.Equal(t, "First", results[0].Video.Title)
	assert.Equal(t, "Third", results[2].Video.Title)

	require.Error(t, results[1].Err)
	assert.Nil(t, results[1].Video)
	assert.ErrorIs(t, results[1].Err, types.ErrFetch)
	var fe *types.FetchError
	require.ErrorAs(t, results[1].Err, &fe)
	assert.Equal(t, types.ReasonPrivate, fe.Reason)
}

func TestFetchInvalidURL(t *testing.T) {
	src := &fakeExtractor{}
	f := New(src, nil, Config{})

	for _, url := range []string{"", "not a url", "https://vimeo.com/12345"} {
		results := f.FetchAll(context.Background(), url)
		require.Len(t, results, 1, url)
		assert.ErrorIs(t, results[0].Err, types.ErrInvalidURL, url)
	}
	assert.Zero(t, src.calls)
}

func TestFetchNoStreams(t *testing.T) {
	url := utils.WatchURL("ddddddddddd")
	empty := &types.VideoInfo{ID: "ddddddddddd", Title: "Live soon"}
	src := &fakeExtractor{videos: map[string]*types.VideoInfo{url: empty}}
	f := New(src, nil, Config{})

	results := f.FetchAll(context.Background(), url)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, types.ErrNoStreams)
	assert.Nil(t, results[0].Video)
}

func TestFetchWrapsUnclassifiedErrors(t *testing.T) {
	url := utils.WatchURL("eeeeeeeeeee")
	src := &fakeExtractor{errs: map[string]error{url: errors.New("dial tcp: timeout")}}
	f := New(src, nil, Config{})

	results := f.FetchAll(context.Background(), url)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, types.ErrFetch)
	assert.True(t, strings.Contains(results[0].Err.Error(), "network"))
}

func TestFetchPlaylistExpansionFailure(t *testing.T) {
	f := New(&fakeExtractor{}, nil, Config{})
	results := f.FetchAll(context.Background(), playlistURL)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, types.ErrFetch)
}

func TestFetchStopsOnCancel(t *testing.T) {
	urls := make([]string, 20)
	videos := make(map[string]*types.VideoInfo)
	for i := range urls {
		id := strings.Repeat(string(rune('a'+i)), 11)
		urls[i] = utils.WatchURL(id)
		videos[urls[i]] = video(id, id)
	}
	src := &fakeExtractor{playlists: map[string][]string{playlistURL: urls}, videos: videos}
	f := New(src, nil, Config{Parallelism: 1})

	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Fetch(ctx, playlistURL)
	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not stop after cancellation")
	}
}
