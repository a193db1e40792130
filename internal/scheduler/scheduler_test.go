package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tubeq/internal/history"
	"github.com/tanq16/tubeq/internal/output"
	"github.com/tanq16/tubeq/internal/types"
	"github.com/tanq16/tubeq/internal/utils"
)

type fakeExtractor struct {
	videos map[string]*types.VideoInfo
	data   map[string][]byte
	block  bool
	opened chan string
}

func (f *fakeExtractor) ResolveVideo(ctx context.Context, url string) (*types.VideoInfo, error) {
	if v, ok := f.videos[url]; ok {
		return v, nil
	}
	return nil, &types.FetchError{URL: url, Reason: types.ReasonUnavailable}
}

func (f *fakeExtractor) ResolvePlaylist(ctx context.Context, url string) ([]string, error) {
	return nil, &types.FetchError{URL: url, Reason: types.ReasonUnavailable}
}

func (f *fakeExtractor) OpenStream(ctx context.Context, videoID, streamID string) (io.ReadCloser, int64, error) {
	if f.opened != nil {
		f.opened <- videoID
	}
	if f.block {
		return &blockingReader{ctx: ctx}, -1, nil
	}
	data := f.data[videoID]
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeExtractor) OpenCaption(ctx context.Context, videoID, captionID string) (io.ReadCloser, error) {
	return nil, errors.New("no captions")
}

type blockingReader struct{ ctx context.Context }

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

func (r *blockingReader) Close() error { return nil }

type fakeArchiver struct {
	mu       sync.Mutex
	uploaded []string
}

func (a *fakeArchiver) Upload(ctx context.Context, localPath string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploaded = append(a.uploaded, localPath)
	return "s3://bucket/tubeq/" + filepath.Base(localPath), nil
}

func clipVideo(id, title string) *types.VideoInfo {
	return &types.VideoInfo{
		ID:    id,
		URL:   utils.WatchURL(id),
		Title: title,
		Streams: []types.StreamInfo{
			{ID: "22", Itag: 22, Resolution: "720p", Height: 720, Container: "mp4", Kind: types.Progressive, Size: -1},
			{ID: "18", Itag: 18, Resolution: "360p", Height: 360, Container: "mp4", Kind: types.Progressive, Size: -1},
		},
	}
}

func TestRunDownloadsAndRecords(t *testing.T) {
	dir := t.TempDir()
	url := utils.WatchURL("aaaaaaaaaaa")
	src := &fakeExtractor{
		videos: map[string]*types.VideoInfo{url: clipVideo("aaaaaaaaaaa", "Clip")},
		data:   map[string][]byte{"aaaaaaaaaaa": []byte("hello world")},
	}
	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()
	archiver := &fakeArchiver{}
	var buf bytes.Buffer

	summary, err := Run(context.Background(), Options{
		URLs:      []string{url, "https://example.com/not-youtube"},
		Quality:   "720p",
		OutputDir: dir,
		Workers:   2,
		Extractor: src,
		Display:   output.NewManager(&buf),
		History:   store,
		Archiver:  archiver,
	})
	require.NoError(t, err)
	assert.Equal(t, output.Summary{Total: 2, Completed: 1, Failed: 1}, summary)

	data, err := os.ReadFile(filepath.Join(dir, "Clip_720p.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	assert.Equal(t, []string{filepath.Join(dir, "Clip_720p.mp4")}, archiver.uploaded)
	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.StatusCompleted, entries[0].Status)
	assert.Equal(t, "s3://bucket/tubeq/Clip_720p.mp4", entries[0].ArchivedTo)
	assert.True(t, strings.Contains(buf.String(), "Completed 1 of 2"))
}

func TestRunMergeToolMissing(t *testing.T) {
	dir := t.TempDir()
	url := utils.WatchURL("bbbbbbbbbbb")
	video := &types.VideoInfo{
		ID:    "bbbbbbbbbbb",
		Title: "Concert",
		Streams: []types.StreamInfo{
			{ID: "137", Resolution: "1080p", Height: 1080, Container: "mp4", Kind: types.VideoOnly, Size: -1},
		},
		AudioStreams: []types.StreamInfo{
			{ID: "140", Container: "m4a", Kind: types.AudioOnly, Bitrate: 128000, Size: -1},
		},
	}
	opened := make(chan string, 4)
	src := &fakeExtractor{videos: map[string]*types.VideoInfo{url: video}, opened: opened}

	summary, err := Run(context.Background(), Options{
		URLs:      []string{url},
		OutputDir: dir,
		Extractor: src,
		Display:   output.NewManager(&bytes.Buffer{}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, opened)
}

func TestRunCancelStopsDownloads(t *testing.T) {
	dir := t.TempDir()
	url := utils.WatchURL("ccccccccccc")
	opened := make(chan string, 1)
	src := &fakeExtractor{
		videos: map[string]*types.VideoInfo{url: clipVideo("ccccccccccc", "Long")},
		block:  true,
		opened: opened,
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-opened
		cancel()
	}()

	done := make(chan output.Summary)
	go func() {
		summary, _ := Run(ctx, Options{
			URLs:      []string{url},
			OutputDir: dir,
			Extractor: src,
			Display:   output.NewManager(&bytes.Buffer{}),
		})
		done <- summary
	}()

	select {
	case summary := <-done:
		assert.Equal(t, 1, summary.Cancelled)
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	_, err := os.Stat(filepath.Join(dir, "Long_720p.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunRequiresURLs(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
