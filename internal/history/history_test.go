package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tubeq/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func finishedTask(id, title string, status types.TaskStatus, at time.Time) types.DownloadTask {
	return types.DownloadTask{
		ID:         id,
		Video:      &types.VideoInfo{ID: "abcdefghijk", URL: "https://www.youtube.com/watch?v=abcdefghijk", Title: title},
		Stream:     types.StreamInfo{ID: "22", Resolution: "720p", Container: "mp4"},
		Status:     status,
		Downloaded: 1024,
		OutputPath: "/tmp/" + title + "_720p.mp4",
		FinishedAt: at,
	}
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, finishedTask("t1", "First", types.StatusCompleted, base)))
	failed := finishedTask("t2", "Second", types.StatusFailed, base.Add(time.Minute))
	failed.Err = errors.New("download interrupted: connection reset")
	require.NoError(t, store.Record(ctx, failed))

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "t2", entries[0].ID)
	assert.Equal(t, types.StatusFailed, entries[0].Status)
	assert.Equal(t, "download interrupted: connection reset", entries[0].Error)
	assert.Equal(t, "First", entries[1].Title)
	assert.Equal(t, "720p", entries[1].Quality)
	assert.Equal(t, int64(1024), entries[1].Size)
	assert.True(t, entries[1].FinishedAt.Equal(base))

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "t2", limited[0].ID)
}

func TestRecordReplacesRestartedTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Now()

	require.NoError(t, store.Record(ctx, finishedTask("t1", "Retry", types.StatusFailed, at)))
	require.NoError(t, store.Record(ctx, finishedTask("t1", "Retry", types.StatusCompleted, at.Add(time.Second))))

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.StatusCompleted, entries[0].Status)
}

func TestRecordRejectsActiveTask(t *testing.T) {
	store := openTestStore(t)
	err := store.Record(context.Background(), finishedTask("t1", "Busy", types.StatusDownloading, time.Now()))
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestMarkArchived(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, finishedTask("t1", "Kept", types.StatusCompleted, time.Now())))

	require.NoError(t, store.MarkArchived(ctx, "t1", "s3://bucket/tubeq/Kept_720p.mp4"))
	entries, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/tubeq/Kept_720p.mp4", entries[0].ArchivedTo)

	assert.ErrorIs(t, store.MarkArchived(ctx, "missing", "s3://x/y"), types.ErrTaskNotFound)
}
