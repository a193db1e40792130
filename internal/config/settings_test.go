package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "settings.yaml"))

	s, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, s.ConcurrentDownloads)
	assert.Equal(t, QualityHighest, s.DefaultQuality)
	assert.Equal(t, "dark", s.Theme)
	assert.Equal(t, 60*time.Second, s.Network.StallTimeout)
	assert.Equal(t, filepath.Join(dir, "history.db"), s.HistoryPath)
	assert.False(t, s.Archive.Enabled())
}

func TestLoadClampsConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `
concurrent_downloads: 12
default_quality: 4k
theme: neon
network:
  stall_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, MaxConcurrent, s.ConcurrentDownloads)
	assert.Equal(t, QualityHighest, s.DefaultQuality)
	assert.Equal(t, "dark", s.Theme)
	assert.Equal(t, 5*time.Second, s.Network.StallTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TUBEQ_CONCURRENT_DOWNLOADS", "4")
	t.Setenv("TUBEQ_ARCHIVE_BUCKET", "media")

	s, err := NewStore(filepath.Join(t.TempDir(), "settings.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 4, s.ConcurrentDownloads)
	assert.True(t, s.Archive.Enabled())
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	store := NewStore(path)

	s, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, s.Set("concurrent_downloads", "3"))
	require.NoError(t, s.Set("default_quality", "720p"))
	require.NoError(t, s.Set("auto_subtitles", "true"))
	require.NoError(t, s.Set("network.stall_timeout", "90s"))
	require.NoError(t, store.Save(s))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.ConcurrentDownloads)
	assert.Equal(t, "720p", loaded.DefaultQuality)
	assert.True(t, loaded.AutoSubtitles)
	assert.Equal(t, 90*time.Second, loaded.Network.StallTimeout)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSetRejectsUnknown(t *testing.T) {
	s := &Settings{}
	assert.Error(t, s.Set("nope", "1"))
	assert.Error(t, s.Set("default_quality", "8k"))
	assert.Error(t, s.Set("concurrent_downloads", "many"))
	assert.Error(t, s.Set("theme", "blue"))

	require.NoError(t, s.Set("concurrent_downloads", "0"))
	assert.Equal(t, MinConcurrent, s.ConcurrentDownloads)
}
