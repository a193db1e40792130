package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tubeq/internal/types"
)

func sampleVideo() *types.VideoInfo {
	return &types.VideoInfo{
		ID: "abcdefghijk",
		Streams: []types.StreamInfo{
			{ID: "18", Resolution: "360p", Container: "mp4", Kind: types.Progressive},
			{ID: "137", Resolution: "1080p", Container: "mp4", Kind: types.VideoOnly, Bitrate: 4000},
			{ID: "248", Resolution: "1080p", Container: "webm", Kind: types.VideoOnly, Bitrate: 5000},
			{ID: "22", Resolution: "720p", Container: "mp4", Kind: types.Progressive},
			{ID: "136", Resolution: "720p", Container: "mp4", Kind: types.VideoOnly},
			{ID: "135", Resolution: "480p", Container: "mp4", Kind: types.VideoOnly},
		},
		AudioStreams: []types.StreamInfo{
			{ID: "140", Container: "m4a", Kind: types.AudioOnly, Bitrate: 128000},
			{ID: "251", Container: "webm", Kind: types.AudioOnly, Bitrate: 160000},
		},
	}
}

func TestSelectStream(t *testing.T) {
	v := sampleVideo()
	cases := map[string]string{
		"highest": "137",
		"":        "137",
		"1080p":   "137",
		"720p":    "22",
		"480p":    "135",
		"360p":    "18",
		"144p":    "18",
		"audio":   "140",
	}
	for quality, want := range cases {
		s, err := SelectStream(v, quality)
		require.NoError(t, err, quality)
		assert.Equal(t, want, s.ID, quality)
	}
}

func TestSelectStreamSkipsVideoOnlyWithoutAudio(t *testing.T) {
	v := sampleVideo()
	v.AudioStreams = nil
	s, err := SelectStream(v, "highest")
	require.NoError(t, err)
	assert.Equal(t, "22", s.ID)

	_, err = SelectStream(v, "audio")
	assert.ErrorIs(t, err, types.ErrNoStreams)
}

func TestSelectStreamErrors(t *testing.T) {
	_, err := SelectStream(&types.VideoInfo{ID: "x"}, "highest")
	assert.ErrorIs(t, err, types.ErrNoStreams)

	_, err = SelectStream(sampleVideo(), "best-ever")
	assert.Error(t, err)
}

func TestParseHeight(t *testing.T) {
	h, err := parseHeight("1080p60")
	require.NoError(t, err)
	assert.Equal(t, 1080, h)
	_, err = parseHeight("hd")
	assert.Error(t, err)
}
