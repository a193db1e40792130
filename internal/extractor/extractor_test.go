package extractor

import (
	"errors"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tubeq/internal/types"
)

func TestConvertVideoClassifiesFormats(t *testing.T) {
	video := &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Song",
		Author:   "Artist",
		Duration: 212 * time.Second,
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, QualityLabel: "360p", Height: 360, AudioChannels: 2, ContentLength: 1000},
			{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, QualityLabel: "720p", Height: 720, AudioChannels: 2},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Height: 1080, ContentLength: 5000},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AverageBitrate: 128000, AudioChannels: 2},
			{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		},
		Thumbnails: youtube.Thumbnails{
			{URL: "small.jpg", Width: 120},
			{URL: "large.jpg", Width: 1280},
		},
	}

	info := convertVideo(video)
	require.Len(t, info.Streams, 3)
	require.Len(t, info.AudioStreams, 2)
	assert.Equal(t, "large.jpg", info.ThumbnailURL)

	assert.Equal(t, "137", info.Streams[0].ID)
	assert.Equal(t, types.VideoOnly, info.Streams[0].Kind)
	assert.Equal(t, "1080p", info.Streams[0].Resolution)
	assert.Equal(t, int64(5000), info.Streams[0].Size)

	assert.Equal(t, types.Progressive, info.Streams[1].Kind)
	assert.Equal(t, "mp4", info.Streams[1].Container)
	assert.Equal(t, int64(-1), info.Streams[1].Size)

	assert.Equal(t, "251", info.AudioStreams[0].ID)
	assert.Equal(t, "webm", info.AudioStreams[0].Container)
	assert.Equal(t, "m4a", info.AudioStreams[1].Container)
	assert.Equal(t, "128kbps", info.AudioStreams[1].AudioBitrate)
}

func TestTimedTextToSRT(t *testing.T) {
	srv1 := `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.25">Hello &amp;#39;world&amp;#39;</text>
<text start="3" dur="1">   </text>
<text start="3661.1" dur="1.5">Second line</text>
</transcript>`
	out, err := TimedTextToSRT([]byte(srv1))
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,500 --> 00:00:02,750\nHello 'world'\n\n"+
		"2\n01:01:01,100 --> 01:01:02,600\nSecond line\n\n", string(out))
}

func TestTimedTextToSRTFormat3(t *testing.T) {
	srv3 := `<?xml version="1.0" encoding="utf-8" ?><timedtext format="3"><body>
<p t="1000" d="1500">Plain</p>
<p t="2500" d="500"><s>Split</s><s> words</s></p>
</body></timedtext>`
	out, err := TimedTextToSRT([]byte(srv3))
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,500\nPlain\n\n"+
		"2\n00:00:02,500 --> 00:00:03,000\nSplit words\n\n", string(out))
}

func TestTimedTextToSRTInvalid(t *testing.T) {
	_, err := TimedTextToSRT([]byte("<transcript><text"))
	assert.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	err := classifyError("u", youtube.ErrVideoPrivate)
	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, types.ReasonPrivate, fe.Reason)
	assert.ErrorIs(t, err, types.ErrFetch)

	err = classifyError("u", errors.New("The uploader has not made this video available in your country"))
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, types.ReasonRegion, fe.Reason)

	err = classifyError("u", errors.New("dial tcp: i/o timeout"))
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, types.ReasonNetwork, fe.Reason)

	assert.ErrorIs(t, classifyError("u", youtube.ErrInvalidCharactersInVideoID), types.ErrInvalidURL)
}
