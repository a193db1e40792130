package extractor

import (
	"context"
	"io"

	"github.com/tanq16/tubeq/internal/types"
)

// Extractor is the boundary to the platform extraction library. The rest of
// the program only sees the project's own types.
type Extractor interface {
	ResolveVideo(ctx context.Context, url string) (*types.VideoInfo, error)
	// ResolvePlaylist returns the watch URLs of the playlist entries in order.
	ResolvePlaylist(ctx context.Context, url string) ([]string, error)
	// OpenStream returns the byte source of one stream and its advertised
	// size, -1 if unknown.
	OpenStream(ctx context.Context, videoID, streamID string) (io.ReadCloser, int64, error)
	// OpenCaption returns the caption track rendered as SRT text.
	OpenCaption(ctx context.Context, videoID, captionID string) (io.ReadCloser, error)
}
