package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tubeq/internal/types"
)

type fakeUploader struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(input.Bucket)
	f.key = aws.ToString(input.Key)
	f.contentType = aws.ToString(input.ContentType)
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &manager.UploadOutput{Key: input.Key}, nil
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "tubeq/a.mp4", objectKey("tubeq/", "a.mp4"))
	assert.Equal(t, "tubeq/a.mp4", objectKey("/tubeq", "a.mp4"))
	assert.Equal(t, "a.mp4", objectKey("", "a.mp4"))
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "Clip_720p.mp4")
	require.NoError(t, os.WriteFile(local, []byte("video-bytes"), 0o644))

	up := &fakeUploader{}
	a := newArchiver("media", "tubeq/", up)
	location, err := a.Upload(context.Background(), local)
	require.NoError(t, err)

	assert.Equal(t, "s3://media/tubeq/Clip_720p.mp4", location)
	assert.Equal(t, "media", up.bucket)
	assert.Equal(t, "tubeq/Clip_720p.mp4", up.key)
	assert.Equal(t, "video/mp4", up.contentType)
	assert.Equal(t, []byte("video-bytes"), up.body)
}

func TestUploadErrors(t *testing.T) {
	a := newArchiver("media", "", &fakeUploader{})
	_, err := a.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, types.ErrFilesystem)

	local := filepath.Join(t.TempDir(), "x.mp4")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))
	denied := errors.New("access denied")
	a = newArchiver("media", "", &fakeUploader{err: denied})
	_, err = a.Upload(context.Background(), local)
	assert.ErrorIs(t, err, denied)
}
