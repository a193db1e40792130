package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tubeq/internal/types"
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".3gp":  "video/3gpp",
	".m4a":  "audio/mp4",
	".srt":  "application/x-subrip",
}

type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type ArchiveConfig struct {
	Bucket  string
	Prefix  string
	Profile string
	Region  string
}

// S3Archiver copies finished downloads into a bucket under a key prefix.
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader uploadAPI
}

func NewS3Archiver(ctx context.Context, cfg ArchiveConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is not configured")
	}
	profile := cfg.Profile
	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
	}
	if profile == "" {
		profile = "default"
	}
	opts := []func(*config.LoadOptions) error{
		config.WithSharedConfigProfile(profile),
		config.WithRetryMode(aws.RetryModeAdaptive),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.DisableLogOutputChecksumValidationSkipped = true
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 16 * 1024 * 1024
		u.Concurrency = 4
	})
	return newArchiver(cfg.Bucket, cfg.Prefix, uploader), nil
}

func newArchiver(bucket, prefix string, uploader uploadAPI) *S3Archiver {
	return &S3Archiver{bucket: bucket, prefix: prefix, uploader: uploader}
}

// Upload stores localPath as <prefix><file name> and returns its s3:// location.
func (a *S3Archiver) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s for upload: %v", types.ErrFilesystem, localPath, err)
	}
	defer f.Close()

	key := objectKey(a.prefix, filepath.Base(localPath))
	input := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(localPath))]; ok {
		input.ContentType = aws.String(ct)
	}
	log.Debug().Str("op", "storage/s3").Msgf("uploading %s to s3://%s/%s", localPath, a.bucket, key)
	if _, err := a.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("uploading to s3://%s/%s: %w", a.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

func objectKey(prefix, name string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
