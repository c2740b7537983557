package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// Uploader stores a local file under key and returns its object URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (UploadResult, error)
}

type UploadResult struct {
	Bucket string
	Key    string
	URL    string
	ETag   string
}

// putter is the part of manager.Uploader used here.
type putter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Uploader struct {
	up       putter
	bucket   string
	region   string
	endpoint string
	logger   *slog.Logger
}

// NewS3Uploader builds an uploader for bucket. A custom endpoint switches to
// path-style addressing.
func NewS3Uploader(awsCfg aws.Config, bucket, endpoint string, logger *slog.Logger) (*S3Uploader, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, common.NewAppError(common.CodeConfig, "storage.bucket is required", common.ErrInvalidInput)
	}
	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return newS3Uploader(manager.NewUploader(client), bucket, awsCfg.Region, endpoint, logger), nil
}

func newS3Uploader(up putter, bucket, region, endpoint string, logger *slog.Logger) *S3Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Uploader{up: up, bucket: bucket, region: region, endpoint: endpoint, logger: logger}
}

func (u *S3Uploader) Upload(ctx context.Context, localPath, key string) (UploadResult, error) {
	start := time.Now()
	f, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	out, err := u.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		u.logger.Error("storage.upload.failed", "bucket", u.bucket, "key", key, "error", err)
		return UploadResult{}, common.NewAppError(common.CodeStorage, "s3 upload", err)
	}

	res := UploadResult{
		Bucket: u.bucket,
		Key:    key,
		URL:    ObjectURL(u.bucket, u.region, u.endpoint, key),
	}
	if out.ETag != nil {
		res.ETag = *out.ETag
	}
	u.logger.Info("storage.upload.ok",
		"bucket", u.bucket,
		"key", key,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ObjectURL is the virtual-hosted URL of key, or {endpoint}/{bucket}/{key}
// for a custom endpoint.
func ObjectURL(bucket, region, endpoint, key string) string {
	key = strings.TrimPrefix(key, "/")
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// ObjectKey joins the configured prefix and file name.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
