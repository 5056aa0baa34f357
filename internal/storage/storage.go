// Package storage keeps asset masters and previews in Supabase Storage through its S3 API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/rs/zerolog"
)

// ErrNoObjectKey is returned when a stored URL does not point into the expected bucket.
var ErrNoObjectKey = errors.New("no_object_key")

// BlobStore is the subset of object storage the services need.
type BlobStore interface {
	// Upload stores body under key and returns the object's public URL.
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
	// SignedURL returns a time-limited GET URL that makes browsers save the object as filename.
	SignedURL(ctx context.Context, bucket, key, filename string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

type s3Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	publicBaseURL string
	logger        zerolog.Logger
}

// NewS3Store creates a BlobStore. publicBaseURL is the project URL public objects are served from.
func NewS3Store(client *s3.Client, publicBaseURL string, logger zerolog.Logger) BlobStore {
	return &s3Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With().Str("service", "BlobStore").Logger(),
	}
}

// NewS3Client builds a path-style client for the Supabase S3 endpoint.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		return nil, fmt.Errorf("load S3 config: %w", err)
	}
	return s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	}), nil
}

func (s *s3Store) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", bucket).Str("object_key", key).Msg("Failed to upload object")
		return "", fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return PublicURL(s.publicBaseURL, bucket, key), nil
}

func (s *s3Store) SignedURL(ctx context.Context, bucket, key, filename string, ttl time.Duration) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", filename)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", bucket).Str("object_key", key).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return resp.URL, nil
}

func (s *s3Store) Delete(ctx context.Context, bucket, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL is the address Supabase serves a public object from.
func PublicURL(baseURL, bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(baseURL, "/"), bucket, key)
}

// ObjectKeyFromURL extracts the object key from a stored object URL: the query is
// dropped, everything up to "/<bucket>/" is cut and the rest is URL-decoded.
func ObjectKeyFromURL(rawURL, bucket string) (string, error) {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		rawURL = rawURL[:i]
	}
	marker := "/" + bucket + "/"
	i := strings.Index(rawURL, marker)
	if i < 0 {
		return "", fmt.Errorf("%w: %q is not in bucket %s", ErrNoObjectKey, rawURL, bucket)
	}
	key, err := url.PathUnescape(rawURL[i+len(marker):])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoObjectKey, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: empty key in %q", ErrNoObjectKey, rawURL)
	}
	return key, nil
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// UploadKey prefixes a sanitized file name with a random token.
func UploadKey(token, filename string) string {
	return token + "-" + whitespaceRun.ReplaceAllString(filename, "_")
}

// Extension returns the lowercased extension of a URL's path without the dot, or
// fallback when there is none.
func Extension(rawURL, fallback string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		rawURL = rawURL[:i]
	}
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	// path.Ext must not look past the last slash.
	ext := strings.TrimPrefix(path.Ext(path.Base(rawURL)), ".")
	if ext == "" {
		return fallback
	}
	return strings.ToLower(ext)
}

// DownloadFilename is the name a master is saved under: Elymand_<title>_Master.<ext>.
func DownloadFilename(title, masterURL string) string {
	return fmt.Sprintf("Elymand_%s_Master.%s", nonAlnum.ReplaceAllString(title, "_"), Extension(masterURL, "zip"))
}

// MotionDownloadFilename is the name a motion master is saved under:
// Elymand_<title>_4K_Master.<format>. The master URL extension is used when format is empty.
func MotionDownloadFilename(title, format, masterURL string) string {
	ext := strings.ToLower(strings.TrimSpace(format))
	if ext == "" {
		ext = Extension(masterURL, "mp4")
	}
	return fmt.Sprintf("Elymand_%s_4K_Master.%s", nonAlnum.ReplaceAllString(title, "_"), ext)
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
