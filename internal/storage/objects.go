// Package storage fetches training files from S3-compatible object storage,
// so a retrain can be started from an object key instead of an upload.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotConfigured is returned by handlers when no bucket is configured.
var ErrNotConfigured = errors.New("object storage is not configured")

// ErrObjectNotFound is returned when the key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ErrObjectTooLarge is returned when an object exceeds the size limit.
var ErrObjectTooLarge = errors.New("file too large")

// Config selects the bucket and endpoint.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // For MinIO/testing
	MaxSize  int64
}

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher downloads whole objects from one bucket.
type Fetcher struct {
	api     ObjectAPI
	bucket  string
	maxSize int64
}

// NewFetcher builds an S3 client from the default AWS credential chain.
func NewFetcher(ctx context.Context, cfg Config) (*Fetcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		})
	}

	return NewFetcherWithAPI(s3.NewFromConfig(awsCfg, opts...), cfg.Bucket, cfg.MaxSize), nil
}

// NewFetcherWithAPI wraps an existing client.
func NewFetcherWithAPI(api ObjectAPI, bucket string, maxSize int64) *Fetcher {
	return &Fetcher{api: api, bucket: bucket, maxSize: maxSize}
}

// Bucket returns the bucket objects are read from.
func (f *Fetcher) Bucket() string { return f.bucket }

// Fetch downloads key and returns its bytes.
func (f *Fetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, fmt.Errorf("invalid request: empty object key")
	}

	out, err := f.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, f.bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", f.bucket, key, err)
	}
	defer out.Body.Close()

	if f.maxSize > 0 && out.ContentLength != nil && *out.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%w: s3://%s/%s is %d bytes (limit %d)", ErrObjectTooLarge, f.bucket, key, *out.ContentLength, f.maxSize)
	}

	var body io.Reader = out.Body
	if f.maxSize > 0 {
		body = io.LimitReader(out.Body, f.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", f.bucket, key, err)
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: s3://%s/%s exceeds %d bytes", ErrObjectTooLarge, f.bucket, key, f.maxSize)
	}

	slog.DebugContext(ctx, "fetched training object", "bucket", f.bucket, "key", key, "bytes", len(data))
	return data, nil
}
