// Package objectstore reads importer payloads from the local filesystem or
// from an S3-compatible bucket such as Cloudflare R2.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SchemeS3 prefixes bucket sources: s3://bucket/key, or s3:///key for the
// configured bucket.
const SchemeS3 = "s3://"

// DefaultMaxSizeMB caps a single payload. Overpass extracts for a metro area
// are typically a few megabytes.
const DefaultMaxSizeMB = 64

// Errors returned by Fetch.
var (
	ErrInvalidSource        = errors.New("invalid source")
	ErrStorageNotConfigured = errors.New("object storage is not configured")
	ErrTooLarge             = errors.New("payload exceeds maximum size")
)

// ObjectGetter is the subset of *s3.Client used by Store.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds R2 credentials. All four connection fields are required to
// build a bucket client; an empty Config yields a file-only Store.
type Config struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	MaxSizeMB       int
	Logger          *slog.Logger
}

// Store fetches payloads by source string.
type Store struct {
	client   ObjectGetter // nil when only local files are available
	bucket   string
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Store. When cfg carries no credentials the store can still
// read local files.
func New(cfg Config) (*Store, error) {
	var client ObjectGetter
	if cfg.BucketName != "" || cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" || cfg.Endpoint != "" {
		if cfg.BucketName == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Endpoint == "" {
			return nil, fmt.Errorf("%w: bucket, access key, secret and endpoint are all required", ErrStorageNotConfigured)
		}
		client = s3.New(s3.Options{
			Region: "auto", // R2 uses auto region
			Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
			BaseEndpoint: aws.String(cfg.Endpoint),
			UsePathStyle: true, // R2 requires path-style addressing
		})
	}
	return newStore(client, cfg.BucketName, cfg.MaxSizeMB, cfg.Logger), nil
}

// NewWithClient creates a Store around an existing client.
func NewWithClient(client ObjectGetter, bucket string, maxSizeMB int, logger *slog.Logger) *Store {
	return newStore(client, bucket, maxSizeMB, logger)
}

func newStore(client ObjectGetter, bucket string, maxSizeMB int, logger *slog.Logger) *Store {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:   client,
		bucket:   bucket,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		logger:   logger,
	}
}

// Location is a parsed source.
type Location struct {
	Bucket string // empty for local files
	Key    string // object key or file path
}

// IsRemote reports whether the location refers to a bucket object.
func (l Location) IsRemote() bool {
	return l.Bucket != ""
}

// ParseSource splits src into a bucket location or a local path.
// defaultBucket fills in s3:///key sources.
func ParseSource(src, defaultBucket string) (Location, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrInvalidSource)
	}
	if !strings.HasPrefix(src, SchemeS3) {
		return Location{Key: src}, nil
	}

	rest := strings.TrimPrefix(src, SchemeS3)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return Location{}, fmt.Errorf("%w: %s has no object key", ErrInvalidSource, src)
	}
	if bucket == "" {
		bucket = defaultBucket
	}
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %s names no bucket and none is configured", ErrInvalidSource, src)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Fetch returns the full payload at src.
func (s *Store) Fetch(ctx context.Context, src string) ([]byte, error) {
	loc, err := ParseSource(src, s.bucket)
	if err != nil {
		return nil, err
	}

	if !loc.IsRemote() {
		f, err := os.Open(loc.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", loc.Key, err)
		}
		defer f.Close()
		return s.readLimited(f, loc.Key)
	}

	if s.client == nil {
		return nil, ErrStorageNotConfigured
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("%w: s3://%s/%s is %d bytes", ErrTooLarge, loc.Bucket, loc.Key, *out.ContentLength)
	}

	data, err := s.readLimited(out.Body, src)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "fetched import payload",
		"bucket", loc.Bucket,
		"key", loc.Key,
		"bytes", len(data))
	return data, nil
}

func (s *Store) readLimited(r io.Reader, name string) ([]byte, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if n > s.maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, name)
	}
	return buf.Bytes(), nil
}
