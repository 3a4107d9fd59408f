package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"neofab/internal/core"
)

// S3BlobStore stores content as objects in an S3 bucket, keyed by
// <prefix><hash>. Credentials come from the default AWS credential chain
// (environment, shared config, instance role).
type S3BlobStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3BlobStore creates a blob store backed by the given bucket.
func NewS3BlobStore(ctx context.Context, bucket, prefix, region string) (*S3BlobStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3BlobStore{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

func (s *S3BlobStore) objectKey(key string) string {
	return s.prefix + key
}

// Put stores content under key. Uploading the same key again overwrites the
// object with identical bytes, so the operation stays idempotent.
func (s *S3BlobStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    stringPtr(s.objectKey(key)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload content %s: %w", key, err)
	}
	return nil
}

// Get retrieves content by key and writes it to w.
func (s *S3BlobStore) Get(ctx context.Context, key string, w io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    stringPtr(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("content not found: %s: %w", key, core.ErrNotFound)
		}
		return fmt.Errorf("failed to get content %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read content %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an object is stored under key.
func (s *S3BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    stringPtr(s.objectKey(key)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check content %s: %w", key, err)
	}
	return true, nil
}

// ValidateSetup verifies that the bucket is reachable.
func (s *S3BlobStore) ValidateSetup(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

func stringPtr(s string) *string {
	return &s
}

// Compile-time check that S3BlobStore implements core.BlobStore
var _ core.BlobStore = (*S3BlobStore)(nil)
