package blobstore

import (
	"context"
	"fmt"

	"neofab/internal/config"
	"neofab/internal/core"
)

// NewBlobStoreFromConfig creates a BlobStore implementation based on the
// blobstore config type. When encryptor is non-nil the store is wrapped with
// at-rest encryption.
func NewBlobStoreFromConfig(ctx context.Context, cfg config.BlobStoreConfig, encryptor core.Encryptor) (core.BlobStore, error) {
	inner, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if encryptor == nil {
		return inner, nil
	}
	return NewEncryptedBlobStore(inner, encryptor), nil
}

func newBackend(ctx context.Context, cfg config.BlobStoreConfig) (core.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBlobStore(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem blob store requires fs_root to be set")
		}
		return NewFileSystemBlobStore(cfg.FSRoot)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 blob store requires s3_bucket to be set")
		}
		return NewS3BlobStore(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
