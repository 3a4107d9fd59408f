package blobstore

import (
	"context"
	"testing"

	"neofab/internal/config"
	"neofab/internal/encryption"
)

func TestNewBlobStoreFromConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		s, err := NewBlobStoreFromConfig(ctx, config.BlobStoreConfig{Type: "memory"}, nil)
		if err != nil {
			t.Fatalf("NewBlobStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*MemoryBlobStore); !ok {
			t.Errorf("got %T, want *MemoryBlobStore", s)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		t.Parallel()
		s, err := NewBlobStoreFromConfig(ctx, config.BlobStoreConfig{Type: "filesystem", FSRoot: t.TempDir()}, nil)
		if err != nil {
			t.Fatalf("NewBlobStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*FileSystemBlobStore); !ok {
			t.Errorf("got %T, want *FileSystemBlobStore", s)
		}
	})

	t.Run("filesystem requires fs_root", func(t *testing.T) {
		t.Parallel()
		_, err := NewBlobStoreFromConfig(ctx, config.BlobStoreConfig{Type: "filesystem"}, nil)
		if err == nil {
			t.Fatal("expected error for missing fs_root")
		}
	})

	t.Run("s3 requires s3_bucket", func(t *testing.T) {
		t.Parallel()
		_, err := NewBlobStoreFromConfig(ctx, config.BlobStoreConfig{Type: "s3"}, nil)
		if err == nil {
			t.Fatal("expected error for missing s3_bucket")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()
		_, err := NewBlobStoreFromConfig(ctx, config.BlobStoreConfig{Type: "tape"}, nil)
		if err == nil {
			t.Fatal("expected error for unknown type")
		}
	})

	t.Run("encryptor wraps the backend", func(t *testing.T) {
		t.Parallel()
		s, err := NewBlobStoreFromConfig(ctx, config.BlobStoreConfig{Type: "memory"}, encryption.NewTestEncryptor())
		if err != nil {
			t.Fatalf("NewBlobStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*EncryptedBlobStore); !ok {
			t.Errorf("got %T, want *EncryptedBlobStore", s)
		}
	})
}
