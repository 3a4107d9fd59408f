package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"neofab/internal/core"
)

// FileSystemBlobStore stores content as files named by their key under a
// single root directory:
//
//	<root>/
//	  content/
//	    <hash>     (content files, named by SHA-256)
type FileSystemBlobStore struct {
	root       string
	contentDir string
}

// NewFileSystemBlobStore creates a new filesystem blob store rooted at the
// given path.
func NewFileSystemBlobStore(root string) (*FileSystemBlobStore, error) {
	contentDir := filepath.Join(root, "content")

	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	return &FileSystemBlobStore{
		root:       root,
		contentDir: contentDir,
	}, nil
}

// Put stores content under key.
// The operation is idempotent: storing the same key multiple times is safe.
func (s *FileSystemBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	destPath := filepath.Join(s.contentDir, key)

	// If content already exists, skip (idempotent)
	if _, err := os.Stat(destPath); err == nil {
		// Consume the reader to maintain expected behavior
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return s.writeFile(destPath, r, size)
}

// Get retrieves content by key and writes it to w.
func (s *FileSystemBlobStore) Get(ctx context.Context, key string, w io.Writer) error {
	srcPath := filepath.Join(s.contentDir, key)

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("content not found: %s: %w", key, core.ErrNotFound)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return nil
}

// Exists reports whether content is stored under key.
func (s *FileSystemBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.contentDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat content: %w", err)
	}
	return true, nil
}

// ValidateSetup verifies that the store directories are accessible.
func (s *FileSystemBlobStore) ValidateSetup(ctx context.Context) error {
	for _, dir := range []string{s.root, s.contentDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("blob store directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("blob store path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (s *FileSystemBlobStore) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemBlobStore implements core.BlobStore
var _ core.BlobStore = (*FileSystemBlobStore)(nil)
