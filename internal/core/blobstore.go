package core

import (
	"context"
	"io"
)

// BlobStore is content-addressed storage for attachment bytes. Keys are the
// SHA-256 of the (plaintext) content. All operations stream through
// io.Reader/io.Writer so large model files never sit in memory twice.
type BlobStore interface {
	// Put stores content under key. Storing the same key again is a no-op;
	// the reader is still consumed. size is the byte count r will yield.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the content stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// Exists reports whether content is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// ValidateSetup verifies the backend is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
