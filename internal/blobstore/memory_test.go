package blobstore

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestMemoryBlobStore_PutGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryBlobStore()

	content := []byte("solid cube v1")
	if err := s.Put(ctx, "hash-1", bytes.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var got bytes.Buffer
	if err := s.Get(ctx, "hash-1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got.Bytes(), content) {
		t.Errorf("Get() = %q, want %q", got.Bytes(), content)
	}
}

func TestMemoryBlobStore_PutIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryBlobStore()

	content := []byte("same bytes")
	for i := 0; i < 2; i++ {
		if err := s.Put(ctx, "hash-1", bytes.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("Put() #%d error = %v", i+1, err)
		}
	}

	var got bytes.Buffer
	if err := s.Get(ctx, "hash-1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got.Bytes(), content) {
		t.Errorf("Get() = %q, want %q", got.Bytes(), content)
	}
}

func TestMemoryBlobStore_PutSizeMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryBlobStore()

	err := s.Put(ctx, "hash-1", strings.NewReader("abc"), 99)
	if err == nil {
		t.Fatal("Put() with wrong size expected error")
	}
}

func TestMemoryBlobStore_GetMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryBlobStore()

	var buf bytes.Buffer
	if err := s.Get(ctx, "no-such-hash", &buf); err == nil {
		t.Fatal("Get() of missing key expected error")
	}
}

func TestMemoryBlobStore_Exists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryBlobStore()

	ok, err := s.Exists(ctx, "hash-1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("Exists() = true before Put, want false")
	}

	if err := s.Put(ctx, "hash-1", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	ok, err = s.Exists(ctx, "hash-1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !ok {
		t.Error("Exists() = false after Put, want true")
	}
}
