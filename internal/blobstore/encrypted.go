package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"neofab/internal/core"
)

// EncryptedBlobStore wraps another BlobStore and encrypts content at rest.
// Keys stay derived from the plaintext hash, so deduplication still works.
// Uploads only need the public key; downloads require Unlock first.
type EncryptedBlobStore struct {
	inner     core.BlobStore
	encryptor core.Encryptor
	decCtx    core.DecryptionContext
}

// NewEncryptedBlobStore wraps inner with at-rest encryption.
func NewEncryptedBlobStore(inner core.BlobStore, encryptor core.Encryptor) *EncryptedBlobStore {
	return &EncryptedBlobStore{inner: inner, encryptor: encryptor}
}

// Unlock prepares the store for decryption using the key passphrase.
// Required before Get; Put works without it.
func (s *EncryptedBlobStore) Unlock(passphrase string) error {
	decCtx, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking blob store: %w", err)
	}
	s.decCtx = decCtx
	return nil
}

// Put encrypts the content and stores the ciphertext under key.
// The ciphertext is buffered because its size is only known after encryption;
// attachment uploads are already size-bounded upstream.
func (s *EncryptedBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	var ciphertext bytes.Buffer
	if err := s.encryptor.Encrypt(r, &ciphertext); err != nil {
		return fmt.Errorf("encrypting content %s: %w", key, err)
	}
	return s.inner.Put(ctx, key, &ciphertext, int64(ciphertext.Len()))
}

// Get retrieves the ciphertext under key, decrypts it and writes the
// plaintext to w. Fails if the store has not been unlocked.
func (s *EncryptedBlobStore) Get(ctx context.Context, key string, w io.Writer) error {
	if s.decCtx == nil {
		return fmt.Errorf("blob store is locked: unlock with the key passphrase first")
	}

	var ciphertext bytes.Buffer
	if err := s.inner.Get(ctx, key, &ciphertext); err != nil {
		return err
	}
	if err := s.decCtx.Decrypt(&ciphertext, w); err != nil {
		return fmt.Errorf("decrypting content %s: %w", key, err)
	}
	return nil
}

// Exists reports whether content is stored under key.
func (s *EncryptedBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.inner.Exists(ctx, key)
}

// ValidateSetup verifies both the backend and the key material.
func (s *EncryptedBlobStore) ValidateSetup(ctx context.Context) error {
	if !s.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys not configured")
	}
	return s.inner.ValidateSetup(ctx)
}

// Compile-time check that EncryptedBlobStore implements core.BlobStore
var _ core.BlobStore = (*EncryptedBlobStore)(nil)
