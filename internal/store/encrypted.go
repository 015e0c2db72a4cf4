package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"wt-go/internal/wt"
)

// EncryptedStore encrypts objects before they reach the inner store. Reads
// need a DecryptionContext; without one, Get fails and listing still works.
type EncryptedStore struct {
	inner     wt.ObjectStore
	encryptor wt.Encryptor
	decryptor wt.DecryptionContext
}

// NewEncryptedStore wraps inner. dc may be nil for write-only use.
func NewEncryptedStore(inner wt.ObjectStore, enc wt.Encryptor, dc wt.DecryptionContext) *EncryptedStore {
	return &EncryptedStore{inner: inner, encryptor: enc, decryptor: dc}
}

// Put encrypts the object in memory, then stores the ciphertext. The content
// type is replaced since the stored bytes are no longer JSON.
func (s *EncryptedStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	var sealed bytes.Buffer
	if err := s.encryptor.Encrypt(r, &sealed); err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	return s.inner.Put(ctx, key, &sealed, int64(sealed.Len()), "application/octet-stream")
}

// Get fetches the ciphertext and writes the decrypted object to w.
func (s *EncryptedStore) Get(ctx context.Context, key string, w io.Writer) error {
	if err := s.readable(); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}

	var sealed bytes.Buffer
	if err := s.inner.Get(ctx, key, &sealed); err != nil {
		return err
	}
	if err := s.decryptor.Decrypt(&sealed, w); err != nil {
		return fmt.Errorf("decrypting %s: %w", key, err)
	}
	return nil
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// List fails while the store cannot decrypt: every object would be
// unreadable, and an empty listing would hide that.
func (s *EncryptedStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	return s.inner.List(ctx, prefix)
}

// ValidateSetup checks the keys as well as the inner store.
func (s *EncryptedStore) ValidateSetup(ctx context.Context) error {
	if !s.encryptor.IsConfigured() {
		return errKeysMissing
	}
	return s.inner.ValidateSetup(ctx)
}

var errKeysMissing = fmt.Errorf("%w: encryption keys not found; run `wt config keys init`", wt.ErrConfiguration)

// readable reports why objects cannot be decrypted, if they cannot.
func (s *EncryptedStore) readable() error {
	if !s.encryptor.IsConfigured() {
		return errKeysMissing
	}
	if s.decryptor == nil {
		return fmt.Errorf("%w: store is locked, no passphrase was given", wt.ErrConfiguration)
	}
	return nil
}

var _ wt.ObjectStore = (*EncryptedStore)(nil)
