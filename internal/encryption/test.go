package encryption

import (
	"bytes"
	"fmt"
	"io"

	"wt-go/internal/wt"
)

// testHeader marks objects written by TestEncryptor.
var testHeader = []byte("WTENC\x00\x00\x00")

// TestEncryptor prepends a fixed header on encrypt and strips it on decrypt.
// Stored objects stop looking like plain JSON without any real crypto,
// which is all the tests need.
type TestEncryptor struct{}

var _ wt.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(string) error { return nil }

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(string) (wt.DecryptionContext, error) {
	return testDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

type testDecryptionContext struct{}

func (testDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
