package wt

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by ObjectStore.Get when no object exists at the key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the key/value contract of the backing object store.
// Keys are slash-separated strings; a prefix acts as a folder.
type ObjectStore interface {
	// Put stores size bytes read from r at key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get writes the object at key to w. Returns ErrObjectNotFound if it does not exist.
	Get(ctx context.Context, key string, w io.Writer) error

	// Delete removes the object at key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// List returns every key that starts with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)

	// ValidateSetup verifies that the store is reachable and properly configured.
	ValidateSetup(ctx context.Context) error
}
