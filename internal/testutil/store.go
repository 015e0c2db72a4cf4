package testutil

import (
	"context"
	"io"
	"sync"

	"wt-go/internal/store"
	"wt-go/internal/wt"
)

// NewTestStore creates a new in-memory object store for testing.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore("test-store")
}

// FaultyStore wraps an ObjectStore and fails selected operations.
// A non-nil Gate makes Put and Delete block until it is closed, which lets
// tests observe in-flight state.
type FaultyStore struct {
	wt.ObjectStore

	mu        sync.Mutex
	PutErr    error
	ListErr   error
	DeleteErr error
	GetErrs   map[string]error
	Gate      chan struct{}
}

// NewFaultyStore wraps inner with no faults configured.
func NewFaultyStore(inner wt.ObjectStore) *FaultyStore {
	return &FaultyStore{ObjectStore: inner, GetErrs: make(map[string]error)}
}

// Set runs fn with the store locked so faults can be changed mid-test.
func (f *FaultyStore) Set(fn func(f *FaultyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *FaultyStore) wait(ctx context.Context) {
	f.mu.Lock()
	gate := f.Gate
	f.mu.Unlock()
	if gate == nil {
		return
	}
	select {
	case <-gate:
	case <-ctx.Done():
	}
}

func (f *FaultyStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.wait(ctx)
	f.mu.Lock()
	err := f.PutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.Put(ctx, key, r, size, contentType)
}

func (f *FaultyStore) Get(ctx context.Context, key string, w io.Writer) error {
	f.mu.Lock()
	err := f.GetErrs[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.Get(ctx, key, w)
}

func (f *FaultyStore) List(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	err := f.ListErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.ObjectStore.List(ctx, prefix)
}

func (f *FaultyStore) Delete(ctx context.Context, key string) error {
	f.wait(ctx)
	f.mu.Lock()
	err := f.DeleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.Delete(ctx, key)
}

// RecordingPublisher keeps every published event. Safe for concurrent use.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []wt.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, ev wt.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Events returns a copy of the events published so far.
func (p *RecordingPublisher) Events() []wt.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wt.Event(nil), p.events...)
}
