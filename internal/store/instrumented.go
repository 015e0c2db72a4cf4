package store

import (
	"context"
	"errors"
	"io"
	"time"

	"wt-go/internal/wt"
)

// Observer receives one call per store operation.
type Observer interface {
	ObserveStoreOp(op string, duration time.Duration, err error)
}

// InstrumentedStore reports latency and outcome of every call to an Observer.
// A missing object is not counted as a failure.
type InstrumentedStore struct {
	inner    wt.ObjectStore
	observer Observer
	clock    wt.Clock
}

// NewInstrumentedStore wraps inner.
func NewInstrumentedStore(inner wt.ObjectStore, obs Observer, clock wt.Clock) *InstrumentedStore {
	if clock == nil {
		clock = &wt.RealClock{}
	}
	return &InstrumentedStore{inner: inner, observer: obs, clock: clock}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	if errors.Is(err, wt.ErrObjectNotFound) {
		err = nil
	}
	s.observer.ObserveStoreOp(op, s.clock.Now().Sub(start), err)
}

func (s *InstrumentedStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	start := s.clock.Now()
	err := s.inner.Put(ctx, key, r, size, contentType)
	s.observe("put", start, err)
	return err
}

func (s *InstrumentedStore) Get(ctx context.Context, key string, w io.Writer) error {
	start := s.clock.Now()
	err := s.inner.Get(ctx, key, w)
	s.observe("get", start, err)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := s.clock.Now()
	err := s.inner.Delete(ctx, key)
	s.observe("delete", start, err)
	return err
}

func (s *InstrumentedStore) List(ctx context.Context, prefix string) ([]string, error) {
	start := s.clock.Now()
	keys, err := s.inner.List(ctx, prefix)
	s.observe("list", start, err)
	return keys, err
}

func (s *InstrumentedStore) ValidateSetup(ctx context.Context) error {
	return s.inner.ValidateSetup(ctx)
}

var _ wt.ObjectStore = (*InstrumentedStore)(nil)
