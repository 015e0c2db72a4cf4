package wt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPrefix is the key prefix (folder) all entries live under.
	DefaultPrefix = "data/"

	entrySuffix      = ".json"
	entryContentType = "application/json"

	// fetchConcurrency bounds parallel object fetches during ListAll.
	fetchConcurrency = 8
)

// EntryStore maps measurement entries onto an ObjectStore, one object per entry
// at {prefix}{id}.json. The object store itself is the index: reading "all"
// entries means enumerating the prefix and fetching every object.
//
// A nil store means the namespace is not configured; every operation then
// fails with ErrConfiguration.
type EntryStore struct {
	store  ObjectStore
	prefix string
	logger Logger
}

// NewEntryStore creates an EntryStore. An empty prefix selects DefaultPrefix.
func NewEntryStore(store ObjectStore, prefix string, logger Logger) *EntryStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &EntryStore{store: store, prefix: prefix, logger: logger}
}

// Key returns the object key for id.
func (s *EntryStore) Key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10) + entrySuffix
}

// Prefix returns the namespace prefix.
func (s *EntryStore) Prefix() string {
	return s.prefix
}

// Configured reports whether a backing store is available.
func (s *EntryStore) Configured() bool {
	return s.store != nil
}

// Save writes entry under its key, replacing any existing object.
func (s *EntryStore) Save(ctx context.Context, entry *MeasurementEntry) error {
	if s.store == nil {
		return ErrConfiguration
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry %d: %w", entry.ID, err)
	}

	key := s.Key(entry.ID)
	if err := s.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), entryContentType); err != nil {
		s.logger.Error("saving entry failed", "key", key, "error", err)
		return fmt.Errorf("saving entry %d: %w: %w", entry.ID, ErrStorageUnavailable, err)
	}

	s.logger.Info("entry saved", "key", key)
	return nil
}

// ListAll returns every readable entry under the prefix, in no particular order.
//
// Objects that cannot be fetched or decoded are dropped from the result and
// logged; one corrupt record never blocks the rest. Only a failing enumeration
// is reported as an error. An empty namespace yields an empty, non-nil slice.
func (s *EntryStore) ListAll(ctx context.Context) ([]*MeasurementEntry, error) {
	if s.store == nil {
		return nil, ErrConfiguration
	}

	keys, err := s.store.List(ctx, s.prefix)
	if err != nil {
		s.logger.Error("listing entries failed", "prefix", s.prefix, "error", err)
		return nil, fmt.Errorf("listing entries: %w: %w", ErrStorageUnavailable, err)
	}

	candidates := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == s.prefix || !strings.HasSuffix(k, entrySuffix) {
			continue
		}
		candidates = append(candidates, k)
	}

	fetched := make([]*MeasurementEntry, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, key := range candidates {
		g.Go(func() error {
			entry, err := s.fetch(gctx, key)
			if err != nil {
				s.logger.Warn("skipping unreadable entry", "key", key, "error", err)
				return nil
			}
			fetched[i] = entry
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	entries := make([]*MeasurementEntry, 0, len(fetched))
	for _, e := range fetched {
		if e != nil {
			entries = append(entries, e)
		}
	}

	s.logger.Debug("entries listed", "listed", len(candidates), "readable", len(entries))
	return entries, nil
}

// fetch reads and decodes a single entry object.
func (s *EntryStore) fetch(ctx context.Context, key string) (*MeasurementEntry, error) {
	var buf bytes.Buffer
	if err := s.store.Get(ctx, key, &buf); err != nil {
		return nil, fmt.Errorf("fetching object: %w", err)
	}

	var entry *MeasurementEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("decoding object: %w", err)
	}
	if entry == nil {
		return nil, errors.New("decoding object: null entry")
	}
	return entry, nil
}

// Delete removes the entry with the given id. A missing entry is not an error.
func (s *EntryStore) Delete(ctx context.Context, id int64) error {
	if s.store == nil {
		return ErrConfiguration
	}

	key := s.Key(id)
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error("deleting entry failed", "key", key, "error", err)
		return fmt.Errorf("deleting entry %d: %w: %w", id, ErrStorageUnavailable, err)
	}

	s.logger.Info("entry deleted", "key", key)
	return nil
}
