// Package memory provides an in-process implementation of cache.Store.
// It mirrors the postgres store's semantics (logical expiry before sweep,
// hit reset on overwrite, OR-matched tag deletion) and backs scenario tests
// and local load harness runs where a database round-trip is unwanted.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brightpath/lmscache/cache"
)

// Store is a mutex-guarded map implementation of cache.Store.
type Store struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
	now     func() time.Time
	closed  bool
}

var _ cache.Store = (*Store)(nil)

// NewStore creates an empty in-memory store using the wall clock.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates a store with an injected clock. Tests use this to
// simulate expiry without sleeping.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		entries: make(map[string]*cache.Entry),
		now:     now,
	}
}

// Read returns the entry for key, or cache.ErrNotFound when absent or expired.
func (s *Store) Read(_ context.Context, key string) (*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, cache.ErrClosed
	}

	entry, ok := s.entries[key]
	if !ok || entry.Expired(s.now()) {
		return nil, cache.ErrNotFound
	}

	cp := copyEntry(entry)
	return &cp, nil
}

// Write upserts the entry, replacing tags and resetting the hit count.
func (s *Store) Write(_ context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrClosed
	}

	now := s.now()
	s.entries[key] = &cache.Entry{
		Key:       key,
		Value:     append([]byte(nil), value...),
		Tags:      cache.NormalizeTags(tags),
		ExpiresAt: now.Add(ttl),
		HitCount:  0,
		CreatedAt: now,
	}
	return nil
}

// IncrementHit bumps the hit counter for a live entry. Missing or expired
// keys are ignored; the read that observed them already reported the miss.
func (s *Store) IncrementHit(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrClosed
	}

	if entry, ok := s.entries[key]; ok && !entry.Expired(s.now()) {
		entry.HitCount++
	}
	return nil
}

// DeleteByTags removes every entry whose tag set intersects tags.
func (s *Store) DeleteByTags(_ context.Context, tags []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, cache.ErrClosed
	}

	if len(tags) == 0 {
		return 0, nil
	}

	match := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		match[tag] = struct{}{}
	}

	var removed int64
	for key, entry := range s.entries {
		for _, tag := range entry.Tags {
			if _, ok := match[tag]; ok {
				delete(s.entries, key)
				removed++
				break
			}
		}
	}
	return removed, nil
}

// DeleteExpired sweeps rows past expiry.
func (s *Store) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, cache.ErrClosed
	}

	now := s.now()
	var removed int64
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Clear wipes all entries.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrClosed
	}

	s.entries = make(map[string]*cache.Entry)
	return nil
}

// TopEntries returns up to limit live entries by hit count descending,
// most recent creation first on ties.
func (s *Store) TopEntries(_ context.Context, limit int) ([]cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, cache.ErrClosed
	}

	now := s.now()
	top := make([]cache.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if !entry.Expired(now) {
			top = append(top, copyEntry(entry))
		}
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].HitCount != top[j].HitCount {
			return top[i].HitCount > top[j].HitCount
		}
		return top[i].CreatedAt.After(top[j].CreatedAt)
	})

	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// Snapshot computes aggregate metrics over the current population.
func (s *Store) Snapshot(_ context.Context) (cache.MetricsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.MetricsSnapshot{}, cache.ErrClosed
	}

	now := s.now()
	var snapshot cache.MetricsSnapshot
	var totalHits int64

	for _, entry := range s.entries {
		if entry.Expired(now) {
			snapshot.ExpiredEntries++
			continue
		}
		snapshot.TotalEntries++
		snapshot.TotalBytes += int64(len(entry.Value))
		totalHits += entry.HitCount
		if entry.HitCount > snapshot.MaxHits {
			snapshot.MaxHits = entry.HitCount
		}
		if entry.HitCount > 0 {
			snapshot.ReusedEntries++
		}
	}

	if snapshot.TotalEntries > 0 {
		snapshot.AverageHits = float64(totalHits) / float64(snapshot.TotalEntries)
	}
	return snapshot, nil
}

// Health reports whether the store is usable.
func (s *Store) Health(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrClosed
	}
	return nil
}

// Close marks the store unusable. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func copyEntry(entry *cache.Entry) cache.Entry {
	cp := *entry
	cp.Value = append([]byte(nil), entry.Value...)
	cp.Tags = append([]string(nil), entry.Tags...)
	return cp
}
