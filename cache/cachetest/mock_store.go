// Package cachetest provides a configurable cache.Store double for tests.
//
// MockStore keeps real entries in an in-memory store, tracks per-operation
// call counts, and can be told to fail or delay specific operations to
// exercise degraded paths.
package cachetest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/cache/memory"
)

// MockStore implements cache.Store with injectable failures and call tracking.
type MockStore struct {
	backing *memory.Store
	delay   time.Duration

	readErr      error
	writeErr     error
	hitErr       error
	deleteErr    error
	expireErr    error
	clearErr     error
	topErr       error
	snapshotErr  error
	healthErr    error

	ReadCalls     atomic.Int64
	WriteCalls    atomic.Int64
	HitCalls      atomic.Int64
	DeleteCalls   atomic.Int64
	ExpireCalls   atomic.Int64
	ClearCalls    atomic.Int64
	TopCalls      atomic.Int64
	SnapshotCalls atomic.Int64
	HealthCalls   atomic.Int64
}

var _ cache.Store = (*MockStore)(nil)

// NewMockStore creates a mock store with no failures configured.
func NewMockStore() *MockStore {
	return &MockStore{backing: memory.NewStore()}
}

// NewMockStoreWithClock creates a mock store over a simulated clock.
func NewMockStoreWithClock(now func() time.Time) *MockStore {
	return &MockStore{backing: memory.NewStoreWithClock(now)}
}

// Fluent failure/delay configuration.

// WithReadError makes Read fail with err.
func (m *MockStore) WithReadError(err error) *MockStore { m.readErr = err; return m }

// WithWriteError makes Write fail with err.
func (m *MockStore) WithWriteError(err error) *MockStore { m.writeErr = err; return m }

// WithIncrementHitError makes IncrementHit fail with err.
func (m *MockStore) WithIncrementHitError(err error) *MockStore { m.hitErr = err; return m }

// WithDeleteByTagsError makes DeleteByTags fail with err.
func (m *MockStore) WithDeleteByTagsError(err error) *MockStore { m.deleteErr = err; return m }

// WithDeleteExpiredError makes DeleteExpired fail with err.
func (m *MockStore) WithDeleteExpiredError(err error) *MockStore { m.expireErr = err; return m }

// WithClearError makes Clear fail with err.
func (m *MockStore) WithClearError(err error) *MockStore { m.clearErr = err; return m }

// WithTopEntriesError makes TopEntries fail with err.
func (m *MockStore) WithTopEntriesError(err error) *MockStore { m.topErr = err; return m }

// WithSnapshotError makes Snapshot fail with err.
func (m *MockStore) WithSnapshotError(err error) *MockStore { m.snapshotErr = err; return m }

// WithHealthError makes Health fail with err.
func (m *MockStore) WithHealthError(err error) *MockStore { m.healthErr = err; return m }

// WithDelay adds a fixed delay to every operation. Useful for latency tests.
func (m *MockStore) WithDelay(d time.Duration) *MockStore { m.delay = d; return m }

// Seed writes an entry directly into the backing store, bypassing error
// injection. Panics on failure to keep test setup terse.
func (m *MockStore) Seed(key string, value []byte, ttl time.Duration, tags []string) {
	if err := m.backing.Write(context.Background(), key, value, ttl, tags); err != nil {
		panic("cachetest: seed failed: " + err.Error())
	}
}

func (m *MockStore) pause() {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
}

// Read implements cache.Store.
func (m *MockStore) Read(ctx context.Context, key string) (*cache.Entry, error) {
	m.ReadCalls.Add(1)
	m.pause()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.backing.Read(ctx, key)
}

// Write implements cache.Store.
func (m *MockStore) Write(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	m.WriteCalls.Add(1)
	m.pause()
	if m.writeErr != nil {
		return m.writeErr
	}
	return m.backing.Write(ctx, key, value, ttl, tags)
}

// IncrementHit implements cache.Store.
func (m *MockStore) IncrementHit(ctx context.Context, key string) error {
	m.HitCalls.Add(1)
	m.pause()
	if m.hitErr != nil {
		return m.hitErr
	}
	return m.backing.IncrementHit(ctx, key)
}

// DeleteByTags implements cache.Store.
func (m *MockStore) DeleteByTags(ctx context.Context, tags []string) (int64, error) {
	m.DeleteCalls.Add(1)
	m.pause()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.backing.DeleteByTags(ctx, tags)
}

// DeleteExpired implements cache.Store.
func (m *MockStore) DeleteExpired(ctx context.Context) (int64, error) {
	m.ExpireCalls.Add(1)
	m.pause()
	if m.expireErr != nil {
		return 0, m.expireErr
	}
	return m.backing.DeleteExpired(ctx)
}

// Clear implements cache.Store.
func (m *MockStore) Clear(ctx context.Context) error {
	m.ClearCalls.Add(1)
	m.pause()
	if m.clearErr != nil {
		return m.clearErr
	}
	return m.backing.Clear(ctx)
}

// TopEntries implements cache.Store.
func (m *MockStore) TopEntries(ctx context.Context, limit int) ([]cache.Entry, error) {
	m.TopCalls.Add(1)
	m.pause()
	if m.topErr != nil {
		return nil, m.topErr
	}
	return m.backing.TopEntries(ctx, limit)
}

// Snapshot implements cache.Store.
func (m *MockStore) Snapshot(ctx context.Context) (cache.MetricsSnapshot, error) {
	m.SnapshotCalls.Add(1)
	m.pause()
	if m.snapshotErr != nil {
		return cache.MetricsSnapshot{}, m.snapshotErr
	}
	return m.backing.Snapshot(ctx)
}

// Health implements cache.Store.
func (m *MockStore) Health(ctx context.Context) error {
	m.HealthCalls.Add(1)
	if m.healthErr != nil {
		return m.healthErr
	}
	return m.backing.Health(ctx)
}

// Close implements cache.Store.
func (m *MockStore) Close() error {
	return m.backing.Close()
}
