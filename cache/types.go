// Package cache implements the application cache for the learning platform:
// a tag-aware, TTL-bound cache-aside layer persisted in the primary database
// rather than an external cache store.
//
// Callers go through Service and the generic WithCache helper; the Store
// interface abstracts the backing table so the postgres and in-memory
// implementations stay interchangeable.
//
// Example usage:
//
//	svc := cache.NewService(store, log)
//	sessions, err := cache.WithCache(ctx, svc, cache.ExpertSessionsKey(productID),
//	    cache.Options{TTL: cache.TTLMedium, Tags: cache.ExpertSessionTags()},
//	    func(ctx context.Context) ([]Session, error) {
//	        return repo.ListSessions(ctx, productID)
//	    })
package cache

import (
	"context"
	"time"
)

// Entry is a single cached value with its bookkeeping metadata.
// Value is opaque to the cache; it is stored and returned verbatim.
type Entry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	Tags      []string  `json:"tags"`
	ExpiresAt time.Time `json:"expires_at"`
	HitCount  int64     `json:"hit_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the entry is logically absent at the given instant.
// A row past its expiry must never be served, even if it has not been swept.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// MetricsSnapshot holds aggregate counts computed over the current entry
// population. It is derived on demand and never persisted.
type MetricsSnapshot struct {
	// TotalEntries counts live (unexpired) entries.
	TotalEntries int64 `json:"total_entries"`
	// AverageHits is the mean hit count across live entries.
	AverageHits float64 `json:"average_hits"`
	// MaxHits is the highest hit count among live entries.
	MaxHits int64 `json:"max_hits"`
	// ReusedEntries counts live entries served at least once after creation.
	ReusedEntries int64 `json:"reused_entries"`
	// ExpiredEntries counts rows past expiry that no sweep has removed yet.
	ExpiredEntries int64 `json:"expired_entries"`
	// TotalBytes is the approximate payload size of live entries.
	TotalBytes int64 `json:"total_bytes"`
}

// Stats is the operator-facing statistics block: hit rate as a percentage of
// entries ever reused, the hottest entries, and when the numbers were taken.
type Stats struct {
	HitRate     float64   `json:"hit_rate"`
	TopEntries  []Entry   `json:"top_entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Store is the durable key-value table backing the cache. Implementations
// must be safe for concurrent use and must treat expired rows as absent
// without requiring a prior sweep.
type Store interface {
	// Read returns the entry for key, or ErrNotFound if it is absent or expired.
	Read(ctx context.Context, key string) (*Entry, error)

	// Write upserts an entry with expires_at = now + ttl. Tags are replaced
	// and the hit count is reset: an overwrite starts a fresh lifetime.
	Write(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error

	// IncrementHit bumps the hit counter for key. Lost increments under heavy
	// concurrency are tolerable; a corrupted or negative counter is not.
	IncrementHit(ctx context.Context, key string) error

	// DeleteByTags removes every entry whose tag set intersects tags
	// (OR semantics) and returns the number of entries removed.
	// An empty tag list removes nothing.
	DeleteByTags(ctx context.Context, tags []string) (int64, error)

	// DeleteExpired removes all rows past expiry and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)

	// Clear wipes the whole table. Reserved for emergency maintenance.
	Clear(ctx context.Context) error

	// TopEntries returns up to limit entries ordered by hit count descending,
	// ties broken by most recent creation. Each call is a fresh snapshot.
	TopEntries(ctx context.Context, limit int) ([]Entry, error)

	// Snapshot computes the aggregate metrics over the current population.
	Snapshot(ctx context.Context) (MetricsSnapshot, error)

	// Health checks connectivity to the backing store.
	Health(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
