package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/brightpath/lmscache/logger"
)

// Options configures a single cache write: how long the value lives and which
// invalidation groups it belongs to.
type Options struct {
	TTL  time.Duration
	Tags []string
}

// FetchFunc computes a fresh value on a cache miss. It may be arbitrarily
// slow and should honor ctx cancellation. Because concurrent misses on the
// same key are not coalesced, fetch functions must be idempotent.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Service is the public cache API. It is constructed once at process start
// with an injected store and passed by reference to request handlers; there
// is deliberately no package-level shared instance.
//
// Store failures never propagate to end users: reads degrade to a direct
// fetch, and write-side failures are logged and swallowed. The cache is an
// optimization, not a correctness dependency.
type Service struct {
	store Store
	log   logger.Logger

	// Degradation counters feeding the health analyzer.
	fallbacks atomic.Int64
	readCount atomic.Int64
	readNanos atomic.Int64
}

// NewService creates a cache service over the given store.
func NewService(store Store, log logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// WithCache implements the cache-aside read path for key.
//
// On a hit the stored value is decoded and returned and fetch is not invoked;
// the hit counter is bumped best-effort. On a miss fetch runs, its result is
// written back with opts and returned. A fetch error propagates uncached.
// A failing store is treated as a miss: the caller gets fresh data and the
// degradation is logged and counted.
func WithCache[T any](ctx context.Context, s *Service, key string, opts Options, fetch FetchFunc[T]) (T, error) {
	var zero T

	if err := validateKey(key); err != nil {
		return zero, err
	}
	if opts.TTL <= 0 {
		return zero, ErrInvalidTTL
	}

	start := time.Now()
	entry, err := s.store.Read(ctx, key)
	s.observeRead(time.Since(start))

	switch {
	case err == nil:
		if err := s.store.IncrementHit(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to increment cache hit count")
		}
		v, decodeErr := Unmarshal[T](entry.Value)
		if decodeErr == nil {
			return v, nil
		}
		// Undecodable payload, e.g. after a type change. Treat as a miss.
		s.log.Warn().Err(decodeErr).Str("key", key).Msg("Discarding undecodable cache entry")
	case errors.Is(err, ErrNotFound):
		// Plain miss.
	default:
		s.fallbacks.Add(1)
		s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, falling back to direct fetch")
	}

	v, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	data, err := Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Skipping cache write for unserializable value")
		return v, nil
	}

	if err := s.store.Write(ctx, key, data, opts.TTL, NormalizeTags(opts.Tags)); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache write failed, returning fresh value")
	}

	return v, nil
}

// GetData reads a cached value without a fetch fallback. The second return
// value reports whether the key was present and unexpired. Store failures
// count as misses.
func GetData[T any](ctx context.Context, s *Service, key string) (T, bool, error) {
	var zero T

	if err := validateKey(key); err != nil {
		return zero, false, err
	}

	start := time.Now()
	entry, err := s.store.Read(ctx, key)
	s.observeRead(time.Since(start))

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.fallbacks.Add(1)
			s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return zero, false, nil
	}

	if err := s.store.IncrementHit(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to increment cache hit count")
	}

	v, err := Unmarshal[T](entry.Value)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// SetData stores a value directly, replacing any existing entry for key.
// The entry's hit count starts over at zero.
func SetData[T any](ctx context.Context, s *Service, key string, v T, opts Options) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if opts.TTL <= 0 {
		return ErrInvalidTTL
	}

	data, err := Marshal(v)
	if err != nil {
		return err
	}

	return s.store.Write(ctx, key, data, opts.TTL, NormalizeTags(opts.Tags))
}

// StudentProgress caches a student's overall progress under the standard key
// and tag scheme.
func StudentProgress[T any](ctx context.Context, s *Service, studentID string, fetch FetchFunc[T]) (T, error) {
	return WithCache(ctx, s, StudentProgressKey(studentID),
		Options{TTL: TTLMedium, Tags: StudentProgressTags()}, fetch)
}

// StudentModuleProgress caches a student's progress within a single module.
func StudentModuleProgress[T any](ctx context.Context, s *Service, studentID, moduleID string, fetch FetchFunc[T]) (T, error) {
	return WithCache(ctx, s, StudentProgressKey(studentID, moduleID),
		Options{TTL: TTLMedium, Tags: append(StudentProgressTags(), ModuleDataTags()...)}, fetch)
}

// ExpertSessions caches the expert session stats for a product, or the
// cross-product aggregate when productID is empty.
func ExpertSessions[T any](ctx context.Context, s *Service, productID string, fetch FetchFunc[T]) (T, error) {
	return WithCache(ctx, s, ExpertSessionsKey(productID),
		Options{TTL: TTLMedium, Tags: ExpertSessionTags()}, fetch)
}

// ProductPerformance caches product performance analytics for a client, or
// the global view when clientID is empty. Analytics are expensive to derive,
// so these live longer than the default.
func ProductPerformance[T any](ctx context.Context, s *Service, clientID string, fetch FetchFunc[T]) (T, error) {
	return WithCache(ctx, s, ProductPerformanceKey(clientID),
		Options{TTL: TTLLong, Tags: ProductPerformanceTags()}, fetch)
}

// Invalidate removes every entry carrying any of the given tags and returns
// the number of entries purged. An empty tag list is a no-op, never a wipe.
func (s *Service) Invalidate(ctx context.Context, tags []string) (int64, error) {
	normalized := NormalizeTags(tags)
	if len(normalized) == 0 {
		return 0, nil
	}

	count, err := s.store.DeleteByTags(ctx, normalized)
	if err != nil {
		return 0, err
	}

	s.log.Debug().Int64("purged", count).Interface("tags", normalized).Msg("Invalidated cache entries by tag")
	return count, nil
}

// DeleteExpired sweeps rows past expiry and returns the count removed.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx)
}

// Clear wipes the entire cache table. Callers gate this behind explicit
// operator confirmation.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Health reports whether the backing store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

// Metrics computes the aggregate metrics snapshot from the store.
func (s *Service) Metrics(ctx context.Context) (MetricsSnapshot, error) {
	return s.store.Snapshot(ctx)
}

// Stats returns the operator statistics block: hit rate, the topN hottest
// entries and a generation timestamp. Hit rate is the percentage of live
// entries that have been served at least once; zero totals yield a zero rate.
func (s *Service) Stats(ctx context.Context, topN int) (Stats, error) {
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}

	top, err := s.store.TopEntries(ctx, topN)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		HitRate:     HitRate(snapshot),
		TopEntries:  top,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// HitRate computes the reuse percentage for a snapshot, guarding the empty
// population.
func HitRate(snapshot MetricsSnapshot) float64 {
	if snapshot.TotalEntries == 0 {
		return 0
	}
	return float64(snapshot.ReusedEntries) / float64(snapshot.TotalEntries) * 100
}

// FallbackEvents returns how many reads were answered by direct computation
// because the store was unavailable.
func (s *Service) FallbackEvents() int64 {
	return s.fallbacks.Load()
}

// AverageReadLatency returns the mean store read round-trip observed since
// process start, or zero before any reads.
func (s *Service) AverageReadLatency() time.Duration {
	reads := s.readCount.Load()
	if reads == 0 {
		return 0
	}
	return time.Duration(s.readNanos.Load() / reads)
}

func (s *Service) observeRead(d time.Duration) {
	s.readCount.Add(1)
	s.readNanos.Add(d.Nanoseconds())
}
