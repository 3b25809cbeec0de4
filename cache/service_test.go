package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/cache/cachetest"
	"github.com/brightpath/lmscache/cache/memory"
	"github.com/brightpath/lmscache/logger"
)

type sessionStats struct {
	ProductID string `json:"product_id"`
	Sessions  int    `json:"sessions"`
}

func newTestService(t *testing.T) (*cache.Service, *cachetest.MockStore) {
	t.Helper()
	store := cachetest.NewMockStore()
	return cache.NewService(store, testLogger()), store
}

func testLogger() logger.Logger {
	return logger.New("error", false)
}

func TestWithCacheMissPopulatesAndReturns(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	want := sessionStats{ProductID: "product-123", Sessions: 7}
	got, err := cache.WithCache(ctx, svc, "expert_sessions:product-123",
		cache.Options{TTL: cache.TTLMedium, Tags: cache.ExpertSessionTags()},
		func(ctx context.Context) (sessionStats, error) { return want, nil })

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(1), store.WriteCalls.Load())

	entry, err := store.Read(ctx, "expert_sessions:product-123")
	require.NoError(t, err)
	assert.Equal(t, []string{"expert_sessions", "sessions", "stats"}, entry.Tags)
	assert.Zero(t, entry.HitCount)
}

func TestWithCacheHitSuppressesFetch(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed("expert_sessions:all", cache.MustMarshal(sessionStats{Sessions: 3}), cache.TTLMedium, nil)

	var fetchCalls atomic.Int64
	got, err := cache.WithCache(ctx, svc, "expert_sessions:all",
		cache.Options{TTL: cache.TTLMedium},
		func(ctx context.Context) (sessionStats, error) {
			fetchCalls.Add(1)
			return sessionStats{}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, got.Sessions)
	assert.Zero(t, fetchCalls.Load(), "fetch must not run on a cache hit")
	assert.Equal(t, int64(1), store.HitCalls.Load())
}

func TestWithCacheHitCountMonotonicity(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		_, err := cache.WithCache(ctx, svc, "student_progress:student-1",
			cache.Options{TTL: cache.TTLMedium},
			func(ctx context.Context) (string, error) { return "progress", nil })
		require.NoError(t, err)
	}

	entry, err := store.Read(ctx, "student_progress:student-1")
	require.NoError(t, err)
	// The populating write is not a hit; only the n-1 subsequent reads count.
	assert.Equal(t, int64(n-1), entry.HitCount)
}

func TestWithCacheFetchErrorPropagatesUncached(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	fetchErr := errors.New("upstream query failed")
	_, err := cache.WithCache(ctx, svc, "product_performance:all",
		cache.Options{TTL: cache.TTLLong},
		func(ctx context.Context) (string, error) { return "", fetchErr })

	assert.ErrorIs(t, err, fetchErr)
	assert.Zero(t, store.WriteCalls.Load(), "a failed fetch must not be cached")
}

func TestWithCacheDegradesWhenStoreReadFails(t *testing.T) {
	store := cachetest.NewMockStore().
		WithReadError(cache.NewOperationError("read", "k", errors.New("connection refused")))
	svc := cache.NewService(store, testLogger())

	got, err := cache.WithCache(context.Background(), svc, "expert_sessions:all",
		cache.Options{TTL: cache.TTLMedium},
		func(ctx context.Context) (string, error) { return "fresh", nil })

	require.NoError(t, err, "store failure must not surface to the caller")
	assert.Equal(t, "fresh", got)
	assert.Equal(t, int64(1), svc.FallbackEvents())
}

func TestWithCacheSwallowsWriteFailure(t *testing.T) {
	store := cachetest.NewMockStore().
		WithWriteError(cache.NewOperationError("write", "k", errors.New("connection refused")))
	svc := cache.NewService(store, testLogger())

	got, err := cache.WithCache(context.Background(), svc, "expert_sessions:all",
		cache.Options{TTL: cache.TTLMedium},
		func(ctx context.Context) (string, error) { return "fresh", nil })

	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestWithCacheValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	fetch := func(ctx context.Context) (string, error) { return "", nil }

	_, err := cache.WithCache(ctx, svc, "", cache.Options{TTL: cache.TTLMedium}, fetch)
	var vErr *cache.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = cache.WithCache(ctx, svc, "key", cache.Options{}, fetch)
	assert.ErrorIs(t, err, cache.ErrInvalidTTL)
}

func TestSetDataOverwriteResetsHitCount(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	opts := cache.Options{TTL: cache.TTLMedium, Tags: cache.AnalyticsTags()}

	require.NoError(t, cache.SetData(ctx, svc, "product_performance:all", "v1", opts))

	// Serve a hit so the counter is non-zero before the overwrite.
	_, found, err := cache.GetData[string](ctx, svc, "product_performance:all")
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, cache.SetData(ctx, svc, "product_performance:all", "v2", opts))

	entry, err := store.Read(ctx, "product_performance:all")
	require.NoError(t, err)
	assert.Zero(t, entry.HitCount, "overwrite starts a fresh lifetime")

	got, found, err := cache.GetData[string](ctx, svc, "product_performance:all")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2", got)
}

func TestGetDataMissAndStoreFailureAreBothMisses(t *testing.T) {
	svc, _ := newTestService(t)
	_, found, err := cache.GetData[string](context.Background(), svc, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	failing := cache.NewService(cachetest.NewMockStore().
		WithReadError(cache.NewOperationError("read", "k", errors.New("boom"))), testLogger())
	_, found, err = cache.GetData[string](context.Background(), failing, "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(1), failing.FallbackEvents())
}

func TestInvalidateEmptyTagListIsNoOp(t *testing.T) {
	svc, store := newTestService(t)
	store.Seed("expert_sessions:all", []byte(`{}`), cache.TTLMedium, cache.ExpertSessionTags())

	count, err := svc.Invalidate(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.Invalidate(context.Background(), []string{"", ""})
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.Zero(t, store.DeleteCalls.Load(), "empty invalidation must not reach the store")
}

func TestInvalidateByTagRemovesOnlyMatchingEntries(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed("e1", []byte(`1`), cache.TTLMedium, []string{"a", "b"})
	store.Seed("e2", []byte(`2`), cache.TTLMedium, []string{"b", "c"})
	store.Seed("e3", []byte(`3`), cache.TTLMedium, []string{"d"})

	count, err := svc.Invalidate(ctx, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = store.Read(ctx, "e1")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	_, err = store.Read(ctx, "e2")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	_, err = store.Read(ctx, "e3")
	assert.NoError(t, err)
}

func TestHitRateComputation(t *testing.T) {
	assert.Equal(t, float64(80), cache.HitRate(cache.MetricsSnapshot{TotalEntries: 100, ReusedEntries: 80}))
	assert.Zero(t, cache.HitRate(cache.MetricsSnapshot{}), "empty population must not divide by zero")
}

func TestStatsReportsTopEntries(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed("cold", []byte(`1`), cache.TTLMedium, nil)
	store.Seed("hot", []byte(`2`), cache.TTLMedium, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementHit(ctx, "hot"))
	}

	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats.TopEntries, 1)
	assert.Equal(t, "hot", stats.TopEntries[0].Key)
	assert.Equal(t, int64(3), stats.TopEntries[0].HitCount)
	assert.Equal(t, float64(50), stats.HitRate)
	assert.False(t, stats.GeneratedAt.IsZero())
}

func TestColdWarmCycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var fetchCalls atomic.Int64
	fetch := func(ctx context.Context) (sessionStats, error) {
		fetchCalls.Add(1)
		return sessionStats{ProductID: "product-123", Sessions: 12}, nil
	}

	cold, err := cache.ExpertSessions(ctx, svc, "product-123", fetch)
	require.NoError(t, err)

	warm, err := cache.ExpertSessions(ctx, svc, "product-123", fetch)
	require.NoError(t, err)

	assert.Equal(t, cold, warm)
	assert.Equal(t, int64(1), fetchCalls.Load())

	// Invalidating the category tag makes the next read cold again.
	count, err := svc.Invalidate(ctx, []string{"expert_sessions"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = cache.ExpertSessions(ctx, svc, "product-123", fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetchCalls.Load())
}

func TestConcurrentMissesBothSucceed(t *testing.T) {
	// Misses are deliberately not coalesced: both callers may fetch, and the
	// final stored value is whichever write lands last, never a blend.
	store := memory.NewStore()
	svc := cache.NewService(store, testLogger())
	ctx := context.Background()

	var fetchCalls atomic.Int64
	var wg sync.WaitGroup
	results := make([]sessionStats, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.WithCache(ctx, svc, "expert_sessions:all",
				cache.Options{TTL: cache.TTLMedium},
				func(ctx context.Context) (sessionStats, error) {
					fetchCalls.Add(1)
					time.Sleep(10 * time.Millisecond)
					return sessionStats{Sessions: 9}, nil
				})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.GreaterOrEqual(t, fetchCalls.Load(), int64(1))

	entry, err := store.Read(ctx, "expert_sessions:all")
	require.NoError(t, err)
	stored, err := cache.Unmarshal[sessionStats](entry.Value)
	require.NoError(t, err)
	assert.Equal(t, sessionStats{Sessions: 9}, stored)
}

func TestDomainWrappersUseStandardKeys(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := cache.StudentProgress(ctx, svc, "student-5",
		func(ctx context.Context) (string, error) { return "p", nil })
	require.NoError(t, err)

	_, err = cache.StudentModuleProgress(ctx, svc, "student-5", "module-2",
		func(ctx context.Context) (string, error) { return "mp", nil })
	require.NoError(t, err)

	_, err = cache.ProductPerformance(ctx, svc, "",
		func(ctx context.Context) (string, error) { return "perf", nil })
	require.NoError(t, err)

	for _, key := range []string{
		"student_progress:student-5",
		"student_progress:student-5:module-2",
		"product_performance:all",
	} {
		_, err := store.Read(ctx, key)
		assert.NoError(t, err, "expected entry for %s", key)
	}

	entry, err := store.Read(ctx, "student_progress:student-5:module-2")
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"student_progress", "progress", "modules", "module_completion"},
		entry.Tags)
}
