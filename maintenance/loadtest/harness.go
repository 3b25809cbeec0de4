// Package loadtest drives configurable bursts of cache-aside reads against a
// cache service and reports latency percentiles, throughput, and the inferred
// hit rate. It is a diagnostic tool run by operators, never part of the
// production request path.
package loadtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/logger"
)

// Config shapes a harness run.
type Config struct {
	// Workers is the number of concurrent callers.
	Workers int `koanf:"workers"`
	// Operations is the total number of cache reads to issue.
	Operations int `koanf:"operations"`
	// Rate caps throughput in ops/sec. Zero means unpaced.
	Rate float64 `koanf:"rate"`
	// KeySpace is the number of distinct keys cycled through; smaller values
	// produce hotter keys and higher hit rates.
	KeySpace int `koanf:"key_space"`
	// TTL applies to entries the run populates.
	TTL time.Duration `koanf:"ttl"`
	// FetchDelay simulates the cost of the uncached computation.
	FetchDelay time.Duration `koanf:"fetch_delay"`
	// InvalidateEvery forces a tag purge at this interval to exercise the
	// cold path mid-run. Zero disables forced invalidation.
	InvalidateEvery time.Duration `koanf:"invalidate_every"`
	// HitThreshold classifies any response faster than this as a cache hit.
	HitThreshold time.Duration `koanf:"hit_threshold"`
}

// DefaultConfig returns a moderate smoke-test shape.
func DefaultConfig() Config {
	return Config{
		Workers:      8,
		Operations:   1000,
		KeySpace:     50,
		TTL:          cache.TTLMedium,
		FetchDelay:   75 * time.Millisecond,
		HitThreshold: 50 * time.Millisecond,
	}
}

// Report summarizes a completed run.
type Report struct {
	Operations      int64         `json:"operations"`
	Errors          int64         `json:"errors"`
	Duration        time.Duration `json:"duration"`
	OpsPerSec       float64       `json:"ops_per_sec"`
	ErrorRate       float64       `json:"error_rate"`
	InferredHitRate float64       `json:"inferred_hit_rate"`
	P50             time.Duration `json:"p50"`
	P90             time.Duration `json:"p90"`
	P95             time.Duration `json:"p95"`
	P99             time.Duration `json:"p99"`
}

// Harness runs load against a cache service.
type Harness struct {
	svc *cache.Service
	log logger.Logger
	cfg Config
}

// New creates a harness. Zero config fields fall back to defaults.
func New(svc *cache.Service, log logger.Logger, cfg Config) *Harness {
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.Operations <= 0 {
		cfg.Operations = defaults.Operations
	}
	if cfg.KeySpace <= 0 {
		cfg.KeySpace = defaults.KeySpace
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.HitThreshold <= 0 {
		cfg.HitThreshold = defaults.HitThreshold
	}
	return &Harness{svc: svc, log: log, cfg: cfg}
}

// Run issues the configured burst and blocks until it completes or ctx is
// cancelled. Keys are namespaced per run so repeated runs start cold.
func (h *Harness) Run(ctx context.Context) (Report, error) {
	runID := uuid.NewString()[:8]
	runTag := "loadtest:" + runID

	var limiter *rate.Limiter
	if h.cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.Rate), h.cfg.Workers)
	}

	h.log.Info().
		Str("run_id", runID).
		Int("workers", h.cfg.Workers).
		Int("operations", h.cfg.Operations).
		Msg("Starting cache load test")

	var mu sync.Mutex
	latencies := make([]time.Duration, 0, h.cfg.Operations)
	var errorCount int64

	ops := make(chan int)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if h.cfg.InvalidateEvery > 0 {
		go h.invalidateLoop(runCtx, runTag)
	}

	start := time.Now()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		defer close(ops)
		for i := 0; i < h.cfg.Operations; i++ {
			select {
			case ops <- i:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	for w := 0; w < h.cfg.Workers; w++ {
		group.Go(func() error {
			for op := range ops {
				if limiter != nil {
					if err := limiter.Wait(groupCtx); err != nil {
						return err
					}
				}

				elapsed, err := h.readOne(groupCtx, runID, runTag, op)

				mu.Lock()
				latencies = append(latencies, elapsed)
				if err != nil {
					errorCount++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Report{}, err
	}

	report := h.summarize(latencies, errorCount, time.Since(start))
	h.log.Info().
		Str("run_id", runID).
		Float64("ops_per_sec", report.OpsPerSec).
		Float64("inferred_hit_rate", report.InferredHitRate).
		Dur("p95", report.P95).
		Msg("Cache load test finished")
	return report, nil
}

// readOne performs a single cache-aside read against a key in the run's
// keyspace, simulating the uncached computation with a sleep.
func (h *Harness) readOne(ctx context.Context, runID, runTag string, op int) (time.Duration, error) {
	key := fmt.Sprintf("loadtest:%s:%d", runID, op%h.cfg.KeySpace)

	start := time.Now()
	_, err := cache.WithCache(ctx, h.svc, key,
		cache.Options{TTL: h.cfg.TTL, Tags: []string{runTag}},
		func(ctx context.Context) (string, error) {
			if h.cfg.FetchDelay > 0 {
				select {
				case <-time.After(h.cfg.FetchDelay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "payload:" + key, nil
		})
	return time.Since(start), err
}

// invalidateLoop forces periodic purges of the run's entries so the burst
// keeps exercising the cold path.
func (h *Harness) invalidateLoop(ctx context.Context, runTag string) {
	ticker := time.NewTicker(h.cfg.InvalidateEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.svc.Invalidate(ctx, []string{runTag}); err != nil {
				h.log.Warn().Err(err).Msg("Forced invalidation during load test failed")
			}
		}
	}
}

func (h *Harness) summarize(latencies []time.Duration, errorCount int64, elapsed time.Duration) Report {
	total := int64(len(latencies))
	report := Report{
		Operations: total,
		Errors:     errorCount,
		Duration:   elapsed,
	}
	if total == 0 {
		return report
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var hits int64
	for _, l := range latencies {
		if l < h.cfg.HitThreshold {
			hits++
		}
	}

	report.OpsPerSec = float64(total) / elapsed.Seconds()
	report.ErrorRate = float64(errorCount) / float64(total) * 100
	report.InferredHitRate = float64(hits) / float64(total) * 100
	report.P50 = percentile(latencies, 50)
	report.P90 = percentile(latencies, 90)
	report.P95 = percentile(latencies, 95)
	report.P99 = percentile(latencies, 99)
	return report
}

// percentile picks the nearest-rank percentile from sorted latencies.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p*len(sorted) + 99) / 100
	if idx > 0 {
		idx--
	}
	return sorted[idx]
}
