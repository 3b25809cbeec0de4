package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/brightpath/lmscache/cache"
)

// Priority ranks how urgently a recommendation should be acted on.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Thresholds are the tunable limits the analyzer judges the cache against.
// They live in configuration so operators can adjust them without touching
// call sites.
type Thresholds struct {
	// MinHitRate is the reuse percentage below which the cache is considered
	// to be churning.
	MinHitRate float64 `koanf:"min_hit_rate"`
	// MaxAvgReadLatency is the store round-trip average above which
	// connectivity should be investigated.
	MaxAvgReadLatency time.Duration `koanf:"max_avg_read_latency"`
	// MaxFallbackEvents is the number of degraded reads tolerated before the
	// store is flagged as a reliability risk.
	MaxFallbackEvents int64 `koanf:"max_fallback_events"`
	// MaxStoreBytes is the payload volume above which archiving is suggested.
	MaxStoreBytes int64 `koanf:"max_store_bytes"`
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinHitRate:        85,
		MaxAvgReadLatency: 100 * time.Millisecond,
		MaxFallbackEvents: 10,
		MaxStoreBytes:     64 << 20,
	}
}

// Recommendation is one qualitative finding from a health analysis.
type Recommendation struct {
	Priority Priority `json:"priority"`
	Message  string   `json:"message"`
	Metric   string   `json:"metric"`
}

// Report is the result of a health analysis: the raw numbers plus the
// threshold findings derived from them.
type Report struct {
	Healthy         bool                  `json:"healthy"`
	Snapshot        cache.MetricsSnapshot `json:"snapshot"`
	HitRate         float64               `json:"hit_rate"`
	AvgReadLatency  time.Duration         `json:"avg_read_latency"`
	FallbackEvents  int64                 `json:"fallback_events"`
	Recommendations []Recommendation      `json:"recommendations"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Analyzer derives qualitative health findings from the cache metrics.
type Analyzer struct {
	svc        *cache.Service
	thresholds Thresholds
}

// NewAnalyzer creates an analyzer judging against the given thresholds.
func NewAnalyzer(svc *cache.Service, thresholds Thresholds) *Analyzer {
	return &Analyzer{svc: svc, thresholds: thresholds}
}

// Analyze takes a metrics snapshot and applies the threshold rules.
// The report is advisory; it never mutates the cache.
func (a *Analyzer) Analyze(ctx context.Context) (Report, error) {
	snapshot, err := a.svc.Metrics(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Snapshot:       snapshot,
		HitRate:        cache.HitRate(snapshot),
		AvgReadLatency: a.svc.AverageReadLatency(),
		FallbackEvents: a.svc.FallbackEvents(),
		GeneratedAt:    time.Now().UTC(),
	}

	if snapshot.TotalEntries > 0 && report.HitRate < a.thresholds.MinHitRate {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityHigh,
			Metric:   "hit_rate",
			Message: fmt.Sprintf("hit rate %.1f%% is below %.1f%%: increase TTLs or review invalidation breadth",
				report.HitRate, a.thresholds.MinHitRate),
		})
	}

	if report.AvgReadLatency > a.thresholds.MaxAvgReadLatency {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityMedium,
			Metric:   "avg_read_latency",
			Message: fmt.Sprintf("average store read latency %s exceeds %s: investigate database connectivity",
				report.AvgReadLatency, a.thresholds.MaxAvgReadLatency),
		})
	}

	if report.FallbackEvents > a.thresholds.MaxFallbackEvents {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityHigh,
			Metric:   "fallback_events",
			Message: fmt.Sprintf("%d reads fell back to direct computation: cache store is a reliability risk",
				report.FallbackEvents),
		})
	}

	if snapshot.TotalBytes > a.thresholds.MaxStoreBytes {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityLow,
			Metric:   "total_bytes",
			Message: fmt.Sprintf("cache payload volume %d bytes exceeds %d: consider archiving or shorter TTLs",
				snapshot.TotalBytes, a.thresholds.MaxStoreBytes),
		})
	}

	report.Healthy = len(report.Recommendations) == 0
	return report, nil
}
