// Package maintenance holds the operational surface of the cache: the
// expired-entry sweep, threshold-driven health analysis, and the emergency
// wipe. Everything here is best-effort tooling around the cache service and
// never sits on the user-facing request path.
package maintenance

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/logger"
)

// DefaultCleanupInterval is how often the background sweep runs when the
// configuration does not say otherwise.
const DefaultCleanupInterval = 5 * time.Minute

// Cleaner periodically sweeps expired rows out of the cache table. Expired
// entries are already invisible to reads; the sweep only reclaims storage
// and keeps the expired-entry metric honest.
type Cleaner struct {
	svc      *cache.Service
	log      logger.Logger
	interval time.Duration
	running  atomic.Bool
}

// NewCleaner creates a cleaner sweeping at the given interval.
func NewCleaner(svc *cache.Service, log logger.Logger, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Cleaner{svc: svc, log: log, interval: interval}
}

// CleanupExpired runs one sweep and logs an audit record of what it removed.
func (c *Cleaner) CleanupExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := c.svc.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}

	c.log.Info().
		Int64("removed", removed).
		Dur("elapsed", time.Since(start)).
		Time("swept_at", start.UTC()).
		Msg("Expired cache entries cleaned up")
	return removed, nil
}

// Run sweeps on a ticker until ctx is cancelled. Sweep failures are logged
// and the loop keeps going; a degraded store should not kill the janitor.
// Overlapping runs are skipped.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.running.CompareAndSwap(false, true) {
				c.log.Warn().Msg("Skipping cleanup sweep, previous sweep still running")
				continue
			}
			if _, err := c.CleanupExpired(ctx); err != nil {
				c.log.Error().Err(err).Msg("Cleanup sweep failed")
			}
			c.running.Store(false)
		}
	}
}
