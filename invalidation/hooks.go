package invalidation

import (
	"context"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/logger"
)

// Hooks purges cache entries affected by domain writes. Write paths call it
// after their transaction commits; a failed purge is logged, never rolled
// back into the write. The accepted cost is staleness of at most one TTL
// window, which beats failing a user-facing save over a cache problem.
type Hooks struct {
	cache *cache.Service
	log   logger.Logger
}

// NewHooks creates invalidation hooks over the given cache service.
func NewHooks(svc *cache.Service, log logger.Logger) *Hooks {
	return &Hooks{cache: svc, log: log}
}

// Cascade resolves the direct tag set for the entity, expands it with
// dependent aggregates and change-kind policy, and purges every matching
// entry. Returns the number of entries removed for observability.
func (h *Hooks) Cascade(ctx context.Context, entityType EntityType, entityID string, kind ChangeKind) (int64, error) {
	switch kind {
	case ChangeCreate, ChangeUpdate, ChangeDelete:
	default:
		return 0, cache.NewValidationError("change_kind", "unknown change kind "+string(kind))
	}

	direct, err := TagsForEntity(entityType, entityID)
	if err != nil {
		return 0, err
	}

	tags := expandTags(direct, entityType, kind)

	count, err := h.cache.Invalidate(ctx, tags)
	if err != nil {
		return 0, err
	}

	h.log.Info().
		Str("entity_type", string(entityType)).
		Str("entity_id", entityID).
		Str("change_kind", string(kind)).
		Int64("purged", count).
		Msg("Cascade invalidation completed")
	return count, nil
}

// Notify is the fire-and-forget form of Cascade used directly on write
// paths: any failure is logged and swallowed so the triggering save cannot
// fail on cache degradation.
func (h *Hooks) Notify(ctx context.Context, entityType EntityType, entityID string, kind ChangeKind) {
	if _, err := h.Cascade(ctx, entityType, entityID, kind); err != nil {
		h.log.Error().
			Err(err).
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Str("change_kind", string(kind)).
			Msg("Cache invalidation failed, entries may be stale until TTL expiry")
	}
}
