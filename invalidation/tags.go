// Package invalidation translates domain write events into cache tag purges.
// The entity-to-tag mapping and the cascade rules are declarative policy
// tables, not logic computed from entity field values.
package invalidation

import (
	"github.com/brightpath/lmscache/cache"
)

// EntityType identifies a domain entity kind. The set is closed; unknown
// types are rejected rather than silently purging nothing.
type EntityType string

const (
	EntityStudent       EntityType = "student"
	EntityExpertSession EntityType = "expert_session"
	EntityProduct       EntityType = "product"
	EntityModule        EntityType = "module"
	EntityAssessment    EntityType = "assessment"
)

// ChangeKind distinguishes mutations that alter collection membership from
// in-place updates.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// categoryTags maps each entity type to the category tags purged whenever an
// entity of that type changes.
var categoryTags = map[EntityType][]string{
	EntityStudent:       {"student_progress", "product_performance"},
	EntityExpertSession: {"expert_sessions", "sessions", "stats"},
	EntityProduct:       {"products", "performance", "analytics"},
	EntityModule:        {"modules", "module_completion"},
	EntityAssessment:    {"student_progress", "progress", "stats"},
}

// dependentTags lists downstream aggregates summarizing an entity type.
// An expert session feeds the product performance rollups, so purging one
// must also purge the other. Membership here is policy, reviewed whenever a
// new aggregate starts consuming an entity's data.
var dependentTags = map[EntityType][]string{
	EntityExpertSession: {"products", "performance", "analytics"},
	EntityModule:        {"student_progress", "progress"},
	EntityAssessment:    {"analytics", "performance"},
}

// listingTags names the "list of all X" aggregates. They are stale only when
// collection membership changes, so in-place updates leave them cached.
var listingTags = map[EntityType][]string{
	EntityStudent:       {"students"},
	EntityExpertSession: {"expert_sessions", "sessions"},
	EntityProduct:       {"products"},
	EntityModule:        {"modules"},
	EntityAssessment:    {"assessments"},
}

// TagsForEntity returns the direct tag set for an entity: its category tags
// followed by the entity-scoped "<type>:<id>" tag. The mapping is a pure
// function; cascade logic and tests rely on it being deterministic.
func TagsForEntity(entityType EntityType, entityID string) ([]string, error) {
	categories, ok := categoryTags[entityType]
	if !ok {
		return nil, cache.NewValidationError("entity_type", "unknown entity type "+string(entityType))
	}
	if entityID == "" {
		return nil, cache.NewValidationError("entity_id", "entity id is empty")
	}

	tags := make([]string, 0, len(categories)+1)
	tags = append(tags, categories...)
	tags = append(tags, string(entityType)+":"+entityID)
	return tags, nil
}

// expandTags widens the direct tag set with dependent aggregates and, for
// membership changes, the listing tags.
func expandTags(direct []string, entityType EntityType, kind ChangeKind) []string {
	expanded := append([]string(nil), direct...)
	expanded = append(expanded, dependentTags[entityType]...)
	if kind != ChangeUpdate {
		expanded = append(expanded, listingTags[entityType]...)
	}
	return cache.NormalizeTags(expanded)
}
