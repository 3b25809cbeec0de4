package cache

import "strings"

// Standard tag groups attached by cache-populating call sites. Returned as
// fresh slices so callers can append without aliasing the shared tables.

func StudentProgressTags() []string {
	return []string{"student_progress", "progress"}
}

func ExpertSessionTags() []string {
	return []string{"expert_sessions", "sessions", "stats"}
}

func ProductPerformanceTags() []string {
	return []string{"products", "performance", "analytics"}
}

func ModuleDataTags() []string {
	return []string{"modules", "module_completion"}
}

func AnalyticsTags() []string {
	return []string{"analytics", "stats", "performance"}
}

// NormalizeTags trims whitespace, collapses duplicates, and drops empty
// strings while preserving first-seen order. Insertion order carries no
// meaning for invalidation, but a stable result keeps writes and assertions
// deterministic.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
