package cache

import "strings"

// Cache key schemes. Existing callers and their tests depend on these exact
// formats, so they are centralized here rather than assembled at call sites.

const (
	keyScopeAll = "all"

	keyPrefixStudentProgress    = "student_progress"
	keyPrefixProductPerformance = "product_performance"
	keyPrefixExpertSessions     = "expert_sessions"
)

// StudentProgressKey builds "student_progress:<studentId>" or, when a module
// id is supplied, "student_progress:<studentId>:<moduleId>".
func StudentProgressKey(studentID string, moduleID ...string) string {
	parts := append([]string{keyPrefixStudentProgress, studentID}, moduleID...)
	return strings.Join(parts, ":")
}

// ProductPerformanceKey builds "product_performance:<clientId>", or
// "product_performance:all" when clientID is empty.
func ProductPerformanceKey(clientID string) string {
	return scopedKey(keyPrefixProductPerformance, clientID)
}

// ExpertSessionsKey builds "expert_sessions:<productId>", or
// "expert_sessions:all" when productID is empty.
func ExpertSessionsKey(productID string) string {
	return scopedKey(keyPrefixExpertSessions, productID)
}

func scopedKey(prefix, scope string) string {
	if scope == "" {
		scope = keyScopeAll
	}
	return prefix + ":" + scope
}

// validateKey rejects keys the store cannot represent meaningfully.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return NewValidationError("key", "cache key is empty")
	}
	return nil
}
