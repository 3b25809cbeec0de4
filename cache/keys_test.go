package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySchemes(t *testing.T) {
	assert.Equal(t, "student_progress:student-42", StudentProgressKey("student-42"))
	assert.Equal(t, "student_progress:student-42:module-7", StudentProgressKey("student-42", "module-7"))

	assert.Equal(t, "product_performance:all", ProductPerformanceKey(""))
	assert.Equal(t, "product_performance:client-9", ProductPerformanceKey("client-9"))

	assert.Equal(t, "expert_sessions:all", ExpertSessionsKey(""))
	assert.Equal(t, "expert_sessions:product-123", ExpertSessionsKey("product-123"))
}

func TestValidateKeyRejectsBlank(t *testing.T) {
	assert.NoError(t, validateKey("expert_sessions:all"))

	for _, key := range []string{"", "   ", "\t"} {
		err := validateKey(key)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Nil(t, NormalizeTags(nil))
	assert.Nil(t, NormalizeTags([]string{}))

	assert.Equal(t,
		[]string{"analytics", "stats", "performance"},
		NormalizeTags([]string{"analytics", "stats", "analytics", "", "performance", "stats"}))

	assert.Equal(t,
		[]string{"stats"},
		NormalizeTags([]string{" stats ", "  ", "stats"}))
}

func TestTagGroups(t *testing.T) {
	assert.Equal(t, []string{"student_progress", "progress"}, StudentProgressTags())
	assert.Equal(t, []string{"expert_sessions", "sessions", "stats"}, ExpertSessionTags())
	assert.Equal(t, []string{"products", "performance", "analytics"}, ProductPerformanceTags())
	assert.Equal(t, []string{"modules", "module_completion"}, ModuleDataTags())
	assert.Equal(t, []string{"analytics", "stats", "performance"}, AnalyticsTags())

	// Each call returns a fresh slice callers can append to safely.
	tags := ExpertSessionTags()
	tags[0] = "mutated"
	assert.Equal(t, []string{"expert_sessions", "sessions", "stats"}, ExpertSessionTags())
}
