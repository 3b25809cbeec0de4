package invalidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/lmscache/cache"
)

func TestTagsForEntityIsDeterministic(t *testing.T) {
	tests := []struct {
		name       string
		entityType EntityType
		entityID   string
		want       []string
	}{
		{
			name:       "student",
			entityType: EntityStudent,
			entityID:   "student-123",
			want:       []string{"student_progress", "product_performance", "student:student-123"},
		},
		{
			name:       "expert session",
			entityType: EntityExpertSession,
			entityID:   "sess-9",
			want:       []string{"expert_sessions", "sessions", "stats", "expert_session:sess-9"},
		},
		{
			name:       "product",
			entityType: EntityProduct,
			entityID:   "prod-1",
			want:       []string{"products", "performance", "analytics", "product:prod-1"},
		},
		{
			name:       "module",
			entityType: EntityModule,
			entityID:   "mod-4",
			want:       []string{"modules", "module_completion", "module:mod-4"},
		},
		{
			name:       "assessment",
			entityType: EntityAssessment,
			entityID:   "quiz-7",
			want:       []string{"student_progress", "progress", "stats", "assessment:quiz-7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, err := TagsForEntity(tt.entityType, tt.entityID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tags)
		})
	}
}

func TestTagsForEntityRejectsUnknownType(t *testing.T) {
	_, err := TagsForEntity(EntityType("course"), "c-1")

	var valErr *cache.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "entity_type", valErr.Field)
}

func TestTagsForEntityRejectsEmptyID(t *testing.T) {
	_, err := TagsForEntity(EntityStudent, "")

	var valErr *cache.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "entity_id", valErr.Field)
}

func TestExpandTagsAddsDependentAggregates(t *testing.T) {
	direct, err := TagsForEntity(EntityExpertSession, "sess-9")
	require.NoError(t, err)

	expanded := expandTags(direct, EntityExpertSession, ChangeUpdate)

	assert.Contains(t, expanded, "products")
	assert.Contains(t, expanded, "performance")
	assert.Contains(t, expanded, "analytics")
	assert.Contains(t, expanded, "expert_session:sess-9")
}

func TestExpandTagsListingPolicyByChangeKind(t *testing.T) {
	direct, err := TagsForEntity(EntityStudent, "s-1")
	require.NoError(t, err)

	// In-place updates leave the listing aggregates cached.
	assert.NotContains(t, expandTags(direct, EntityStudent, ChangeUpdate), "students")

	// Membership changes purge them.
	assert.Contains(t, expandTags(direct, EntityStudent, ChangeCreate), "students")
	assert.Contains(t, expandTags(direct, EntityStudent, ChangeDelete), "students")
}

func TestExpandTagsDeduplicates(t *testing.T) {
	// Assessment's direct "stats" tag overlaps nothing in its dependents, but
	// expert session listing tags repeat two of its category tags.
	direct, err := TagsForEntity(EntityExpertSession, "sess-1")
	require.NoError(t, err)

	expanded := expandTags(direct, EntityExpertSession, ChangeDelete)

	seen := map[string]int{}
	for _, tag := range expanded {
		seen[tag]++
	}
	for tag, count := range seen {
		assert.Equal(t, 1, count, "tag %q appears %d times", tag, count)
	}
}

func TestExpandTagsDoesNotMutateDirectSet(t *testing.T) {
	direct := []string{"student_progress", "student:s-1"}
	_ = expandTags(direct, EntityStudent, ChangeDelete)

	assert.Equal(t, []string{"student_progress", "student:s-1"}, direct)
}
