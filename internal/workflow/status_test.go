package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	all := All()
	require.Len(t, all, 15)
	for _, s := range all {
		assert.True(t, IsValid(s), s)
	}
	assert.Equal(t, StatusDraft, Initial())

	var terminal []Status
	for _, s := range all {
		if IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	assert.ElementsMatch(t, []Status{StatusCompleted, StatusArchived}, terminal)

	assert.True(t, IsRevisionRequested(StatusRevisionRequestedByReviewer))
	assert.True(t, IsRevisionRequested(StatusRevisionRequestedByTypesetter))
	assert.False(t, IsRevisionRequested(StatusFieldReview))

	assert.True(t, IsLocked(StatusTypesettingInProgress))
	assert.True(t, IsLocked(StatusArchived))
	assert.False(t, IsLocked(StatusTypesettingQueued))
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0] = "mutated"
	assert.Equal(t, StatusDraft, All()[0])
	assert.False(t, IsValid("mutated"))
}

func TestParseAndNormalize(t *testing.T) {
	s, ok := Parse("field_review")
	assert.True(t, ok)
	assert.Equal(t, StatusFieldReview, s)

	s, ok = Parse("incelemede")
	assert.True(t, ok)
	assert.Equal(t, StatusLegacyInReview, s)

	s, ok = Parse("inceleme_tamam")
	assert.True(t, ok)
	assert.Equal(t, StatusLegacyReviewDone, s)

	_, ok = Parse("Field_Review")
	assert.False(t, ok)

	assert.Equal(t, StatusLegacyReviewDone, Normalize("inceleme_tamam"))
	assert.Equal(t, StatusDraft, Normalize("beklemede"))
	assert.Equal(t, StatusDraft, Normalize(""))
	assert.Equal(t, StatusCompleted, Normalize("completed"))
}
