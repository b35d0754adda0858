package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalFlagsAreIndependent(t *testing.T) {
	s := RestoreState(StatusFieldReview, false, false)
	s.Transition(StatusFieldApproved, EffectFor(StatusFieldApproved))
	assert.True(t, s.FieldApproved())
	assert.False(t, s.LanguageApproved())
	assert.False(t, s.BothApproved())

	s = RestoreState(StatusLanguageReview, true, false)
	s.Transition(StatusLanguageApproved, EffectFor(StatusLanguageApproved))
	assert.True(t, s.FieldApproved())
	assert.True(t, s.LanguageApproved())
	assert.True(t, s.BothApproved())

	s = RestoreState(StatusLanguageReview, false, true)
	s.Transition(StatusFieldApproved, EffectFor(StatusFieldApproved))
	assert.True(t, s.LanguageApproved())
}

func TestRevisionResetsBothFlags(t *testing.T) {
	for _, to := range []Status{StatusRevisionRequestedByReviewer, StatusRevisionRequestedByTypesetter} {
		for _, prior := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
			s := RestoreState(StatusFieldApproved, prior[0], prior[1])
			s.Transition(to, EffectFor(to))
			assert.Equal(t, to, s.Status())
			assert.False(t, s.FieldApproved())
			assert.False(t, s.LanguageApproved())
		}
	}
}

func TestOtherTransitionsLeaveFlags(t *testing.T) {
	s := RestoreState(StatusLanguageApproved, true, true)
	s.Transition(StatusCompleted, EffectFor(StatusCompleted))
	assert.Equal(t, StatusCompleted, s.Status())
	assert.True(t, s.BothApproved())
}

func TestStateJSON(t *testing.T) {
	s := RestoreState(StatusFieldApproved, true, false)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"field_approved","field_approved":true,"language_approved":false}`, string(raw))

	var back State
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s, back)

	assert.Error(t, json.Unmarshal([]byte(`{"status":"nope"}`), &back))
}
