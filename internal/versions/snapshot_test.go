package versions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/workflow"
)

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

func sampleQuestion() *models.Question {
	return &models.Question{
		ID: 42,
		Content: models.Content{
			Body:          "What is 2+2?",
			OptionA:       strPtr("3"),
			OptionB:       strPtr("4"),
			CorrectAnswer: "B",
			Difficulty:    2,
			SubjectID:     7,
		},
		CreatorID: int64Ptr(1),
		State:     workflow.RestoreState(workflow.StatusRevisionRequestedByReviewer, false, false),
		Version:   3,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSnapshotUsesCurrentVersion(t *testing.T) {
	q := sampleQuestion()
	v, err := Snapshot(q, models.Actor{ID: 1, Role: models.RoleAuthor}, ReasonContentUpdate)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.QuestionID)
	assert.Equal(t, 3, v.VersionNumber)
	assert.Equal(t, int64(1), *v.ChangedBy)
	assert.Equal(t, ReasonContentUpdate, v.Reason)

	restored, err := Restore(v)
	require.NoError(t, err)
	assert.Equal(t, q.Body, restored.Body)
	assert.Equal(t, q.State, restored.State)
	assert.Equal(t, *q.OptionB, *restored.OptionB)
}

func TestDiffShowsOnlyTheEdit(t *testing.T) {
	live := sampleQuestion()
	v, err := Snapshot(live, models.Actor{ID: 1}, ReasonContentUpdate)
	require.NoError(t, err)

	live.Body = "What is 3+3?"
	live.OptionE = strPtr("6")
	live.CorrectAnswer = "E"
	live.Version++
	live.UpdatedAt = live.UpdatedAt.Add(time.Minute)

	changed, err := Diff(v, live)
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "correct_answer", "option_e"}, changed)
}

func TestDiffUnchanged(t *testing.T) {
	live := sampleQuestion()
	v, err := Snapshot(live, models.Actor{ID: 1}, ReasonContentUpdate)
	require.NoError(t, err)
	live.Version++

	changed, err := Diff(v, live)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestDiffSeesWorkflowChanges(t *testing.T) {
	live := sampleQuestion()
	v, err := Snapshot(live, models.Actor{ID: 9}, ReasonTypesettingComplete)
	require.NoError(t, err)

	live.State.Transition(workflow.StatusTypesettingDone, workflow.EffectFor(workflow.StatusTypesettingDone))
	live.FileURL = strPtr("https://cdn.example/q42.pdf")

	changed, err := Diff(v, live)
	require.NoError(t, err)
	assert.Equal(t, []string{"file_url", "state"}, changed)
}
