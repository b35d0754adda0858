package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examflow/editorial/internal/workflow"
)

type fakeStore struct {
	counts map[workflow.Status]int
	err    error
}

func (f fakeStore) CountByStatus(context.Context) (map[workflow.Status]int, error) {
	return f.counts, f.err
}

func (f fakeStore) TypesettingStats(context.Context) (int, float64, error) { return 4, 5400.7, nil }

func (f fakeStore) OpenRevisionNotes(context.Context) (int, error) { return 2, nil }

func TestSummarizeListsEveryStatus(t *testing.T) {
	out := Summarize(map[workflow.Status]int{
		workflow.StatusDraft:                       3,
		workflow.StatusFieldReview:                 2,
		workflow.StatusLegacyInReview:              1,
		workflow.StatusRevisionRequestedByReviewer: 4,
		workflow.StatusCompleted:                   5,
	})

	require.Len(t, out.ByStatus, len(workflow.All()))
	assert.Equal(t, workflow.StatusDraft, out.ByStatus[0].Status)
	assert.Equal(t, 3, out.ByStatus[0].Count)
	assert.Equal(t, 15, out.Total)
	assert.Equal(t, 3, out.AwaitingReview)
	assert.Equal(t, 4, out.RevisionRequested)
	assert.Equal(t, 5, out.Completed)
}

func TestPipelineHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/p", NewHandler(fakeStore{counts: map[workflow.Status]int{workflow.StatusDraft: 1}}).Pipeline)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data SummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Total)
	assert.Equal(t, 4, body.Data.TypesettingFinished)
	assert.Equal(t, int64(5400), body.Data.AvgTypesettingSeconds)
	assert.Equal(t, 2, body.Data.OpenRevisionNotes)
}

func TestPipelineHandlerHidesStoreErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/p", NewHandler(fakeStore{err: errors.New("pg: boom")}).Pipeline)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}
