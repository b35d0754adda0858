package analytics

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/examflow/editorial/internal/workflow"
	"github.com/examflow/editorial/pkg/response"
)

// Store is the aggregate source for the summary.
type Store interface {
	CountByStatus(ctx context.Context) (map[workflow.Status]int, error)
	TypesettingStats(ctx context.Context) (finished int, avgSeconds float64, err error)
	OpenRevisionNotes(ctx context.Context) (int, error)
}

// Handler handles GET /admin/analytics/pipeline.
type Handler struct {
	store Store
}

// NewHandler creates an analytics handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// StatusCount is one registry status with its question count.
type StatusCount struct {
	Status workflow.Status `json:"status"`
	Count  int             `json:"count"`
}

// SummaryResponse is the JSON shape of the pipeline summary.
type SummaryResponse struct {
	Total                 int           `json:"total"`
	ByStatus              []StatusCount `json:"by_status"`
	AwaitingReview        int           `json:"awaiting_review"`
	RevisionRequested     int           `json:"revision_requested"`
	Completed             int           `json:"completed"`
	OpenRevisionNotes     int           `json:"open_revision_notes"`
	TypesettingFinished   int           `json:"typesetting_finished"`
	AvgTypesettingSeconds int64         `json:"avg_typesetting_seconds"`
}

var reviewQueues = map[workflow.Status]bool{
	workflow.StatusFieldReview:       true,
	workflow.StatusLanguageReview:    true,
	workflow.StatusLegacyReviewQueue: true,
	workflow.StatusLegacyInReview:    true,
}

// Summarize folds per-status counts into the summary. Every registry status is listed, in registry order.
func Summarize(counts map[workflow.Status]int) SummaryResponse {
	out := SummaryResponse{ByStatus: make([]StatusCount, 0, len(workflow.All()))}
	for _, s := range workflow.All() {
		n := counts[s]
		out.ByStatus = append(out.ByStatus, StatusCount{Status: s, Count: n})
		out.Total += n
		switch {
		case reviewQueues[s]:
			out.AwaitingReview += n
		case workflow.IsRevisionRequested(s):
			out.RevisionRequested += n
		case s == workflow.StatusCompleted:
			out.Completed += n
		}
	}
	return out
}

// Pipeline handles GET /admin/analytics/pipeline.
func (h *Handler) Pipeline(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.store.CountByStatus(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := Summarize(counts)

	finished, avg, err := h.store.TypesettingStats(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	out.TypesettingFinished = finished
	out.AvgTypesettingSeconds = int64(avg)

	if out.OpenRevisionNotes, err = h.store.OpenRevisionNotes(ctx); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
