package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examflow/editorial/internal/middleware"
	"github.com/examflow/editorial/pkg/response"
)

// AnnounceRequest is the body for POST /announcements.
type AnnounceRequest struct {
	Title  string `json:"title" binding:"required,max=200"`
	Body   string `json:"body" binding:"required"`
	Link   string `json:"link"`
	TeamID *int64 `json:"team_id"`
}

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo       *Repository
	dispatcher *Dispatcher
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, dispatcher *Dispatcher) *Handler {
	return &Handler{repo: repo, dispatcher: dispatcher}
}

// ListMine handles GET /notifications (?unread=true&limit=50).
func (h *Handler) ListMine(c *gin.Context) {
	actor := middleware.MustActor(c)
	unread := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.repo.ListByUser(c.Request.Context(), actor.ID, unread, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"notifications": list})
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	actor := middleware.MustActor(c)
	if err := h.repo.MarkRead(c.Request.Context(), id, actor.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "is_read": true})
}

// Announce handles POST /announcements (admin). Partial delivery still returns 200.
func (h *Handler) Announce(c *gin.Context) {
	var req AnnounceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.dispatcher.Announce(c.Request.Context(), req.TeamID, req.Title, req.Body, req.Link)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
