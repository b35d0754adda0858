package questions

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examflow/editorial/internal/middleware"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/versions"
	"github.com/examflow/editorial/internal/workflow"
	"github.com/examflow/editorial/pkg/response"
	"github.com/examflow/editorial/pkg/storage"
)

// AssetUploader issues pre-signed upload slots.
type AssetUploader interface {
	PresignAssetUpload(ctx context.Context, questionID int64, contentType string) (*storage.Upload, error)
}

// StatusRepairer rewrites stored statuses that are not in the registry.
type StatusRepairer interface {
	RepairStatuses(ctx context.Context) (int64, error)
}

// UploadURLRequest is the body for POST /questions/:id/assets/upload-url.
type UploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// Handler handles question HTTP endpoints.
type Handler struct {
	svc      *Service
	uploader AssetUploader
	repairer StatusRepairer
}

// NewHandler creates a questions handler. uploader may be nil when no bucket is configured.
func NewHandler(svc *Service, uploader AssetUploader, repairer StatusRepairer) *Handler {
	return &Handler{svc: svc, uploader: uploader, repairer: repairer}
}

func questionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid question id")
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, key string) *int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// List handles GET /questions (?status=&creator_id=&typesetter_id=&subject_id=&limit=&offset=).
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{
		CreatorID:    queryInt64(c, "creator_id"),
		TypesetterID: queryInt64(c, "typesetter_id"),
		SubjectID:    queryInt64(c, "subject_id"),
	}
	if s := c.Query("status"); s != "" {
		st, ok := workflow.Parse(s)
		if !ok {
			response.BadRequest(c, "unknown status "+s)
			return
		}
		f.Status = st
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"questions": list})
}

// Get handles GET /questions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	q, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, q)
}

// Create handles POST /questions.
func (h *Handler) Create(c *gin.Context) {
	var req NewQuestion
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.svc.Create(c.Request.Context(), req, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, q)
}

// Update handles PATCH /questions/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	var patch ContentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.svc.UpdateContent(c.Request.Context(), id, patch, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, q)
}

// ChangeStatus handles POST /questions/:id/status.
func (h *Handler) ChangeStatus(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.svc.ChangeStatus(c.Request.Context(), id, req, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, q)
}

// versionView is a snapshot plus the fields that differ from the live record.
type versionView struct {
	models.QuestionVersion
	Changed []string `json:"changed"`
}

// Versions handles GET /questions/:id/versions.
func (h *Handler) Versions(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	list, err := h.svc.Versions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	live, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]versionView, 0, len(list))
	for i := range list {
		changed, err := versions.Diff(&list[i], live)
		if err != nil {
			response.Error(c, err)
			return
		}
		out = append(out, versionView{QuestionVersion: list[i], Changed: changed})
	}
	response.OK(c, gin.H{"versions": out})
}

// RestoreVersion handles POST /questions/:id/versions/:version/restore.
func (h *Handler) RestoreVersion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	number, err := strconv.Atoi(c.Param("version"))
	if err != nil || number <= 0 {
		response.BadRequest(c, "invalid version")
		return
	}
	q, err := h.svc.RestoreVersion(c.Request.Context(), id, number, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, q)
}

// Notes handles GET /questions/:id/notes.
func (h *Handler) Notes(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	list, err := h.svc.RevisionNotes(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"notes": list})
}

// Typesetting handles GET /questions/:id/typesetting.
func (h *Handler) Typesetting(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	list, err := h.svc.TypesettingHistory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"typesetting": list})
}

// UploadURL handles POST /questions/:id/assets/upload-url.
func (h *Handler) UploadURL(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	if h.uploader == nil {
		response.ServiceUnavailable(c, "asset storage not configured")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, ok := storage.AssetExtension(req.ContentType); !ok {
		response.BadRequest(c, "unsupported content type")
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	up, err := h.uploader.PresignAssetUpload(c.Request.Context(), id, req.ContentType)
	if err != nil {
		response.Internal(c, "failed to presign upload")
		return
	}
	response.OK(c, up)
}

// Delete handles DELETE /questions/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.MustActor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CompactIDs handles POST /admin/questions/compact-ids.
func (h *Handler) CompactIDs(c *gin.Context) {
	n, err := h.svc.CompactIDs(c.Request.Context(), middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"renumbered": n})
}

// RepairStatuses handles POST /admin/statuses/repair.
func (h *Handler) RepairStatuses(c *gin.Context) {
	n, err := h.repairer.RepairStatuses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"repaired": n})
}
