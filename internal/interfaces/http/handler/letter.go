package handler

import (
	"context"
	"strconv"

	letterapp "github.com/Ayash13/tulip-sub000/internal/application/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// LetterService is the application service behind the letter endpoints
type LetterService interface {
	LetterTypes() []letterapp.LetterTypeResponse
	PeekNumber(ctx context.Context, letterType string) (*letterapp.NumberResponse, error)
	Submit(ctx context.Context, req letterapp.SubmitRequest) (*letterapp.LetterRequestResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*letterapp.LetterRequestResponse, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]letterapp.LetterRequestResponse, error)
	Preview(ctx context.Context, req letterapp.PreviewRequest) (*letterapp.PreviewResponse, error)
	Approve(ctx context.Context, id uuid.UUID, approver string) (*letterapp.LetterRequestResponse, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*letterapp.LetterRequestResponse, error)
	RenderDocument(ctx context.Context, id uuid.UUID) (*letterapp.DocumentResponse, error)
	RequestUpload(ctx context.Context, id uuid.UUID, kind, contentType string) (*letterapp.SignatureUploadResponse, error)
}

// LetterHandler handles letter request endpoints
type LetterHandler struct {
	BaseHandler
	letters LetterService
}

// NewLetterHandler creates a new LetterHandler
func NewLetterHandler(letters LetterService) *LetterHandler {
	return &LetterHandler{letters: letters}
}

// ApproveRequest is the body of an approval. The approver falls back to
// the X-User-ID header.
type ApproveRequest struct {
	ApprovedBy string `json:"approved_by" binding:"omitempty,max=100"`
}

// RejectRequest is the body of a rejection
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// UploadRequest asks for a presigned upload URL
type UploadRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=signatures photos"`
	ContentType string `json:"content_type" binding:"required"`
}

// ListTypes returns every letter type with its classification code
//
//	@Router	/letters/types [get]
func (h *LetterHandler) ListTypes(c *gin.Context) {
	types := h.letters.LetterTypes()
	h.SuccessList(c, types, len(types), len(types))
}

// NextNumber peeks at the number the next approval of a type would receive
//
//	@Router	/letters/types/{type}/next-number [get]
func (h *LetterHandler) NextNumber(c *gin.Context) {
	result, err := h.letters.PeekNumber(c.Request.Context(), c.Param("type"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Preview assembles a preview and returns it as JSON
//
//	@Router	/letters/preview [post]
func (h *LetterHandler) Preview(c *gin.Context) {
	var req letterapp.PreviewRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.letters.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PreviewRender assembles a preview and serves it as a sandboxed page
//
//	@Router	/letters/preview/render [post]
func (h *LetterHandler) PreviewRender(c *gin.Context) {
	var req letterapp.PreviewRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.letters.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.HTML(c, result.HTML)
}

// Submit creates a pending letter request
//
//	@Router	/letters/requests [post]
func (h *LetterHandler) Submit(c *gin.Context) {
	var req letterapp.SubmitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.letters.Submit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List returns requests in a status, PENDING by default
//
//	@Router	/letters/requests [get]
func (h *LetterHandler) List(c *gin.Context) {
	status := c.DefaultQuery("status", "PENDING")
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			h.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		limit = n
	}

	result, err := h.letters.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, result, len(result), limit)
}

// Get returns one letter request
//
//	@Router	/letters/requests/{id} [get]
func (h *LetterHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.letters.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Approve allocates the letter number and approves the request
//
//	@Router	/letters/requests/{id}/approve [post]
func (h *LetterHandler) Approve(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req ApproveRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	approver := req.ApprovedBy
	if approver == "" {
		approver = getUserID(c)
	}
	if approver == "" {
		h.BadRequest(c, "Approver is required")
		return
	}

	ctx := logger.WithLetterRequestID(c.Request.Context(), id.String())
	result, err := h.letters.Approve(ctx, id, approver)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject rejects a pending request
//
//	@Router	/letters/requests/{id}/reject [post]
func (h *LetterHandler) Reject(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := logger.WithLetterRequestID(c.Request.Context(), id.String())
	result, err := h.letters.Reject(ctx, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Document serves the final document of an approved request
//
//	@Router	/letters/requests/{id}/document [get]
func (h *LetterHandler) Document(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	ctx := logger.WithLetterRequestID(c.Request.Context(), id.String())
	doc, err := h.letters.RenderDocument(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("X-Letter-Number", doc.Number)
	h.HTML(c, doc.HTML)
}

// RequestUpload returns a presigned URL for a signature or photo image
//
//	@Router	/letters/requests/{id}/uploads [post]
func (h *LetterHandler) RequestUpload(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req UploadRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.letters.RequestUpload(c.Request.Context(), id, req.Kind, req.ContentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
