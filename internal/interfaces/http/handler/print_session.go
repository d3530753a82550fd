package handler

import (
	"context"
	"strings"

	letterapp "github.com/Ayash13/tulip-sub000/internal/application/letter"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PrintSessionService is the application service behind print sessions
type PrintSessionService interface {
	Open(ctx context.Context, requestID uuid.UUID, printable bool) (*letterapp.PrintSessionResponse, error)
	OpenArtifact(ctx context.Context, artifactRef string, printable bool) (*letterapp.PrintSessionResponse, error)
	Retry(ctx context.Context, sessionID uuid.UUID) (*letterapp.PrintSessionResponse, error)
	Status(sessionID uuid.UUID) (*letterapp.PrintSessionResponse, error)
	Page(sessionID uuid.UUID) (string, error)
	Close(sessionID uuid.UUID) error
}

// PrintSessionHandler handles preview and print sessions
type PrintSessionHandler struct {
	BaseHandler
	sessions PrintSessionService
}

// NewPrintSessionHandler creates a new PrintSessionHandler
func NewPrintSessionHandler(sessions PrintSessionService) *PrintSessionHandler {
	return &PrintSessionHandler{sessions: sessions}
}

// OpenPrintSessionRequest opens a session for either an approved request
// or a pre-rendered artifact
type OpenPrintSessionRequest struct {
	RequestID   *uuid.UUID `json:"request_id"`
	ArtifactRef string     `json:"artifact_ref" binding:"omitempty,max=2048"`
	Printable   bool       `json:"printable"`
}

// Open starts a print session
//
//	@Router	/letters/print-sessions [post]
func (h *PrintSessionHandler) Open(c *gin.Context) {
	var req OpenPrintSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ref := strings.TrimSpace(req.ArtifactRef)
	if (req.RequestID == nil) == (ref == "") {
		h.BadRequest(c, "Exactly one of request_id and artifact_ref is required")
		return
	}

	var (
		result *letterapp.PrintSessionResponse
		err    error
	)
	if req.RequestID != nil {
		result, err = h.sessions.Open(c.Request.Context(), *req.RequestID, req.Printable)
	} else {
		result, err = h.sessions.OpenArtifact(c.Request.Context(), ref, req.Printable)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Status returns the render state of a session
//
//	@Router	/letters/print-sessions/{id} [get]
func (h *PrintSessionHandler) Status(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.sessions.Status(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Retry reloads a session that ended in the error state
//
//	@Router	/letters/print-sessions/{id}/retry [post]
func (h *PrintSessionHandler) Retry(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.sessions.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Page serves the sandboxed page of a session
//
//	@Router	/letters/print-sessions/{id}/page [get]
func (h *PrintSessionHandler) Page(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	page, err := h.sessions.Page(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.HTML(c, page)
}

// Close ends a session
//
//	@Router	/letters/print-sessions/{id} [delete]
func (h *PrintSessionHandler) Close(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.Close(id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
