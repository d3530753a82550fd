package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	letterapp "github.com/Ayash13/tulip-sub000/internal/application/letter"
	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
	"github.com/Ayash13/tulip-sub000/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPrintSessionService implements PrintSessionService for testing
type MockPrintSessionService struct {
	mock.Mock
}

func (m *MockPrintSessionService) Open(ctx context.Context, requestID uuid.UUID, printable bool) (*letterapp.PrintSessionResponse, error) {
	args := m.Called(ctx, requestID, printable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*letterapp.PrintSessionResponse), args.Error(1)
}

func (m *MockPrintSessionService) OpenArtifact(ctx context.Context, artifactRef string, printable bool) (*letterapp.PrintSessionResponse, error) {
	args := m.Called(ctx, artifactRef, printable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*letterapp.PrintSessionResponse), args.Error(1)
}

func (m *MockPrintSessionService) Retry(ctx context.Context, sessionID uuid.UUID) (*letterapp.PrintSessionResponse, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*letterapp.PrintSessionResponse), args.Error(1)
}

func (m *MockPrintSessionService) Status(sessionID uuid.UUID) (*letterapp.PrintSessionResponse, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*letterapp.PrintSessionResponse), args.Error(1)
}

func (m *MockPrintSessionService) Page(sessionID uuid.UUID) (string, error) {
	args := m.Called(sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockPrintSessionService) Close(sessionID uuid.UUID) error {
	return m.Called(sessionID).Error(0)
}

func session(state printing.RenderState) *letterapp.PrintSessionResponse {
	return &letterapp.PrintSessionResponse{
		ID:        uuid.New(),
		CreatedAt: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
		Render:    printing.RenderSnapshot{State: state, Generation: 1},
	}
}

func TestPrintSessionHandler_Open(t *testing.T) {
	requestID := uuid.New()

	t.Run("from approved request", func(t *testing.T) {
		prints := new(MockPrintSessionService)
		prints.On("Open", mock.Anything, requestID, true).Return(session(printing.RenderStateReady), nil)

		w := doRequest(newLetterTestEngine(new(MockLetterService), prints), http.MethodPost, "/api/v1/letters/print-sessions",
			`{"request_id":"`+requestID.String()+`","printable":true}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"state":"READY"`)
		prints.AssertExpectations(t)
	})

	t.Run("ephemeral artifact ends in error", func(t *testing.T) {
		failed := session(printing.RenderStateError)
		failed.Render.ErrorCode = printing.ErrCodeEphemeralArtifact
		prints := new(MockPrintSessionService)
		prints.On("OpenArtifact", mock.Anything, "blob:https://portal.example.ac.id/3f2a", false).Return(failed, nil)

		w := doRequest(newLetterTestEngine(new(MockLetterService), prints), http.MethodPost, "/api/v1/letters/print-sessions",
			`{"artifact_ref":" blob:https://portal.example.ac.id/3f2a "}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"state":"ERROR"`)
		assert.Contains(t, w.Body.String(), printing.ErrCodeEphemeralArtifact)
	})

	t.Run("needs exactly one source", func(t *testing.T) {
		prints := new(MockPrintSessionService)
		engine := newLetterTestEngine(new(MockLetterService), prints)

		assert.Equal(t, http.StatusBadRequest, doRequest(engine, http.MethodPost, "/api/v1/letters/print-sessions", `{}`).Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(engine, http.MethodPost, "/api/v1/letters/print-sessions",
			`{"request_id":"`+requestID.String()+`","artifact_ref":"https://files.example.ac.id/a.pdf"}`).Code)
		prints.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unapproved request", func(t *testing.T) {
		prints := new(MockPrintSessionService)
		prints.On("Open", mock.Anything, requestID, false).
			Return(nil, shared.NewDomainError("INVALID_STATE", "Only approved letters have a final document"))

		w := doRequest(newLetterTestEngine(new(MockLetterService), prints), http.MethodPost, "/api/v1/letters/print-sessions",
			`{"request_id":"`+requestID.String()+`"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decodeResponse(t, w).Error.Code)
	})
}

func TestPrintSessionHandler_StatusRetryClose(t *testing.T) {
	current := session(printing.RenderStateError)
	id := current.ID
	retried := session(printing.RenderStateReady)
	retried.ID = id

	prints := new(MockPrintSessionService)
	prints.On("Status", id).Return(current, nil)
	prints.On("Retry", mock.Anything, id).Return(retried, nil)
	prints.On("Close", id).Return(nil).Once()
	prints.On("Close", id).Return(shared.ErrNotFound)
	engine := newLetterTestEngine(new(MockLetterService), prints)
	base := "/api/v1/letters/print-sessions/" + id.String()

	w := doRequest(engine, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"ERROR"`)

	w = doRequest(engine, http.MethodPost, base+"/retry", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"READY"`)

	assert.Equal(t, http.StatusNoContent, doRequest(engine, http.MethodDelete, base, "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(engine, http.MethodDelete, base, "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(engine, http.MethodGet, "/api/v1/letters/print-sessions/nope", "").Code)
}

func TestPrintSessionHandler_Page(t *testing.T) {
	id := uuid.New()
	prints := new(MockPrintSessionService)
	prints.On("Page", id).Return("<html><body>surat</body></html>", nil)
	headless := uuid.New()
	prints.On("Page", headless).Return("", shared.NewDomainError("INVALID_STATE", "Print session is displayed by a headless browser"))
	engine := newLetterTestEngine(new(MockLetterService), prints)

	w := doRequest(engine, http.MethodGet, "/api/v1/letters/print-sessions/"+id.String()+"/page", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html><body>surat</body></html>", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "sandbox")

	w = doRequest(engine, http.MethodGet, "/api/v1/letters/print-sessions/"+headless.String()+"/page", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLetterRoutes_WithoutPrintSessions(t *testing.T) {
	engine := newLetterTestEngine(new(MockLetterService), nil)
	w := doRequest(engine, http.MethodGet, "/api/v1/letters/print-sessions/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	group := LetterRoutes(NewLetterHandler(new(MockLetterService)), nil)
	for _, route := range group.Routes() {
		assert.NotEmpty(t, route.Description, route.Path)
	}
}
