package letter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
	infra "github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSessionTTL = 30 * time.Minute

// DocumentSource supplies final documents of approved requests
type DocumentSource interface {
	RenderDocument(ctx context.Context, id uuid.UUID) (*DocumentResponse, error)
}

// SurfaceFactory creates the display surface of one print session
type SurfaceFactory func(sessionID uuid.UUID) (infra.Surface, error)

// PrintSessionResponse is the state of one print session
type PrintSessionResponse struct {
	ID          uuid.UUID            `json:"id"`
	RequestID   *uuid.UUID           `json:"request_id,omitempty"`
	ArtifactRef string               `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Render      infra.RenderSnapshot `json:"render"`
}

type printSession struct {
	id          uuid.UUID
	requestID   *uuid.UUID
	artifactRef string
	createdAt   time.Time
	surface     infra.Surface
	renderer    *infra.Renderer
}

// PageSurface is a surface whose page the HTTP host serves itself
type PageSurface interface {
	Page() string
}

func (p *printSession) response() *PrintSessionResponse {
	return &PrintSessionResponse{
		ID:          p.id,
		RequestID:   p.requestID,
		ArtifactRef: p.artifactRef,
		CreatedAt:   p.createdAt,
		Render:      p.renderer.Snapshot(),
	}
}

// PrintServiceConfig configures a PrintService
type PrintServiceConfig struct {
	// Renderer is the template for each session's renderer
	Renderer infra.RendererConfig
	// SessionTTL closes sessions older than this on the next Open (default 30m)
	SessionTTL time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

// PrintService keeps in-memory preview/print sessions, one renderer and
// surface each
type PrintService struct {
	documents  DocumentSource
	newSurface SurfaceFactory
	config     PrintServiceConfig
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*printSession
}

// NewPrintService creates a new PrintService
func NewPrintService(documents DocumentSource, newSurface SurfaceFactory, config *PrintServiceConfig) *PrintService {
	s := &PrintService{
		documents:  documents,
		newSurface: newSurface,
		logger:     zap.NewNop(),
		sessions:   make(map[uuid.UUID]*printSession),
	}
	if config != nil {
		s.config = *config
	}
	if s.config.SessionTTL <= 0 {
		s.config.SessionTTL = defaultSessionTTL
	}
	if s.config.Now == nil {
		s.config.Now = time.Now
	}
	if s.config.Logger != nil {
		s.logger = s.config.Logger
	}
	if s.config.Renderer.Logger == nil {
		s.config.Renderer.Logger = s.logger.Named("renderer")
	}
	return s
}

// Open starts a session showing the final document of an approved request.
// In printable mode the print action runs once after the settle delay.
func (s *PrintService) Open(ctx context.Context, requestID uuid.UUID, printable bool) (*PrintSessionResponse, error) {
	doc, err := s.documents.RenderDocument(ctx, requestID)
	if err != nil {
		return nil, err
	}
	session, err := s.start(&requestID, "")
	if err != nil {
		return nil, err
	}
	session.renderer.Load(ctx, infra.RenderInput{Document: doc.HTML, Printable: printable})
	return session.response(), nil
}

// OpenArtifact starts a session showing a pre-rendered artifact. Unreachable
// or ephemeral artifacts leave the session in the error state.
func (s *PrintService) OpenArtifact(ctx context.Context, artifactRef string, printable bool) (*PrintSessionResponse, error) {
	artifactRef = strings.TrimSpace(artifactRef)
	if artifactRef == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Artifact reference is required")
	}
	session, err := s.start(nil, artifactRef)
	if err != nil {
		return nil, err
	}
	session.renderer.Load(ctx, infra.RenderInput{ArtifactRef: artifactRef, Printable: printable})
	return session.response(), nil
}

// Retry reloads a session's last input after an error
func (s *PrintService) Retry(ctx context.Context, sessionID uuid.UUID) (*PrintSessionResponse, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	session.renderer.Retry(ctx)
	return session.response(), nil
}

// Status returns the current state of a session
func (s *PrintService) Status(sessionID uuid.UUID) (*PrintSessionResponse, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return session.response(), nil
}

// Page returns the sandboxed page of a session whose surface is served over HTTP
func (s *PrintService) Page(sessionID uuid.UUID) (string, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return "", err
	}
	ps, ok := session.surface.(PageSurface)
	if !ok {
		return "", shared.NewDomainError("INVALID_STATE", "Print session is displayed by a headless browser")
	}
	return ps.Page(), nil
}

// Close ends a session and releases its surface
func (s *PrintService) Close(sessionID uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return shared.ErrNotFound
	}
	return session.renderer.Close()
}

// CloseAll ends every session
func (s *PrintService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*printSession)
	s.mu.Unlock()
	for _, session := range sessions {
		if err := session.renderer.Close(); err != nil {
			s.logger.Warn("failed to close print session", zap.String("session_id", session.id.String()), zap.Error(err))
		}
	}
}

// Len returns the number of open sessions
func (s *PrintService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *PrintService) start(requestID *uuid.UUID, artifactRef string) (*printSession, error) {
	s.closeExpired()

	id := uuid.New()
	surface, err := s.newSurface(id)
	if err != nil {
		return nil, fmt.Errorf("failed to create print surface: %w", err)
	}
	cfg := s.config.Renderer
	cfg.Logger = cfg.Logger.With(zap.String("session_id", id.String()))

	session := &printSession{
		id:          id,
		requestID:   requestID,
		artifactRef: artifactRef,
		createdAt:   s.config.Now(),
		surface:     surface,
		renderer:    infra.NewRenderer(surface, &cfg),
	}
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	return session, nil
}

func (s *PrintService) get(sessionID uuid.UUID) (*printSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "Print session not found")
	}
	return session, nil
}

func (s *PrintService) closeExpired() {
	cutoff := s.config.Now().Add(-s.config.SessionTTL)
	var expired []*printSession

	s.mu.Lock()
	for id, session := range s.sessions {
		if session.createdAt.Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		if err := session.renderer.Close(); err != nil {
			s.logger.Warn("failed to close expired print session",
				zap.String("session_id", session.id.String()), zap.Error(err))
		}
	}
}
