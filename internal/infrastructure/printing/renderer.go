package printing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultSettleDelay     = 500 * time.Millisecond
	defaultArtifactTimeout = 5 * time.Second
	defaultPrintTimeout    = 30 * time.Second
)

// RenderState is the state of a preview/print renderer
type RenderState string

const (
	RenderStateIdle    RenderState = "IDLE"
	RenderStateLoading RenderState = "LOADING"
	RenderStateReady   RenderState = "READY"
	RenderStateError   RenderState = "ERROR"
)

// String returns the string representation of RenderState
func (s RenderState) String() string {
	return string(s)
}

// Surface displays documents with scripts disabled and exposes the host's print action
type Surface interface {
	// Render replaces the displayed content with document
	Render(ctx context.Context, document string) error
	// Open displays a pre-rendered artifact
	Open(ctx context.Context, artifactURL string) error
	// Print invokes the print action and returns a reference to its output, if any
	Print(ctx context.Context) (string, error)
	// Close releases the surface
	Close() error
}

// ArtifactChecker verifies that a pre-rendered artifact can be reached
type ArtifactChecker interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// RenderInput is either an assembled document or an artifact reference.
// An artifact reference takes precedence; there is no fallback to the document.
type RenderInput struct {
	Document    string
	ArtifactRef string
	// Printable invokes the print action once the input is displayed
	Printable bool
}

func (in RenderInput) isArtifact() bool {
	return strings.TrimSpace(in.ArtifactRef) != ""
}

// RenderSnapshot is a point-in-time view of a renderer
type RenderSnapshot struct {
	State        RenderState `json:"state"`
	Generation   uint64      `json:"generation"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CanRetry     bool        `json:"can_retry"`
	ArtifactURL  string      `json:"artifact_url,omitempty"`
	Printable    bool        `json:"printable"`
	Printed      bool        `json:"printed"`
	PrintRef     string      `json:"print_ref,omitempty"`
	PrintError   string      `json:"print_error,omitempty"`
}

// RendererConfig configures a Renderer
type RendererConfig struct {
	// SettleDelay is the wait between READY and the print action (default 500ms)
	SettleDelay time.Duration
	// ArtifactTimeout bounds the artifact existence check (default 5s)
	ArtifactTimeout time.Duration
	// PrintTimeout bounds the print action (default 30s)
	PrintTimeout time.Duration
	Checker      ArtifactChecker
	Logger       *zap.Logger
	// Metrics counts transitions into ERROR; nil disables counting
	Metrics *telemetry.LetterMetrics
}

// Renderer drives one preview: IDLE -> LOADING -> READY or ERROR, back to
// LOADING on every new input. In printable mode it prints at most once.
type Renderer struct {
	surface Surface
	config  RendererConfig
	logger  *zap.Logger

	// renderMu serializes surface calls
	renderMu sync.Mutex

	mu         sync.Mutex
	state      RenderState
	generation uint64
	last       *RenderInput
	err        *RenderError
	canRetry   bool
	artifact   string
	printable  bool
	printed    bool
	printRef   string
	printErr   string
	printTimer *time.Timer
	closed     bool
}

// NewRenderer creates a renderer in the IDLE state
func NewRenderer(surface Surface, config *RendererConfig) *Renderer {
	r := &Renderer{
		surface: surface,
		state:   RenderStateIdle,
		logger:  zap.NewNop(),
	}
	if config != nil {
		r.config = *config
	}
	if r.config.SettleDelay <= 0 {
		r.config.SettleDelay = defaultSettleDelay
	}
	if r.config.ArtifactTimeout <= 0 {
		r.config.ArtifactTimeout = defaultArtifactTimeout
	}
	if r.config.PrintTimeout <= 0 {
		r.config.PrintTimeout = defaultPrintTimeout
	}
	if r.config.Logger != nil {
		r.logger = r.config.Logger
	}
	return r
}

// Load displays a new input. It returns once the renderer reached READY or
// ERROR for this input, or once a newer Load superseded it.
func (r *Renderer) Load(ctx context.Context, in RenderInput) RenderSnapshot {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.Snapshot()
	}
	r.generation++
	gen := r.generation
	input := in
	r.last = &input
	r.state = RenderStateLoading
	r.err = nil
	r.canRetry = false
	r.artifact = ""
	r.printable = in.Printable
	r.mu.Unlock()

	r.run(ctx, gen, in)
	return r.Snapshot()
}

// Retry reloads the last input after an error. In any other state it
// returns the current snapshot unchanged.
func (r *Renderer) Retry(ctx context.Context) RenderSnapshot {
	r.mu.Lock()
	if r.state != RenderStateError || r.last == nil || !r.canRetry {
		r.mu.Unlock()
		return r.Snapshot()
	}
	in := *r.last
	r.mu.Unlock()
	return r.Load(ctx, in)
}

// Snapshot returns the current state
func (r *Renderer) Snapshot() RenderSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := RenderSnapshot{
		State:       r.state,
		Generation:  r.generation,
		CanRetry:    r.canRetry,
		ArtifactURL: r.artifact,
		Printable:   r.printable,
		Printed:     r.printed,
		PrintRef:    r.printRef,
		PrintError:  r.printErr,
	}
	if r.err != nil {
		snap.ErrorCode = r.err.Code
		snap.ErrorMessage = r.err.Message
	}
	return snap
}

// Close stops a pending print and releases the surface
func (r *Renderer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.printTimer != nil {
		r.printTimer.Stop()
	}
	r.mu.Unlock()

	r.renderMu.Lock()
	defer r.renderMu.Unlock()
	if r.surface == nil {
		return nil
	}
	return r.surface.Close()
}

func (r *Renderer) run(ctx context.Context, gen uint64, in RenderInput) {
	r.renderMu.Lock()
	defer r.renderMu.Unlock()

	if !r.isCurrent(gen) {
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "renderer.load",
		attribute.Int64("render.generation", int64(gen)),
		attribute.Bool("render.artifact", in.isArtifact()))
	defer span.End()

	var (
		artifactURL string
		renderErr   *RenderError
		retryable   bool
	)
	if in.isArtifact() {
		artifactURL = strings.TrimSpace(in.ArtifactRef)
		renderErr, retryable = r.showArtifact(ctx, artifactURL)
	} else {
		renderErr, retryable = r.showDocument(ctx, in.Document)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation || r.closed {
		r.logger.Debug("discarding superseded render", zap.Uint64("generation", gen))
		return
	}
	if renderErr != nil {
		r.state = RenderStateError
		r.err = renderErr
		r.canRetry = retryable
		r.config.Metrics.RecordRenderError(ctx, renderErr.Code)
		span.SetAttributes(attribute.String("render.error_code", renderErr.Code))
		telemetry.RecordError(span, renderErr)
		r.logger.Error("preview failed",
			zap.String("code", renderErr.Code),
			zap.String("message", renderErr.Message),
			zap.Error(renderErr.Cause))
		return
	}
	r.state = RenderStateReady
	r.artifact = artifactURL
	if in.Printable {
		r.schedulePrintLocked(gen)
	}
}

func (r *Renderer) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.generation && !r.closed
}

func (r *Renderer) showDocument(ctx context.Context, doc string) (*RenderError, bool) {
	if r.surface == nil {
		return NewRenderError(ErrCodeSurfaceUnavailable, "no render surface available", nil), true
	}
	if strings.TrimSpace(doc) == "" {
		doc = ContentUnavailableDocument
	}
	if err := r.surface.Render(ctx, doc); err != nil {
		return surfaceError("failed to display document", err), true
	}
	return nil, false
}

func (r *Renderer) showArtifact(ctx context.Context, ref string) (*RenderError, bool) {
	if IsEphemeral(ref) {
		return NewRenderError(ErrCodeEphemeralArtifact, EphemeralArtifactMessage, nil), false
	}
	if r.config.Checker == nil {
		return NewRenderError(ErrCodeArtifactUnreachable, "no artifact checker configured", nil), true
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.config.ArtifactTimeout)
	defer cancel()
	ok, err := r.config.Checker.Exists(checkCtx, ref)
	if err != nil {
		return NewRenderError(ErrCodeArtifactUnreachable, "artifact could not be reached", err), true
	}
	if !ok {
		return NewRenderError(ErrCodeArtifactUnreachable, "artifact does not exist", nil), true
	}

	if r.surface == nil {
		return NewRenderError(ErrCodeSurfaceUnavailable, "no render surface available", nil), true
	}
	if err := r.surface.Open(ctx, ref); err != nil {
		return surfaceError("failed to display artifact", err), true
	}
	return nil, false
}

func surfaceError(message string, err error) *RenderError {
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return renderErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewRenderError(ErrCodeRenderTimeout, message, err)
	}
	return NewRenderError(ErrCodeSurfaceUnavailable, message, err)
}

// schedulePrintLocked arms the one print of this renderer. r.mu must be held.
func (r *Renderer) schedulePrintLocked(gen uint64) {
	if r.printed {
		return
	}
	if r.printTimer != nil {
		r.printTimer.Stop()
	}
	r.printTimer = time.AfterFunc(r.config.SettleDelay, func() {
		r.print(gen)
	})
}

func (r *Renderer) print(gen uint64) {
	r.mu.Lock()
	if r.closed || r.printed || gen != r.generation || r.state != RenderStateReady {
		// superseded before the settle delay elapsed
		r.mu.Unlock()
		return
	}
	r.printed = true
	r.mu.Unlock()

	r.renderMu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), r.config.PrintTimeout)
	ref, err := r.surface.Print(ctx)
	cancel()
	r.renderMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.printErr = err.Error()
		r.logger.Error("print action failed", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	r.printRef = ref
	r.logger.Info("document printed", zap.Uint64("generation", gen), zap.String("print_ref", ref))
}
