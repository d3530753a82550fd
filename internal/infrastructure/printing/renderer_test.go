package printing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSurface records surface calls
type fakeSurface struct {
	mu        sync.Mutex
	rendered  []string
	opened    []string
	prints    int
	closed    bool
	renderErr error
	openErr   error
	printErr  error
	printRef  string
	// block, when set, holds Render until it is closed
	block chan struct{}
}

func (s *fakeSurface) Render(ctx context.Context, document string) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderErr != nil {
		return s.renderErr
	}
	s.rendered = append(s.rendered, document)
	return nil
}

func (s *fakeSurface) Open(ctx context.Context, artifactURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.opened = append(s.opened, artifactURL)
	return nil
}

func (s *fakeSurface) Print(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prints++
	return s.printRef, s.printErr
}

func (s *fakeSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSurface) printCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prints
}

func (s *fakeSurface) renderedDocs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rendered...)
}

func (s *fakeSurface) openedRefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

func newTestRenderer(surface Surface, checker ArtifactChecker) *Renderer {
	return NewRenderer(surface, &RendererConfig{
		SettleDelay:     10 * time.Millisecond,
		ArtifactTimeout: time.Second,
		PrintTimeout:    time.Second,
		Checker:         checker,
	})
}

func TestNewRenderer_Defaults(t *testing.T) {
	r := NewRenderer(&fakeSurface{}, nil)
	assert.Equal(t, defaultSettleDelay, r.config.SettleDelay)
	assert.Equal(t, defaultArtifactTimeout, r.config.ArtifactTimeout)
	assert.Equal(t, defaultPrintTimeout, r.config.PrintTimeout)
	assert.NotNil(t, r.logger)

	snap := r.Snapshot()
	assert.Equal(t, RenderStateIdle, snap.State)
	assert.Zero(t, snap.Generation)
	assert.False(t, snap.CanRetry)
}

func TestRenderer_LoadDocument(t *testing.T) {
	surface := &fakeSurface{}
	r := newTestRenderer(surface, nil)
	defer r.Close()

	snap := r.Load(context.Background(), RenderInput{Document: "<p>surat</p>"})
	assert.Equal(t, RenderStateReady, snap.State)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Empty(t, snap.ErrorCode)
	assert.Equal(t, []string{"<p>surat</p>"}, surface.renderedDocs())

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, surface.printCount(), "preview mode never prints")
}

func TestRenderer_EmptyDocumentShowsUnavailable(t *testing.T) {
	surface := &fakeSurface{}
	r := newTestRenderer(surface, nil)
	defer r.Close()

	snap := r.Load(context.Background(), RenderInput{Document: "  "})
	assert.Equal(t, RenderStateReady, snap.State)
	assert.Equal(t, []string{ContentUnavailableDocument}, surface.renderedDocs())
}

func TestRenderer_PrintsOnceAfterSettle(t *testing.T) {
	surface := &fakeSurface{printRef: "/api/v1/prints/2025/05/x.pdf"}
	r := newTestRenderer(surface, nil)
	defer r.Close()
	ctx := context.Background()

	snap := r.Load(ctx, RenderInput{Document: "<p>surat</p>", Printable: true})
	assert.Equal(t, RenderStateReady, snap.State)
	assert.False(t, snap.Printed)
	assert.Zero(t, surface.printCount(), "print waits for the settle delay")

	assert.Eventually(t, func() bool {
		return r.Snapshot().PrintRef != ""
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, surface.printCount())

	// a reload of a printed renderer does not print again
	r.Load(ctx, RenderInput{Document: "<p>surat 2</p>", Printable: true})
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, surface.printCount())

	snap = r.Snapshot()
	assert.True(t, snap.Printed)
	assert.Equal(t, "/api/v1/prints/2025/05/x.pdf", snap.PrintRef)
}

func TestRenderer_PrintFailureIsRecorded(t *testing.T) {
	surface := &fakeSurface{printErr: errors.New("printer offline")}
	r := newTestRenderer(surface, nil)
	defer r.Close()

	r.Load(context.Background(), RenderInput{Document: "<p>surat</p>", Printable: true})
	assert.Eventually(t, func() bool {
		return r.Snapshot().PrintError != ""
	}, time.Second, 5*time.Millisecond)

	snap := r.Snapshot()
	assert.Equal(t, RenderStateReady, snap.State)
	assert.Contains(t, snap.PrintError, "printer offline")
}

func TestRenderer_SupersededLoadIsDiscarded(t *testing.T) {
	surface := &fakeSurface{block: make(chan struct{})}
	r := newTestRenderer(surface, nil)
	defer r.Close()
	ctx := context.Background()

	first := make(chan RenderSnapshot, 1)
	go func() {
		first <- r.Load(ctx, RenderInput{Document: "<p>lama</p>", Printable: true})
	}()
	assert.Eventually(t, func() bool {
		return r.Snapshot().State == RenderStateLoading
	}, time.Second, time.Millisecond)

	second := make(chan RenderSnapshot, 1)
	go func() {
		second <- r.Load(ctx, RenderInput{Document: "<p>baru</p>", Printable: true})
	}()
	assert.Eventually(t, func() bool {
		return r.Snapshot().Generation == 2
	}, time.Second, time.Millisecond)

	close(surface.block)
	<-first
	snap := <-second

	assert.Equal(t, RenderStateReady, snap.State)
	assert.Equal(t, uint64(2), snap.Generation)
	docs := surface.renderedDocs()
	require.NotEmpty(t, docs)
	assert.Equal(t, "<p>baru</p>", docs[len(docs)-1])

	assert.Eventually(t, func() bool {
		return surface.printCount() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, surface.printCount())
}

func TestRenderer_RenderFailure(t *testing.T) {
	surface := &fakeSurface{renderErr: errors.New("tab crashed")}
	r := newTestRenderer(surface, nil)
	defer r.Close()
	ctx := context.Background()

	snap := r.Load(ctx, RenderInput{Document: "<p>surat</p>", Printable: true})
	assert.Equal(t, RenderStateError, snap.State)
	assert.Equal(t, ErrCodeSurfaceUnavailable, snap.ErrorCode)
	assert.True(t, snap.CanRetry)

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, surface.printCount(), "no print from the error state")

	surface.mu.Lock()
	surface.renderErr = nil
	surface.mu.Unlock()

	snap = r.Retry(ctx)
	assert.Equal(t, RenderStateReady, snap.State)
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Eventually(t, func() bool {
		return surface.printCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRenderer_RenderTimeout(t *testing.T) {
	surface := &fakeSurface{renderErr: context.DeadlineExceeded}
	r := newTestRenderer(surface, nil)
	defer r.Close()

	snap := r.Load(context.Background(), RenderInput{Document: "<p>surat</p>"})
	assert.Equal(t, RenderStateError, snap.State)
	assert.Equal(t, ErrCodeRenderTimeout, snap.ErrorCode)
}

func TestRenderer_NilSurface(t *testing.T) {
	r := newTestRenderer(nil, nil)

	snap := r.Load(context.Background(), RenderInput{Document: "<p>surat</p>"})
	assert.Equal(t, RenderStateError, snap.State)
	assert.Equal(t, ErrCodeSurfaceUnavailable, snap.ErrorCode)
	assert.True(t, snap.CanRetry)
	assert.NoError(t, r.Close())
}

func TestRenderer_EphemeralArtifact(t *testing.T) {
	for _, ref := range []string{
		"blob:https://akademik.example.ac.id/6f1c2f0e",
		"filesystem:https://akademik.example.ac.id/temporary/surat.pdf",
	} {
		t.Run(ref, func(t *testing.T) {
			surface := &fakeSurface{}
			checked := false
			checker := CheckerFunc(func(ctx context.Context, ref string) (bool, error) {
				checked = true
				return true, nil
			})
			r := newTestRenderer(surface, checker)
			defer r.Close()

			snap := r.Load(context.Background(), RenderInput{
				Document:    "<p>surat</p>",
				ArtifactRef: ref,
				Printable:   true,
			})
			assert.Equal(t, RenderStateError, snap.State)
			assert.Equal(t, ErrCodeEphemeralArtifact, snap.ErrorCode)
			assert.Equal(t, EphemeralArtifactMessage, snap.ErrorMessage)
			assert.False(t, snap.CanRetry)
			assert.False(t, checked)
			assert.Empty(t, surface.renderedDocs(), "no fallback to the document")
			assert.Empty(t, surface.openedRefs())

			// retry is not offered
			assert.Equal(t, snap.Generation, r.Retry(context.Background()).Generation)
		})
	}
}

func TestRenderer_UnreachableArtifact(t *testing.T) {
	const ref = "https://files.example.ac.id/surat/006.pdf"
	surface := &fakeSurface{}
	var (
		mu     sync.Mutex
		exists bool
		calls  int
	)
	checker := CheckerFunc(func(ctx context.Context, got string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.Equal(t, ref, got)
		return exists, nil
	})
	r := newTestRenderer(surface, checker)
	defer r.Close()
	ctx := context.Background()

	snap := r.Load(ctx, RenderInput{Document: "<p>fallback</p>", ArtifactRef: ref, Printable: true})
	assert.Equal(t, RenderStateError, snap.State)
	assert.Equal(t, ErrCodeArtifactUnreachable, snap.ErrorCode)
	assert.True(t, snap.CanRetry)
	assert.Empty(t, surface.renderedDocs(), "no fallback to the document")
	assert.Empty(t, surface.openedRefs())

	mu.Lock()
	exists = true
	mu.Unlock()

	snap = r.Retry(ctx)
	assert.Equal(t, RenderStateReady, snap.State)
	assert.Equal(t, ref, snap.ArtifactURL)
	assert.Equal(t, []string{ref}, surface.openedRefs())
	assert.Empty(t, surface.renderedDocs())
	assert.Equal(t, 2, calls)

	assert.Eventually(t, func() bool {
		return surface.printCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRenderer_ArtifactCheckError(t *testing.T) {
	checker := CheckerFunc(func(ctx context.Context, ref string) (bool, error) {
		return false, errors.New("connection refused")
	})
	r := newTestRenderer(&fakeSurface{}, checker)
	defer r.Close()

	snap := r.Load(context.Background(), RenderInput{ArtifactRef: "https://files.example.ac.id/x.pdf"})
	assert.Equal(t, RenderStateError, snap.State)
	assert.Equal(t, ErrCodeArtifactUnreachable, snap.ErrorCode)
	assert.True(t, snap.CanRetry)
}

func TestRenderer_ArtifactWithoutChecker(t *testing.T) {
	r := newTestRenderer(&fakeSurface{}, nil)
	defer r.Close()

	snap := r.Load(context.Background(), RenderInput{ArtifactRef: "https://files.example.ac.id/x.pdf"})
	assert.Equal(t, RenderStateError, snap.State)
	assert.Equal(t, ErrCodeArtifactUnreachable, snap.ErrorCode)
}

func TestRenderer_RetryOutsideError(t *testing.T) {
	surface := &fakeSurface{}
	r := newTestRenderer(surface, nil)
	defer r.Close()
	ctx := context.Background()

	assert.Equal(t, RenderStateIdle, r.Retry(ctx).State)

	r.Load(ctx, RenderInput{Document: "<p>surat</p>"})
	snap := r.Retry(ctx)
	assert.Equal(t, RenderStateReady, snap.State)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Len(t, surface.renderedDocs(), 1)
}

func TestRenderer_Close(t *testing.T) {
	surface := &fakeSurface{}
	r := NewRenderer(surface, &RendererConfig{SettleDelay: 20 * time.Millisecond})
	ctx := context.Background()

	r.Load(ctx, RenderInput{Document: "<p>surat</p>", Printable: true})
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, surface.printCount(), "pending print is cancelled")
	assert.True(t, surface.closed)

	// loads after close are ignored
	snap := r.Load(ctx, RenderInput{Document: "<p>lagi</p>"})
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Len(t, surface.renderedDocs(), 1)
}

func TestRenderState_String(t *testing.T) {
	assert.Equal(t, "IDLE", RenderStateIdle.String())
	assert.Equal(t, "LOADING", RenderStateLoading.String())
	assert.Equal(t, "READY", RenderStateReady.String())
	assert.Equal(t, "ERROR", RenderStateError.String())
}
