package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	defaultScale         = 1.0
	a4WidthMM            = 210
	a4HeightMM           = 297
)

// ChromedpConfig contains configuration for the headless browser
type ChromedpConfig struct {
	// DefaultTimeout bounds each surface operation
	DefaultTimeout time.Duration
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	// If empty, chromedp will launch a new browser instance
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Scale for printing (default: 1.0)
	Scale  float64
	Logger *zap.Logger
}

// SpoolWriter stores print output
type SpoolWriter interface {
	Store(ctx context.Context, req *StoreRequest) (*StoreResult, error)
}

// ChromedpBrowser owns the browser process. Each preview gets its own tab
// through NewSurface.
type ChromedpBrowser struct {
	config      ChromedpConfig
	logger      *zap.Logger
	spool       SpoolWriter
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpBrowser creates the browser allocator. Print output goes to spool.
func NewChromedpBrowser(config *ChromedpConfig, spool SpoolWriter) (*ChromedpBrowser, error) {
	b := &ChromedpBrowser{spool: spool, logger: zap.NewNop()}
	if config != nil {
		b.config = *config
	}
	if b.config.DefaultTimeout == 0 {
		b.config.DefaultTimeout = defaultChromeTimeout
	}
	if b.config.Scale == 0 {
		b.config.Scale = defaultScale
	}
	if b.config.Logger != nil {
		b.logger = b.config.Logger
	}

	if b.config.RemoteURL != "" {
		b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(context.Background(), b.config.RemoteURL)
		return b, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if b.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return b, nil
}

// NewSurface opens a new tab. id names the print output in the spool.
func (b *ChromedpBrowser) NewSurface(id uuid.UUID) *ChromedpSurface {
	if id == uuid.Nil {
		id = uuid.New()
	}
	tabCtx, cancel := chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			b.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	return &ChromedpSurface{browser: b, id: id, tabCtx: tabCtx, cancel: cancel}
}

// Close shuts the browser down
func (b *ChromedpBrowser) Close() error {
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

// ChromedpSurface is one browser tab with JavaScript execution disabled
type ChromedpSurface struct {
	browser *ChromedpBrowser
	id      uuid.UUID

	mu              sync.Mutex
	tabCtx          context.Context
	cancel          context.CancelFunc
	started         bool
	scriptsDisabled bool
	closed          bool
}

// Render loads document into the tab
func (s *ChromedpSurface) Render(ctx context.Context, document string) error {
	if strings.TrimSpace(document) == "" {
		return NewRenderError(ErrCodeInvalidHTML, "document is empty", nil)
	}
	return s.run(ctx, "render",
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, document).Do(ctx)
		}),
	)
}

// Open navigates the tab to a pre-rendered artifact
func (s *ChromedpSurface) Open(ctx context.Context, artifactURL string) error {
	return s.run(ctx, "open", chromedp.Navigate(artifactURL))
}

// Print prints the tab to PDF, honoring the document's @page rules, and
// stores the result in the spool. It returns the spool URL.
func (s *ChromedpSurface) Print(ctx context.Context) (string, error) {
	if s.browser.spool == nil {
		return "", NewRenderError(ErrCodeStorageFailed, "no print spool configured", nil)
	}

	var pdf []byte
	err := s.run(ctx, "print", chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPreferCSSPageSize(true).
			WithPaperWidth(mmToInches(a4WidthMM)).
			WithPaperHeight(mmToInches(a4HeightMM)).
			WithScale(s.browser.config.Scale).
			Do(ctx)
		if err != nil {
			return err
		}
		pdf = data
		return nil
	}))
	if err != nil {
		return "", err
	}
	if len(pdf) == 0 {
		return "", NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	result, err := s.browser.spool.Store(ctx, &StoreRequest{ID: s.id, Data: pdf, Ext: ".pdf"})
	if err != nil {
		return "", err
	}
	s.browser.logger.Info("letter printed",
		zap.String("id", s.id.String()),
		zap.Int("bytes", len(pdf)),
		zap.String("url", result.URL))
	return result.URL, nil
}

// Close closes the tab
func (s *ChromedpSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.cancel()
	}
	return nil
}

// run executes actions on the tab within the caller's context and the
// browser timeout. Scripts are disabled before the first page is loaded.
func (s *ChromedpSurface) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewRenderError(ErrCodeSurfaceUnavailable, "surface is closed", nil)
	}

	if !s.started {
		// the first Run allocates the tab; it must not use a context that is cancelled afterwards
		if err := chromedp.Run(s.tabCtx); err != nil {
			return NewRenderError(ErrCodeSurfaceUnavailable, "failed to start browser tab", err)
		}
		s.started = true
	}

	timeout := s.browser.config.DefaultTimeout
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if !s.scriptsDisabled {
		actions = append([]chromedp.Action{emulation.SetScriptExecutionDisabled(true)}, actions...)
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return NewRenderError(ErrCodeRenderTimeout, fmt.Sprintf("%s timed out after %v", op, timeout), err)
		}
		if ctx.Err() != nil {
			return NewRenderError(ErrCodeRenderTimeout, op+" was cancelled", ctx.Err())
		}
		s.browser.logger.Error("chromedp surface failed", zap.String("op", op), zap.Error(err))
		return NewRenderError(ErrCodeSurfaceUnavailable, "chromedp "+op+" failed", err)
	}
	s.scriptsDisabled = true
	return nil
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}

var _ Surface = (*ChromedpSurface)(nil)
