package printing

import (
	"context"
	"html"
	"strings"
	"sync"
)

// SandboxContentSecurityPolicy is sent with every page that displays a letter
const SandboxContentSecurityPolicy = "default-src 'none'; img-src data:; style-src 'unsafe-inline'; frame-src 'self' data: blob:; script-src 'none'; sandbox allow-modals"

// SandboxPage wraps a document in a host page that shows it inside an
// <iframe sandbox> with scripts disabled. The document is passed through
// srcdoc, so the frame never loads anything from the network.
func SandboxPage(document string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8">`)
	b.WriteString(`<meta http-equiv="Content-Security-Policy" content="`)
	b.WriteString(html.EscapeString(SandboxContentSecurityPolicy))
	b.WriteString(`"><style>html,body{margin:0;height:100%}iframe{border:0;width:100%;height:100%}</style></head><body>`)
	b.WriteString(`<iframe sandbox="allow-modals allow-same-origin" srcdoc="`)
	b.WriteString(html.EscapeString(document))
	b.WriteString(`"></iframe></body></html>`)
	return b.String()
}

// SandboxSurface keeps the page a browser host should display. Print records
// the request; the host performs the actual window.print.
type SandboxSurface struct {
	mu       sync.Mutex
	page     string
	artifact string
	prints   int
	closed   bool
}

// NewSandboxSurface creates an empty sandbox surface
func NewSandboxSurface() *SandboxSurface {
	return &SandboxSurface{}
}

// Render wraps document in a sandboxed page
func (s *SandboxSurface) Render(ctx context.Context, document string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewRenderError(ErrCodeSurfaceUnavailable, "surface is closed", nil)
	}
	s.page = SandboxPage(document)
	s.artifact = ""
	return nil
}

// Open displays the artifact in a sandboxed frame
func (s *SandboxSurface) Open(ctx context.Context, artifactURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewRenderError(ErrCodeSurfaceUnavailable, "surface is closed", nil)
	}
	s.artifact = artifactURL
	s.page = `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body style="margin:0">` +
		`<iframe sandbox src="` + html.EscapeString(artifactURL) + `" style="border:0;width:100%;height:100vh"></iframe>` +
		`</body></html>`
	return nil
}

// Print records one print request
func (s *SandboxSurface) Print(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", NewRenderError(ErrCodeSurfaceUnavailable, "surface is closed", nil)
	}
	s.prints++
	return "", nil
}

// Page returns the page to display
func (s *SandboxSurface) Page() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Artifact returns the displayed artifact URL, if any
func (s *SandboxSurface) Artifact() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// Prints returns how many times Print was called
func (s *SandboxSurface) Prints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prints
}

// Close discards the page
func (s *SandboxSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.page = ""
	return nil
}

var _ Surface = (*SandboxSurface)(nil)
