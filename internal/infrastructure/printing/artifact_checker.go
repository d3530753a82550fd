package printing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// CheckerFunc adapts a function to ArtifactChecker
type CheckerFunc func(ctx context.Context, ref string) (bool, error)

// Exists calls f
func (f CheckerFunc) Exists(ctx context.Context, ref string) (bool, error) {
	return f(ctx, ref)
}

// HTTPArtifactChecker checks artifacts with a HEAD request.
// Servers that refuse HEAD are asked for the first byte instead.
type HTTPArtifactChecker struct {
	client *http.Client
}

// NewHTTPArtifactChecker creates a checker; a nil client uses http.DefaultClient
func NewHTTPArtifactChecker(client *http.Client) *HTTPArtifactChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPArtifactChecker{client: client}
}

// Exists returns true on 2xx, false on 404 or 410 and an error otherwise
func (c *HTTPArtifactChecker) Exists(ctx context.Context, ref string) (bool, error) {
	status, err := c.do(ctx, http.MethodHead, ref)
	if err != nil {
		return false, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		if status, err = c.do(ctx, http.MethodGet, ref); err != nil {
			return false, err
		}
	}
	switch {
	case status >= 200 && status < 300:
		return true, nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return false, nil
	default:
		return false, fmt.Errorf("artifact check returned status %d", status)
	}
}

func (c *HTTPArtifactChecker) do(ctx context.Context, method, ref string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, ref, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid artifact reference: %w", err)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, nil
}

// MultiChecker dispatches on the reference scheme. References without a
// scheme go to the checker registered for "".
type MultiChecker struct {
	mu       sync.RWMutex
	checkers map[string]ArtifactChecker
}

// NewMultiChecker creates an empty MultiChecker
func NewMultiChecker() *MultiChecker {
	return &MultiChecker{checkers: make(map[string]ArtifactChecker)}
}

// Register sets the checker for scheme, replacing any previous one
func (m *MultiChecker) Register(scheme string, checker ArtifactChecker) *MultiChecker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[strings.ToLower(scheme)] = checker
	return m
}

// Exists delegates to the checker of ref's scheme
func (m *MultiChecker) Exists(ctx context.Context, ref string) (bool, error) {
	scheme := ""
	if u, err := url.Parse(strings.TrimSpace(ref)); err == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	m.mu.RLock()
	checker, ok := m.checkers[scheme]
	m.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("no artifact checker for scheme %q", scheme)
	}
	return checker.Exists(ctx, ref)
}

var (
	_ ArtifactChecker = CheckerFunc(nil)
	_ ArtifactChecker = (*HTTPArtifactChecker)(nil)
	_ ArtifactChecker = (*MultiChecker)(nil)
)
