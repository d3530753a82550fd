package printing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher retrieves the bytes behind an absolute asset reference
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, ref string) ([]byte, error)

// Fetch calls f(ctx, ref)
func (f FetcherFunc) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}

const defaultMaxAssetBytes = 5 << 20

// HTTPFetcher fetches http and https references
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates an HTTP fetcher. A nil client gets one with the
// given timeout; maxBytes <= 0 uses 5MB.
func NewHTTPFetcher(client *http.Client, timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxAssetBytes
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads ref. Non-2xx responses and oversized bodies are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("asset exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

// FileFetcher serves file:// references from below a root directory
type FileFetcher struct {
	root string
}

// NewFileFetcher creates a fetcher confined to root
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{root: filepath.Clean(root)}
}

// Fetch reads the file named by a file:// reference
func (f *FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid file reference: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "file") {
		return nil, fmt.Errorf("not a file reference: %s", ref)
	}

	fullPath := filepath.Join(f.root, filepath.FromSlash(filepath.Clean("/"+u.Path)))
	rel, err := filepath.Rel(f.root, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("path traversal detected: %s", u.Path)
	}

	return os.ReadFile(fullPath)
}

var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = (*FileFetcher)(nil)
)
