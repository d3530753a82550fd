package printing

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func pngBytes(t *testing.T) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(onePixelPNG)
	require.NoError(t, err)
	return b
}

// imageServer serves a PNG on every path except /missing, /text, /slow and /big
func imageServer(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	png := pngBytes(t)
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("not an image at all"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write(png)
		case "/big":
			_, _ = w.Write(append(png, make([]byte, 4096)...))
		default:
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestEmbedder(t *testing.T, cfg *AssetEmbedderConfig, opts ...AssetEmbedderOption) *AssetEmbedder {
	t.Helper()
	c := cache.NewInMemoryAssetCache()
	t.Cleanup(func() { _ = c.Close() })
	return NewAssetEmbedder(cfg, append([]AssetEmbedderOption{WithAssetCache(c)}, opts...)...)
}

func TestIsInlineAndIsEphemeral(t *testing.T) {
	tests := []struct {
		ref       string
		inline    bool
		ephemeral bool
	}{
		{"data:image/png;base64,AAAA", true, false},
		{"  DATA:image/gif;base64,AAAA", true, false},
		{"blob:https://portal.example.ac.id/6f1c2a4e", false, true},
		{"BLOB:null/123", false, true},
		{"filesystem:https://portal.example.ac.id/temporary/ttd.png", false, true},
		{"https://cdn.example.ac.id/logo.png", false, false},
		{"/static/logo.png", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.inline, IsInline(tt.ref))
			assert.Equal(t, tt.ephemeral, IsEphemeral(tt.ref))
		})
	}
}

func TestAssetEmbedder_EphemeralNeverFetched(t *testing.T) {
	var calls int64
	counting := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		atomic.AddInt64(&calls, 1)
		return pngBytes(t), nil
	})
	e := newTestEmbedder(t, nil,
		WithFetcher("blob", counting),
		WithFetcher("filesystem", counting),
		WithFetcher("https", counting),
	)

	ctx := context.Background()
	for _, ref := range []string{
		"blob:https://portal.example.ac.id/6f1c2a4e-5b7d-4c1e-9a0f-3e2d1c0b9a87",
		"filesystem:https://portal.example.ac.id/temporary/ttd.png",
	} {
		got := e.Embed(ctx, ref)
		assert.Equal(t, TransparentPlaceholder, got)
		assert.NotEqual(t, ref, got)
	}

	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
	assert.Equal(t, int64(0), e.FetchCount())
}

func TestAssetEmbedder_InlineUnchanged(t *testing.T) {
	e := newTestEmbedder(t, nil)
	ctx := context.Background()

	inline := "data:image/png;base64," + onePixelPNG
	assert.Equal(t, inline, e.Embed(ctx, inline))
	assert.Equal(t, inline, e.Embed(ctx, e.Embed(ctx, inline)))
	assert.Equal(t, TransparentPlaceholder, e.Embed(ctx, TransparentPlaceholder))
	assert.Equal(t, int64(0), e.FetchCount())
}

func TestAssetEmbedder_FetchAndCache(t *testing.T) {
	srv, hits := imageServer(t)
	e := newTestEmbedder(t, &AssetEmbedderConfig{FetchTimeout: time.Second})
	ctx := context.Background()

	ref := srv.URL + "/ttd/dekan.png"
	first := e.Embed(ctx, ref)
	assert.True(t, strings.HasPrefix(first, "data:image/png;base64,"), first)

	second := e.Embed(ctx, ref)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits), "second embed is served from cache")
}

func TestAssetEmbedder_FailuresBecomePlaceholder(t *testing.T) {
	srv, _ := imageServer(t)

	tests := []struct {
		name string
		ref  string
	}{
		{"not found", srv.URL + "/missing"},
		{"not an image", srv.URL + "/text"},
		{"timeout", srv.URL + "/slow"},
		{"too large", srv.URL + "/big"},
		{"unknown scheme", "ftp://files.example.ac.id/logo.png"},
		{"relative without base", "static/logo.png"},
		{"unreachable host", "http://127.0.0.1:1/logo.png"},
		{"blank", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.WarnLevel)
			e := newTestEmbedder(t,
				&AssetEmbedderConfig{FetchTimeout: 50 * time.Millisecond, MaxBytes: 1024},
				WithEmbedderLogger(zap.New(core)))

			assert.Equal(t, TransparentPlaceholder, e.Embed(context.Background(), tt.ref))
			if strings.TrimSpace(tt.ref) != "" {
				assert.NotZero(t, recorded.Len(), "degradation is logged")
			}
		})
	}
}

func TestAssetEmbedder_FailureNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	fetcher := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		if fail.Load() {
			return nil, errors.New("connection reset")
		}
		return pngBytes(t), nil
	})
	e := newTestEmbedder(t, nil, WithFetcher("https", fetcher))
	ctx := context.Background()

	ref := "https://cdn.example.ac.id/logo.png"
	assert.Equal(t, TransparentPlaceholder, e.Embed(ctx, ref))

	fail.Store(false)
	assert.True(t, strings.HasPrefix(e.Embed(ctx, ref), "data:image/png;base64,"))
	assert.Equal(t, int64(2), e.FetchCount())
}

func TestAssetEmbedder_RelativeReferences(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	png := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, &AssetEmbedderConfig{BaseURL: srv.URL + "/assets/"})
	got := e.Embed(context.Background(), "img/logo-unpad.png")

	assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"))
	assert.Equal(t, []string{"/assets/img/logo-unpad.png"}, paths)
}

func TestAssetEmbedder_ProtocolRelative(t *testing.T) {
	var seen string
	e := newTestEmbedder(t, nil, WithFetcher("https", FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		seen = ref
		return pngBytes(t), nil
	})))

	e.Embed(context.Background(), "//cdn.example.ac.id/logo.png")
	assert.Equal(t, "https://cdn.example.ac.id/logo.png", seen)
}

func TestAssetEmbedder_ConcurrentSameReference(t *testing.T) {
	srv, hits := imageServer(t)
	e := newTestEmbedder(t, nil)
	ref := srv.URL + "/logo.png"

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Embed(context.Background(), ref)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.LessOrEqual(t, atomic.LoadInt64(hits), int64(len(results)))
}

func TestFileFetcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ttd"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ttd", "dekan.png"), pngBytes(t), 0o644))

	f := NewFileFetcher(root)
	ctx := context.Background()

	data, err := f.Fetch(ctx, "file:///ttd/dekan.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), data)

	_, err = f.Fetch(ctx, "file:///../../etc/passwd")
	assert.Error(t, err, "paths are confined to the root")

	_, err = f.Fetch(ctx, "https://cdn.example.ac.id/x.png")
	assert.Error(t, err)

	e := newTestEmbedder(t, nil, WithFetcher("file", f))
	assert.True(t, strings.HasPrefix(e.Embed(ctx, "file:///ttd/dekan.png"), "data:image/png;base64,"))
}
