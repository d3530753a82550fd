package printing

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpBrowser_Defaults(t *testing.T) {
	// a remote allocator does not connect until the first tab runs
	b, err := NewChromedpBrowser(&ChromedpConfig{RemoteURL: "ws://127.0.0.1:1/devtools/browser/x"}, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, defaultChromeTimeout, b.config.DefaultTimeout)
	assert.Equal(t, defaultScale, b.config.Scale)
	assert.NotNil(t, b.logger)
}

func TestChromedpSurface_WithoutBrowser(t *testing.T) {
	b, err := NewChromedpBrowser(&ChromedpConfig{RemoteURL: "ws://127.0.0.1:1/devtools/browser/x"}, nil)
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	t.Run("new surface gets an id", func(t *testing.T) {
		s := b.NewSurface(uuid.Nil)
		defer s.Close()
		assert.NotEqual(t, uuid.Nil, s.id)

		id := uuid.New()
		assert.Equal(t, id, b.NewSurface(id).id)
	})

	t.Run("empty document", func(t *testing.T) {
		s := b.NewSurface(uuid.New())
		defer s.Close()

		var renderErr *RenderError
		require.ErrorAs(t, s.Render(ctx, "  "), &renderErr)
		assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
	})

	t.Run("print needs a spool", func(t *testing.T) {
		s := b.NewSurface(uuid.New())
		defer s.Close()

		_, err := s.Print(ctx)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeStorageFailed, renderErr.Code)
	})

	t.Run("closed surface", func(t *testing.T) {
		s := b.NewSurface(uuid.New())
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		var renderErr *RenderError
		require.ErrorAs(t, s.Render(ctx, "<p>x</p>"), &renderErr)
		assert.Equal(t, ErrCodeSurfaceUnavailable, renderErr.Code)
	})

	t.Run("unreachable browser", func(t *testing.T) {
		s := b.NewSurface(uuid.New())
		defer s.Close()

		var renderErr *RenderError
		require.ErrorAs(t, s.Render(ctx, "<p>x</p>"), &renderErr)
		assert.Equal(t, ErrCodeSurfaceUnavailable, renderErr.Code)
	})
}

// TestChromedpSurface_PrintToSpool needs a local Chrome; set CHROMEDP_INTEGRATION=1 to run it
func TestChromedpSurface_PrintToSpool(t *testing.T) {
	if os.Getenv("CHROMEDP_INTEGRATION") == "" {
		t.Skip("CHROMEDP_INTEGRATION not set")
	}

	spool, err := NewFileSystemStorage(&FileSystemStorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	b, err := NewChromedpBrowser(&ChromedpConfig{NoSandbox: true, DefaultTimeout: time.Minute}, spool)
	require.NoError(t, err)
	defer b.Close()

	id := uuid.New()
	s := b.NewSurface(id)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Render(ctx, `<!DOCTYPE html><html><body><p id="x">SURAT</p><script>document.getElementById("x").textContent="DIUBAH"</script></body></html>`))
	url, err := s.Print(ctx)
	require.NoError(t, err)
	assert.Contains(t, url, id.String()+".pdf")

	ok, err := spool.Exists(ctx, url)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMmToInches(t *testing.T) {
	assert.InDelta(t, 8.27, mmToInches(a4WidthMM), 0.01)
	assert.InDelta(t, 11.69, mmToInches(a4HeightMM), 0.01)
	assert.Equal(t, 1.0, mmToInches(25.4))
}
