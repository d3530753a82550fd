package printing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/infrastructure/cache"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/telemetry"
	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TransparentPlaceholder is a 1x1 transparent GIF. It replaces every image
// reference that cannot be inlined.
const TransparentPlaceholder = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

const (
	defaultFetchTimeout     = 5 * time.Second
	defaultEmbedConcurrency = 4
)

// ephemeralPattern matches session-local references anywhere in markup
var ephemeralPattern = regexp.MustCompile(`(?i)\b(?:blob|filesystem):[^\s"'<>()]+`)

// IsInline reports whether ref is already a data: URI
func IsInline(ref string) bool {
	return hasSchemePrefix(strings.TrimSpace(ref), "data:")
}

// IsEphemeral reports whether ref is a session-local handle (blob: or
// filesystem:). Such references cannot be fetched once the page that
// produced them is gone.
func IsEphemeral(ref string) bool {
	ref = strings.TrimSpace(ref)
	return hasSchemePrefix(ref, "blob:") || hasSchemePrefix(ref, "filesystem:")
}

// ContainsEphemeral reports whether s contains a session-local reference anywhere
func ContainsEphemeral(s string) bool {
	return ephemeralPattern.MatchString(s)
}

func hasSchemePrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// AssetEmbedderConfig configures the asset embedder
type AssetEmbedderConfig struct {
	// FetchTimeout bounds each individual fetch (default 5s)
	FetchTimeout time.Duration
	// BaseURL resolves relative references; without it they become placeholders
	BaseURL string
	// Concurrency bounds parallel fetches in EmbedAllIn (default 4)
	Concurrency int
	// MaxBytes caps the size of a fetched asset (default 5MB)
	MaxBytes int64
}

// AssetEmbedder converts image references into inline data: URIs.
// It never fails: anything it cannot inline becomes TransparentPlaceholder.
type AssetEmbedder struct {
	cache       cache.AssetCache
	fetchers    map[string]Fetcher
	baseURL     *url.URL
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
	metrics     *telemetry.LetterMetrics
	group       singleflight.Group

	fetches int64
}

// AssetEmbedderOption is a functional option for the embedder
type AssetEmbedderOption func(*AssetEmbedder)

// WithAssetCache replaces the default in-memory cache
func WithAssetCache(c cache.AssetCache) AssetEmbedderOption {
	return func(e *AssetEmbedder) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithFetcher registers a fetcher for a URL scheme, replacing any existing one
func WithFetcher(scheme string, f Fetcher) AssetEmbedderOption {
	return func(e *AssetEmbedder) {
		if f != nil {
			e.fetchers[strings.ToLower(scheme)] = f
		}
	}
}

// WithEmbedderLogger sets the logger
func WithEmbedderLogger(logger *zap.Logger) AssetEmbedderOption {
	return func(e *AssetEmbedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEmbedderMetrics counts placeholder fallbacks by reason
func WithEmbedderMetrics(m *telemetry.LetterMetrics) AssetEmbedderOption {
	return func(e *AssetEmbedder) {
		e.metrics = m
	}
}

// NewAssetEmbedder creates an embedder with an HTTP fetcher for http and
// https and an in-memory cache. Use options to add schemes or share a cache.
func NewAssetEmbedder(config *AssetEmbedderConfig, opts ...AssetEmbedderOption) *AssetEmbedder {
	if config == nil {
		config = &AssetEmbedderConfig{}
	}

	e := &AssetEmbedder{
		fetchers:    make(map[string]Fetcher),
		timeout:     config.FetchTimeout,
		concurrency: config.Concurrency,
		logger:      zap.NewNop(),
	}
	if e.timeout <= 0 {
		e.timeout = defaultFetchTimeout
	}
	if e.concurrency <= 0 {
		e.concurrency = defaultEmbedConcurrency
	}

	httpFetcher := NewHTTPFetcher(nil, e.timeout, config.MaxBytes)
	e.fetchers["http"] = httpFetcher
	e.fetchers["https"] = httpFetcher

	for _, opt := range opts {
		opt(e)
	}

	if config.BaseURL != "" {
		if u, err := url.Parse(config.BaseURL); err == nil && u.IsAbs() {
			e.baseURL = u
		} else {
			e.logger.Warn("ignoring invalid asset base URL", zap.String("base_url", config.BaseURL))
		}
	}
	if e.cache == nil {
		e.cache = cache.NewInMemoryAssetCache(cache.WithInMemoryLogger(e.logger))
	}

	return e
}

// FetchCount returns how many fetches have been attempted (cache misses that
// reached a fetcher)
func (e *AssetEmbedder) FetchCount() int64 {
	return atomic.LoadInt64(&e.fetches)
}

// Embed returns ref as a data: URI. Inline references come back unchanged;
// ephemeral, unresolvable and failed references come back as TransparentPlaceholder.
// Successful results are cached under the original reference.
func (e *AssetEmbedder) Embed(ctx context.Context, ref string) string {
	trimmed := strings.TrimSpace(ref)
	switch {
	case trimmed == "":
		e.metrics.RecordPlaceholderFallback(ctx, telemetry.FallbackEmpty)
		return TransparentPlaceholder
	case IsInline(trimmed):
		return ref
	case IsEphemeral(trimmed):
		e.logger.Warn("ephemeral asset reference replaced by placeholder", zap.String("ref", truncateRef(trimmed)))
		e.metrics.RecordPlaceholderFallback(ctx, telemetry.FallbackEphemeral)
		return TransparentPlaceholder
	}

	if inline, ok, err := e.cache.Get(ctx, ref); err != nil {
		e.logger.Warn("asset cache read failed", zap.String("ref", ref), zap.Error(err))
	} else if ok {
		return inline
	}

	abs, err := e.resolve(trimmed)
	if err != nil {
		e.logger.Warn("asset reference could not be resolved", zap.String("ref", ref), zap.Error(err))
		e.metrics.RecordPlaceholderFallback(ctx, telemetry.FallbackUnresolvable)
		return TransparentPlaceholder
	}

	v, err, _ := e.group.Do(ref, func() (any, error) {
		return e.fetchInline(ctx, abs)
	})
	if err != nil {
		e.logger.Warn("asset fetch failed, using placeholder",
			zap.String("ref", ref),
			zap.String("resolved", abs.String()),
			zap.Error(err))
		e.metrics.RecordPlaceholderFallback(ctx, telemetry.FallbackFetchFailed)
		return TransparentPlaceholder
	}

	inline := v.(string)
	if err := e.cache.Set(ctx, ref, inline); err != nil {
		e.logger.Warn("asset cache write failed", zap.String("ref", ref), zap.Error(err))
	}
	return inline
}

// resolve turns ref into an absolute URL. Protocol-relative references get https.
func (e *AssetEmbedder) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() {
		return u, nil
	}
	if strings.HasPrefix(ref, "//") {
		u.Scheme = "https"
		return u, nil
	}
	if e.baseURL == nil {
		return nil, errors.New("relative reference without a base URL")
	}
	return e.baseURL.ResolveReference(u), nil
}

func (e *AssetEmbedder) fetchInline(ctx context.Context, abs *url.URL) (inline string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "asset_embedder.fetch",
		attribute.String(telemetry.SpanAttrAssetScheme, strings.ToLower(abs.Scheme)),
		attribute.String(telemetry.SpanAttrAssetHost, abs.Host))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	fetcher, ok := e.fetchers[strings.ToLower(abs.Scheme)]
	if !ok {
		return "", fmt.Errorf("no fetcher for scheme %q", abs.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	atomic.AddInt64(&e.fetches, 1)
	data, err := fetcher.Fetch(ctx, abs.String())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("fetch timed out after %v: %w", e.timeout, err)
		}
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty asset")
	}
	span.SetAttributes(attribute.Int(telemetry.SpanAttrAssetBytes, len(data)))

	mediaType := mimetype.Detect(data).String()
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("asset is %s, not an image", mediaType)
	}

	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// truncateRef keeps log lines short for long handles
func truncateRef(ref string) string {
	if len(ref) > 96 {
		return ref[:96] + "..."
	}
	return ref
}
