package printing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine renders the embedded HTML layouts with html/template.
// Parsed layouts are cached by layout ID and reparsed when the content changes.
type TemplateEngine struct {
	funcMap template.FuncMap

	mu     sync.RWMutex
	parsed map[string]parsedLayout
}

type parsedLayout struct {
	content string
	tmpl    *template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithFuncs adds or overrides template functions
func WithFuncs(funcs template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewTemplateEngine creates a new template engine with default configuration
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		parsed: make(map[string]parsedLayout),
	}

	e.funcMap = template.FuncMap{
		// Text
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": titleCase,
		"trim":  strings.TrimSpace,
		"join":  strings.Join,

		// Dates and numbers
		"formatDate":    formatDate,
		"formatDecimal": formatDecimal,

		// Fields
		"field":   field,
		"default": defaultFunc,

		// Image sources are rewritten to data: URIs after rendering, so any
		// scheme must survive html/template's URL filter.
		"safeURL": safeURL,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Render executes a stored layout with the given data
func (e *TemplateEngine) Render(ctx context.Context, layout *Layout, data any) (string, error) {
	if layout == nil {
		return "", NewRenderError(ErrCodeLayoutNotFound, "layout is nil", nil)
	}
	tmpl, err := e.lookup(layout.ID, layout.Content)
	if err != nil {
		return "", err
	}
	return execute(tmpl, data)
}

// RenderString parses and renders an ad hoc template string without caching
func (e *TemplateEngine) RenderString(ctx context.Context, name, content string, data any) (string, error) {
	if content == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}
	return execute(tmpl, data)
}

func (e *TemplateEngine) lookup(id, content string) (*template.Template, error) {
	e.mu.RLock()
	cached, ok := e.parsed[id]
	e.mu.RUnlock()
	if ok && cached.content == content {
		return cached.tmpl, nil
	}
	if content == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}

	tmpl, err := template.New(id).Option("missingkey=zero").Funcs(e.funcMap).Parse(content)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}

	e.mu.Lock()
	e.parsed[id] = parsedLayout{content: content, tmpl: tmpl}
	e.mu.Unlock()
	return tmpl, nil
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// =============================================================================
// Template Functions
// =============================================================================

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// titleCase title-cases s using Indonesian rules, or English with lang "en".
// Casers are stateful, so one is built per call.
func titleCase(s string, lang ...string) string {
	tag := language.Indonesian
	if len(lang) > 0 && lang[0] == "en" {
		tag = language.English
	}
	return cases.Title(tag).String(strings.ToLower(s))
}

// formatDate formats a date in the letter register.
// lang "en" gives "15 January 2025"; anything else gives "15 Januari 2025".
func formatDate(v any, lang ...string) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	if len(lang) > 0 && lang[0] == "en" {
		return t.Format("2 January 2006")
	}
	return fmt.Sprintf("%d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
}

// formatDecimal formats a numeric value with fixed precision.
// Values that do not parse are returned unchanged.
func formatDecimal(v any, precision int) string {
	d, ok := toDecimal(v)
	if !ok {
		return fmt.Sprint(v)
	}
	return d.StringFixed(int32(precision))
}

// field reads a value from a FieldMap
func field(fields letter.FieldMap, name string) string {
	return fields.Value(name)
}

func defaultFunc(def string, val any) any {
	if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
		return def
	}
	if val == nil {
		return def
	}
	return val
}

// safeURL marks a string as a safe URL.
// Only used for image sources, which the asset embedder rewrites afterwards.
func safeURL(s string) template.URL {
	return template.URL(s)
}

// TitleCase title-cases a personal or place name for the given language
func TitleCase(s, lang string) string {
	return titleCase(s, lang)
}

// FormatDate formats a time.Time or date string in the letter register.
// Strings that do not parse as a date are returned trimmed and unchanged.
func FormatDate(v any, lang string) string {
	if out := formatDate(v, lang); out != "" {
		return out
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// FormatGPA formats a grade point average with two decimals, using a decimal
// comma for Indonesian. Values that do not parse are returned unchanged.
func FormatGPA(v, lang string) string {
	d, ok := toDecimal(v)
	if !ok {
		return strings.TrimSpace(v)
	}
	out := d.StringFixed(2)
	if lang != "en" {
		out = strings.Replace(out, ".", ",", 1)
	}
	return out
}

// =============================================================================
// Helper Functions
// =============================================================================

func toDecimal(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case float64:
		return decimal.NewFromFloat(val), true
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(val), ",", "."))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	case string:
		for _, f := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "02/01/2006"} {
			if t, err := time.Parse(f, strings.TrimSpace(val)); err == nil {
				return t
			}
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}
