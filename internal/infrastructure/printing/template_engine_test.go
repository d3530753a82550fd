package printing

import (
	"context"
	"html/template"
	"testing"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplateEngine(t *testing.T) {
	engine := NewTemplateEngine()
	assert.NotNil(t, engine)

	for _, name := range []string{"upper", "title", "formatDate", "formatDecimal", "field", "default", "safeURL"} {
		assert.NotNil(t, engine.funcMap[name], name)
	}
}

func TestTemplateEngine_WithFuncs(t *testing.T) {
	engine := NewTemplateEngine(WithFuncs(template.FuncMap{
		"upper": func(s string) string { return "<" + s + ">" },
	}))

	out, err := engine.RenderString(context.Background(), "t", `{{upper "x"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "&lt;x&gt;", out)
}

func TestTemplateEngine_Render(t *testing.T) {
	engine := NewTemplateEngine()
	ctx := context.Background()

	t.Run("renders layout", func(t *testing.T) {
		layout := &Layout{ID: "greeting", Content: `<p>Hello, {{.Name}}!</p>`}
		out, err := engine.Render(ctx, layout, map[string]string{"Name": "Budi"})
		require.NoError(t, err)
		assert.Equal(t, "<p>Hello, Budi!</p>", out)
	})

	t.Run("nil layout", func(t *testing.T) {
		_, err := engine.Render(ctx, nil, nil)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeLayoutNotFound, renderErr.Code)
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := engine.Render(ctx, &Layout{ID: "empty"}, nil)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
	})

	t.Run("invalid template", func(t *testing.T) {
		_, err := engine.Render(ctx, &Layout{ID: "broken", Content: `{{if .X}}`}, nil)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
	})

	t.Run("missing map keys render empty", func(t *testing.T) {
		layout := &Layout{ID: "extra", Content: `[{{.Extra.Missing}}]`}
		out, err := engine.Render(ctx, layout, &LayoutData{Extra: map[string]string{}})
		require.NoError(t, err)
		assert.Equal(t, "[]", out)
	})

	t.Run("values are escaped", func(t *testing.T) {
		layout := &Layout{ID: "escape", Content: `<p>{{.}}</p>`}
		out, err := engine.Render(ctx, layout, `<script>alert(1)</script>`)
		require.NoError(t, err)
		assert.NotContains(t, out, "<script>")
	})
}

func TestTemplateEngine_ReparsesChangedContent(t *testing.T) {
	engine := NewTemplateEngine()
	ctx := context.Background()

	out, err := engine.Render(ctx, &Layout{ID: "same-id", Content: "one"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	out, err = engine.Render(ctx, &Layout{ID: "same-id", Content: "two"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestTemplateEngine_RenderString(t *testing.T) {
	engine := NewTemplateEngine()

	out, err := engine.RenderString(context.Background(), "t", `{{title .}}`, "SITI AMINAH")
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", out)

	_, err = engine.RenderString(context.Background(), "t", "", nil)
	assert.Error(t, err)
}

func TestTemplateEngine_SafeURLKeepsImageSources(t *testing.T) {
	engine := NewTemplateEngine()
	ref := "blob:https://portal.example.ac.id/6f1c2a4e"

	out, err := engine.RenderString(context.Background(), "t", `<img src="{{safeURL .}}">`, ref)
	require.NoError(t, err)
	assert.Contains(t, out, `src="`+ref+`"`)
}

// =============================================================================
// Template Function Tests
// =============================================================================

func TestFormatDate(t *testing.T) {
	testTime := time.Date(2025, 8, 17, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name     string
		input    any
		lang     string
		expected string
	}{
		{"time.Time", testTime, "id", "17 Agustus 2025"},
		{"*time.Time", &testTime, "id", "17 Agustus 2025"},
		{"english", testTime, "en", "17 August 2025"},
		{"date string", "2025-01-05", "id", "5 Januari 2025"},
		{"day first string", "05/12/2024", "id", "5 Desember 2024"},
		{"zero time", time.Time{}, "id", ""},
		{"nil *time.Time", (*time.Time)(nil), "id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDate(tt.input, tt.lang))
		})
	}

	assert.Equal(t, "awal semester", FormatDate(" awal semester ", "id"))
	assert.Equal(t, "", FormatDate(42, "id"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Budi Santoso", TitleCase("BUDI SANTOSO", "id"))
	assert.Equal(t, "Universitas Padjadjaran", TitleCase("universitas padjadjaran", "en"))
	assert.Equal(t, "", TitleCase("", "id"))
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "1234.57", formatDecimal(decimal.NewFromFloat(1234.5678), 2))
	assert.Equal(t, "1235", formatDecimal(1234.5678, 0))
	assert.Equal(t, "n/a", formatDecimal("n/a", 2))
}

func TestFormatGPA(t *testing.T) {
	tests := []struct {
		in, lang, expected string
	}{
		{"3.5", "id", "3,50"},
		{"3,756", "id", "3,76"},
		{"3.8", "en", "3.80"},
		{" 4 ", "en", "4.00"},
		{"cum laude", "id", "cum laude"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatGPA(tt.in, tt.lang), tt.in)
	}
}

func TestField(t *testing.T) {
	fields := letter.NewFieldMap("nama", "Budi")
	assert.Equal(t, "Budi", field(fields, "nama"))
	assert.Equal(t, "", field(fields, "alamat"))
}

func TestDefaultFunc(t *testing.T) {
	assert.Equal(t, "default", defaultFunc("default", ""))
	assert.Equal(t, "default", defaultFunc("default", "  "))
	assert.Equal(t, "value", defaultFunc("default", "value"))
	assert.Equal(t, "default", defaultFunc("default", nil))
	assert.Equal(t, 0, defaultFunc("default", 0))
}

func TestToTime(t *testing.T) {
	testTime := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    any
		expected time.Time
	}{
		{"time.Time", testTime, testTime},
		{"*time.Time", &testTime, testTime},
		{"RFC3339 string", "2024-01-15T14:30:00Z", testTime},
		{"datetime string", "2024-01-15 14:30:00", testTime},
		{"date string", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"invalid string", "bukan tanggal", time.Time{}},
		{"unsupported", 1705330200, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, toTime(tt.input))
		})
	}
}
