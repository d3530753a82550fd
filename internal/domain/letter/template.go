package letter

import (
	"regexp"
	"strings"
	"sync"

	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TokenPattern matches a {{field}} placeholder. Surrounding spaces inside the
// braces are allowed; the captured name is trimmed.
var TokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

var (
	templateValidator     *validator.Validate
	templateValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	templateValidatorOnce.Do(func() {
		templateValidator = validator.New()
	})
	return templateValidator
}

// Template is a letter body with {{field}} tokens, owned by the template store.
// It is treated as immutable once loaded.
type Template struct {
	ID          uuid.UUID   `json:"id"`
	Type        LetterType  `json:"type" validate:"required,max=64"`
	Name        string      `json:"name" validate:"max=200"`
	RawContent  string      `json:"raw_content" validate:"required"`
	FieldNames  []string    `json:"field_names" validate:"dive,required,max=100"`
	LayoutHints LayoutHints `json:"layout_hints"`
}

// NewTemplate creates a validated Template. FieldNames are derived from the
// content when not given.
func NewTemplate(letterType LetterType, name, rawContent string, fieldNames []string, hints LayoutHints) (*Template, error) {
	t := &Template{
		ID:          uuid.New(),
		Type:        letterType,
		Name:        strings.TrimSpace(name),
		RawContent:  rawContent,
		FieldNames:  fieldNames,
		LayoutHints: hints.WithDefaults(),
	}
	if len(t.FieldNames) == 0 {
		t.FieldNames = ExtractFieldNames(rawContent)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the template invariants
func (t *Template) Validate() error {
	if err := getValidator().Struct(t); err != nil {
		return shared.NewDomainError("INVALID_TEMPLATE", "Invalid template: "+err.Error())
	}
	if !t.Type.IsValid() {
		return shared.NewDomainError("INVALID_LETTER_TYPE", "Template letter type is required")
	}
	return nil
}

// Hints returns the layout hints with defaults applied
func (t *Template) Hints() LayoutHints {
	if t == nil {
		return DefaultLayoutHints()
	}
	return t.LayoutHints.WithDefaults()
}

// ExtractFieldNames returns the distinct token names in order of first appearance
func ExtractFieldNames(raw string) []string {
	matches := TokenPattern.FindAllStringSubmatch(raw, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
