package printing

import (
	"strings"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
)

// Substitute replaces every {{name}} token in raw with the field value, or
// with "" when the field is absent. Values are inserted literally: they are
// neither escaped nor scanned again for tokens.
//
// Applying Substitute to its own output is a no-op only when no field value
// itself contains a {{name}} token. A value such as "{{b}}" survives the first
// pass literally and is expanded by a second one.
func Substitute(raw string, fields letter.FieldMap) string {
	if !strings.Contains(raw, "{{") {
		return raw
	}
	return letter.TokenPattern.ReplaceAllStringFunc(raw, func(token string) string {
		m := letter.TokenPattern.FindStringSubmatch(token)
		return fields.Value(m[1])
	})
}

// Substitutor wraps Substitute with optional missing-field validation
type Substitutor struct {
	// Strict makes Validate report tokens without a non-blank value
	Strict bool
}

// Substitute delegates to the package-level Substitute. It never fails.
func (s Substitutor) Substitute(raw string, fields letter.FieldMap) string {
	return Substitute(raw, fields)
}

// Validate returns MISSING_REQUIRED_FIELDS naming every token in raw that has
// no value. Outside strict mode it always returns nil.
func (s Substitutor) Validate(raw string, fields letter.FieldMap) error {
	if !s.Strict {
		return nil
	}
	missing := fields.Missing(letter.ExtractFieldNames(raw))
	if len(missing) == 0 {
		return nil
	}
	return shared.NewDomainError(shared.ErrMissingRequiredFields.Code,
		"Required fields are missing: "+strings.Join(missing, ", "))
}
