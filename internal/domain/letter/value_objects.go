package letter

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
)

// Margins represents the page margins in millimeters
type Margins struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// NewMargins creates a new Margins value object
func NewMargins(top, right, bottom, left int) (Margins, error) {
	if top < 0 || right < 0 || bottom < 0 || left < 0 {
		return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot be negative")
	}
	if top > 100 || right > 100 || bottom > 100 || left > 100 {
		return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot exceed 100mm")
	}
	return Margins{Top: top, Right: right, Bottom: bottom, Left: left}, nil
}

// DefaultMargins returns the margins used by the institutional A4 letter
func DefaultMargins() Margins {
	return Margins{Top: 15, Right: 20, Bottom: 15, Left: 25}
}

// IsZero returns true if all margins are zero
func (m Margins) IsZero() bool {
	return m.Top == 0 && m.Right == 0 && m.Bottom == 0 && m.Left == 0
}

// LayoutHints carries presentation preferences attached to a template
type LayoutHints struct {
	Font     string  `json:"font" validate:"max=100"`
	FontSize int     `json:"font_size" validate:"gte=0,lte=32"`
	Margins  Margins `json:"margins"`
}

// DefaultLayoutHints returns Times New Roman 12pt with default margins
func DefaultLayoutHints() LayoutHints {
	return LayoutHints{
		Font:     "Times New Roman",
		FontSize: 12,
		Margins:  DefaultMargins(),
	}
}

// WithDefaults fills empty hint values from DefaultLayoutHints
func (h LayoutHints) WithDefaults() LayoutHints {
	d := DefaultLayoutHints()
	if h.Font == "" {
		h.Font = d.Font
	}
	if h.FontSize == 0 {
		h.FontSize = d.FontSize
	}
	if h.Margins.IsZero() {
		h.Margins = d.Margins
	}
	return h
}

// FieldMap is an insertion-ordered mapping of field name to value.
// Setting an existing key replaces its value but keeps its position.
// The zero value is ready to use.
type FieldMap struct {
	keys   []string
	values map[string]string
}

// NewFieldMap builds a FieldMap from alternating name/value pairs.
// A trailing name without a value is ignored.
func NewFieldMap(pairs ...string) FieldMap {
	var m FieldMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// FieldMapFromMap builds a FieldMap from a plain map with keys in sorted order
func FieldMapFromMap(src map[string]string) FieldMap {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var m FieldMap
	for _, k := range keys {
		m.Set(k, src[k])
	}
	return m
}

// Set assigns a value; the last write for a key wins
func (m *FieldMap) Set(name, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[name]; !exists {
		m.keys = append(m.keys, name)
	}
	m.values[name] = value
}

// Get returns the value for name and whether it was present
func (m FieldMap) Get(name string) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Value returns the value for name or the empty string
func (m FieldMap) Value(name string) string {
	return m.values[name]
}

// Has reports whether name is present (even with an empty value)
func (m FieldMap) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Keys returns field names in insertion order
func (m FieldMap) Keys() []string {
	return slices.Clone(m.keys)
}

// Len returns the number of fields
func (m FieldMap) Len() int {
	return len(m.keys)
}

// Map returns a plain copy of the values
func (m FieldMap) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy
func (m FieldMap) Clone() FieldMap {
	var c FieldMap
	for _, k := range m.keys {
		c.Set(k, m.values[k])
	}
	return c
}

// Missing returns the names that are absent or blank, in the given order
func (m FieldMap) Missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if v, ok := m.values[name]; !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// MarshalJSON encodes the map as a JSON object in insertion order
func (m FieldMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range m.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document order of keys.
// Duplicate keys keep their first position and their last value.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = FieldMap{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return shared.NewDomainError("INVALID_INPUT", "fields must be a JSON object")
	}
	var out FieldMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out.Set(key, rawToString(raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// rawToString converts a JSON scalar into the string inserted into a letter.
// null becomes "", strings are unquoted, numbers and booleans keep their literal text.
func rawToString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}
