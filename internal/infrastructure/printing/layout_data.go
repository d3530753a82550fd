package printing

import (
	"context"
	"html/template"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
)

// LayoutBuilder produces the body markup of one letter type.
// Builders place fields directly into their fixed layout; only the generic
// fallback runs Substitute over the template content.
type LayoutBuilder interface {
	// LetterType returns the letter type this builder handles
	LetterType() letter.LetterType
	// Build renders the body for one letter
	Build(ctx context.Context, in *LayoutInput) (string, error)
}

// LayoutResolver looks up the builder for a letter type
type LayoutResolver interface {
	Resolve(letterType letter.LetterType) (LayoutBuilder, bool)
}

// LayoutInput is everything a builder may place on the page
type LayoutInput struct {
	Template    *letter.Template
	Fields      letter.FieldMap
	Number      string
	Date        time.Time
	Institution string
	Signatory   Signatory
	Signatures  Signatures
	Photo       string
}

// Letterhead is the static institutional header
type Letterhead struct {
	Logo        string
	Institution string
	Unit        string
	Address     string
}

// Footer is the compliance block closing every document
type Footer struct {
	Notice string
	Marks  []string // accreditation mark image references
}

// Signatory is the official who signs on behalf of the institution
type Signatory struct {
	Name  string
	NIP   string
	Title string
	City  string
}

// Signatures holds signature image references
type Signatures struct {
	Institutional string
	Student       string
}

// Row is one label/value line of a letter's data table
type Row struct {
	Label string
	Value string
}

// Addressee is the recipient block of outgoing letters
type Addressee struct {
	Name        string
	Institution string
	Address     string
}

// LayoutData is the data a body layout is executed with
type LayoutData struct {
	Type        letter.LetterType
	Lang        string
	Title       string
	Subject     string
	Attachment  string
	Number      string
	Date        time.Time
	Institution string
	Fields      letter.FieldMap
	Rows        []Row
	Addressee   Addressee
	Signatory   Signatory
	Signatures  Signatures
	Photo       string
	Hints       letter.LayoutHints
	// Extra carries type-specific values; missing keys render empty
	Extra   map[string]string
	Content template.HTML
}

// NewLayoutData fills the values shared by every layout
func NewLayoutData(in *LayoutInput) *LayoutData {
	lt := in.Template.Type
	lang := "id"
	if lt.IsEnglish() {
		lang = "en"
	}
	title := titleFor(in.Template)
	return &LayoutData{
		Type:        lt,
		Lang:        lang,
		Title:       title,
		Subject:     title,
		Number:      in.Number,
		Date:        in.Date,
		Institution: in.Institution,
		Fields:      in.Fields,
		Signatory:   in.Signatory,
		Signatures:  in.Signatures,
		Photo:       in.Photo,
		Hints:       in.Template.Hints(),
		Extra:       make(map[string]string),
	}
}

// AddRow appends a row, skipping blank values
func (d *LayoutData) AddRow(label, value string) {
	if value == "" {
		return
	}
	d.Rows = append(d.Rows, Row{Label: label, Value: value})
}

// BodyRenderer executes stored body layouts
type BodyRenderer struct {
	engine *TemplateEngine
	store  *LayoutStore
}

// NewBodyRenderer creates a BodyRenderer
func NewBodyRenderer(engine *TemplateEngine, store *LayoutStore) *BodyRenderer {
	return &BodyRenderer{engine: engine, store: store}
}

// Render executes the layout stored under key
func (r *BodyRenderer) Render(ctx context.Context, key string, data *LayoutData) (string, error) {
	layout := r.store.Get(key)
	if layout == nil {
		return "", NewRenderError(ErrCodeLayoutNotFound, "layout not found: "+key, nil)
	}
	return r.engine.Render(ctx, layout, data)
}

// GenericLayout is the fallback for letter types without a builder:
// letterhead, the substituted template content and no custom signature placement.
type GenericLayout struct {
	bodies *BodyRenderer
}

// NewGenericLayout creates the fallback layout
func NewGenericLayout(bodies *BodyRenderer) *GenericLayout {
	return &GenericLayout{bodies: bodies}
}

// LetterType returns the empty type; the generic layout is never registered
func (g *GenericLayout) LetterType() letter.LetterType {
	return ""
}

// Build substitutes the raw template content and wraps it in the generic body
func (g *GenericLayout) Build(ctx context.Context, in *LayoutInput) (string, error) {
	data := NewLayoutData(in)
	data.Content = template.HTML(Substitute(in.Template.RawContent, in.Fields))
	return g.bodies.Render(ctx, LayoutKeyGeneric, data)
}

var _ LayoutBuilder = (*GenericLayout)(nil)
