package printing

import (
	"context"
	"html/template"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"go.uber.org/zap"
)

// ContentUnavailableDocument is returned when there is nothing to assemble
const ContentUnavailableDocument = `<!DOCTYPE html>
<html lang="id">
<head><meta charset="utf-8"><title>Konten tidak tersedia</title></head>
<body><p class="content-unavailable">Konten surat tidak tersedia.</p></body>
</html>`

// MarkupEmbedder inlines every image reference of a document
type MarkupEmbedder interface {
	EmbedAllIn(ctx context.Context, markup string) string
}

// NumberPeeker previews the next letter number without allocating it
type NumberPeeker interface {
	Peek(ctx context.Context, letterType letter.LetterType, year int) (string, error)
	Prefix() string
}

// AssemblerConfig configures the document assembler
type AssemblerConfig struct {
	Letterhead Letterhead
	Footer     Footer
	Signatory  Signatory
	// SignatureRef is the institutional signature used when a letter has none
	SignatureRef string
	// Peeker supplies preview numbers; without it previews show a pending number
	Peeker NumberPeeker
	Logger *zap.Logger
	// Now is used for the letter date when none is given (default time.Now)
	Now func() time.Time
}

// AssembleOptions carries the per-letter values that do not come from the template
type AssembleOptions struct {
	// Number is the allocated number. Final renders require it.
	Number string
	// Final marks an approved render; previews leave it false
	Final      bool
	Year       int
	Date       time.Time
	Signatures Signatures
	Photo      string
}

// Assembler composes complete letter documents
type Assembler struct {
	bodies   *BodyRenderer
	engine   *TemplateEngine
	store    *LayoutStore
	resolver LayoutResolver
	generic  LayoutBuilder
	embedder MarkupEmbedder
	config   AssemblerConfig
	logger   *zap.Logger
}

// documentData is the data of the document shell
type documentData struct {
	Lang       string
	Title      string
	Hints      letter.LayoutHints
	Letterhead Letterhead
	Body       template.HTML
	Footer     Footer
}

// NewAssembler creates an assembler. Letter types the resolver does not know
// use the generic layout.
func NewAssembler(engine *TemplateEngine, store *LayoutStore, resolver LayoutResolver, embedder MarkupEmbedder, config *AssemblerConfig) *Assembler {
	a := &Assembler{
		bodies:   NewBodyRenderer(engine, store),
		engine:   engine,
		store:    store,
		resolver: resolver,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	if config != nil {
		a.config = *config
	}
	if a.config.Logger != nil {
		a.logger = a.config.Logger
	}
	if a.config.Now == nil {
		a.config.Now = time.Now
	}
	a.generic = NewGenericLayout(a.bodies)
	return a
}

// Assemble builds the full document for tmpl and fields. It degrades instead
// of failing: a nil template gives ContentUnavailableDocument and unusable
// images become placeholders. The only error is a final render without a number.
func (a *Assembler) Assemble(ctx context.Context, tmpl *letter.Template, fields letter.FieldMap, opts *AssembleOptions) (string, error) {
	if tmpl == nil {
		a.logger.Warn("no template for letter, returning content unavailable document")
		return ContentUnavailableDocument, nil
	}
	if opts == nil {
		opts = &AssembleOptions{}
	}

	date := opts.Date
	if date.IsZero() {
		date = a.config.Now()
	}
	year := opts.Year
	if year == 0 {
		year = date.Year()
	}

	number := opts.Number
	if number == "" {
		if opts.Final {
			return "", NewRenderError(ErrCodeMissingNumber,
				"final render of "+tmpl.Type.String()+" requires an allocated letter number", nil)
		}
		number = a.previewNumber(ctx, tmpl.Type, year)
	}

	in := &LayoutInput{
		Template:    tmpl,
		Fields:      fields,
		Number:      number,
		Date:        date,
		Institution: a.config.Letterhead.Institution,
		Signatory:   a.config.Signatory,
		Signatures:  opts.Signatures,
		Photo:       opts.Photo,
	}
	if in.Signatures.Institutional == "" {
		in.Signatures.Institutional = a.config.SignatureRef
	}

	body := a.buildBody(ctx, in)

	lang := "id"
	if tmpl.Type.IsEnglish() {
		lang = "en"
	}
	doc, err := a.engine.Render(ctx, a.store.Get(LayoutKeyDocument), &documentData{
		Lang:       lang,
		Title:      titleFor(tmpl),
		Hints:      tmpl.Hints(),
		Letterhead: a.config.Letterhead,
		Body:       template.HTML(body),
		Footer:     a.config.Footer,
	})
	if err != nil {
		a.logger.Error("document shell failed to render", zap.Error(err))
		return ContentUnavailableDocument, nil
	}

	return a.embedder.EmbedAllIn(ctx, doc), nil
}

// buildBody runs the type's builder, falling back to the generic layout when
// the type has none or its builder fails
func (a *Assembler) buildBody(ctx context.Context, in *LayoutInput) string {
	lt := in.Template.Type
	if a.resolver != nil {
		if builder, ok := a.resolver.Resolve(lt); ok {
			body, err := builder.Build(ctx, in)
			if err == nil {
				return body
			}
			a.logger.Warn("layout builder failed, using generic layout",
				zap.String("letter_type", lt.String()), zap.Error(err))
		}
	}

	body, err := a.generic.Build(ctx, in)
	if err != nil {
		a.logger.Error("generic layout failed", zap.String("letter_type", lt.String()), zap.Error(err))
		return `<p class="content-unavailable">Konten surat tidak tersedia.</p>`
	}
	return body
}

// previewNumber peeks the next number, or shows a pending one
func (a *Assembler) previewNumber(ctx context.Context, lt letter.LetterType, year int) string {
	prefix := letter.DefaultInstitutionPrefix
	if a.config.Peeker != nil {
		prefix = a.config.Peeker.Prefix()
		number, err := a.config.Peeker.Peek(ctx, lt, year)
		if err == nil {
			return number
		}
		a.logger.Warn("could not peek letter number for preview",
			zap.String("letter_type", lt.String()), zap.Error(err))
	}
	return letter.PendingNumber(prefix, lt, year)
}

func titleFor(tmpl *letter.Template) string {
	if !tmpl.Type.IsKnown() && tmpl.Name != "" {
		return tmpl.Name
	}
	return tmpl.Type.DisplayName()
}
