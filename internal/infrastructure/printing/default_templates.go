package printing

import (
	"embed"
	"fmt"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
)

//go:embed templates/*.html templates/bodies/*.html
var templateFS embed.FS

// Layout keys that are not tied to a letter type
const (
	LayoutKeyDocument = "document"
	LayoutKeyGeneric  = "generic"
	layoutKeyPartials = "partials"
)

// DefaultLayout describes one embedded layout file
type DefaultLayout struct {
	Key      string            // letter type value, or one of the LayoutKey constants
	Type     letter.LetterType // empty for shared layouts
	Name     string
	Hints    letter.LayoutHints
	FilePath string // Path within embed.FS
	Body     bool   // body layouts get the shared partials prepended
}

// GetDefaultLayouts returns the layout configuration for every letter type
// plus the shared document shell and generic fallback body.
func GetDefaultLayouts() []DefaultLayout {
	layouts := []DefaultLayout{
		{
			Key:      LayoutKeyDocument,
			Name:     "Dokumen A4",
			Hints:    letter.DefaultLayoutHints(),
			FilePath: "templates/document.html",
		},
		{
			Key:      LayoutKeyGeneric,
			Name:     "Surat Umum",
			Hints:    letter.DefaultLayoutHints(),
			FilePath: "templates/generic.html",
			Body:     true,
		},
	}

	for _, lt := range letter.AllLetterTypes() {
		hints := letter.DefaultLayoutHints()
		switch lt {
		case letter.LetterTypeBeasiswa:
			// two signature columns need the wider text block
			hints.Margins = letter.Margins{Top: 15, Right: 15, Bottom: 15, Left: 20}
		case letter.LetterTypeEnrollmentCertificate:
			hints.Font = "Arial"
			hints.FontSize = 11
		}
		layouts = append(layouts, DefaultLayout{
			Key:      lt.String(),
			Type:     lt,
			Name:     lt.DisplayName(),
			Hints:    hints,
			FilePath: "templates/" + lt.String() + ".html",
			Body:     true,
		})
	}
	return layouts
}

// LoadTemplateContent loads a file from the embedded filesystem
func LoadTemplateContent(filePath string) (string, error) {
	content, err := templateFS.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", filePath, err)
	}
	return string(content), nil
}

// DefaultTemplates returns one letter template per known letter type, built
// from the embedded bodies. They seed an empty template repository.
func DefaultTemplates() ([]*letter.Template, error) {
	var templates []*letter.Template
	for _, dl := range GetDefaultLayouts() {
		if dl.Type == "" {
			continue
		}
		raw, err := LoadTemplateContent("templates/bodies/" + dl.Key + ".html")
		if err != nil {
			return nil, err
		}
		tmpl, err := letter.NewTemplate(dl.Type, dl.Name, raw, nil, dl.Hints)
		if err != nil {
			return nil, fmt.Errorf("default template %s: %w", dl.Key, err)
		}
		tmpl.ID = generateLayoutID("letter-template", dl.Key)
		templates = append(templates, tmpl)
	}
	return templates, nil
}
