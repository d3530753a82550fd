package layouts

import (
	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
)

// NewRekomendasiLayout builds the general recommendation letter
func NewRekomendasiLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeRekomendasi, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		studentRows(d, f)
		if gpa := f.Value(FieldIPK); gpa != "" {
			d.AddRow("IPK", printing.FormatGPA(gpa, d.Lang))
		}
		d.Extra["Purpose"] = f.Value(FieldKeperluan)
	})
}

// NewBeasiswaLayout builds the scholarship recommendation. It carries the
// two-party signature block: the student on the left, the signatory on the right.
func NewBeasiswaLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeBeasiswa, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		studentRows(d, f)
		d.AddRow("Semester", semesterLabel(f.Value(FieldSemester), d.Lang))
		gpa := printing.FormatGPA(f.Value(FieldIPK), d.Lang)
		d.AddRow("IPK", gpa)
		d.Extra["GPA"] = gpa
		d.Extra["Scholarship"] = f.Value(FieldNamaBeasiswa)
		if d.Extra["Scholarship"] == "" {
			d.Extra["Scholarship"] = "beasiswa"
		}
	})
}
