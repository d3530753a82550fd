package layouts

import (
	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
)

// Outgoing letters are addressed to another office or institution and open
// with a number/attachment/subject block instead of a centered heading.

// NewPenelitianLayout builds the research permit request
func NewPenelitianLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypePenelitian, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		d.Subject = "Permohonan Izin Penelitian"
		d.Attachment = f.Value(FieldLampiran)
		addressee(d, f, "Pimpinan")
		studentRows(d, f)
		d.Extra["Period"] = period(f, d.Lang)
		d.Extra["ResearchTitle"] = f.Value(FieldJudulPenelitian)
	})
}

// NewMagangLayout builds the internship introduction letter
func NewMagangLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeMagang, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		d.Subject = "Permohonan Tempat Magang"
		d.Attachment = f.Value(FieldLampiran)
		addressee(d, f, "Pimpinan")
		if d.Addressee.Institution == "" {
			d.Addressee.Institution = f.Value(FieldPerusahaan)
		}
		studentRows(d, f)
		d.Extra["Period"] = period(f, d.Lang)
		d.Extra["Division"] = f.Value(FieldDivisi)
	})
}

// NewDispensasiLayout builds the class dispensation request
func NewDispensasiLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeDispensasi, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		d.Subject = "Permohonan Dispensasi"
		addressee(d, f, "Dosen Pengampu Mata Kuliah")
		studentRows(d, f)
		d.Extra["Event"] = f.Value(FieldKegiatan)
		d.Extra["Period"] = period(f, d.Lang)
	})
}

// NewPengantarLayout builds the general cover letter
func NewPengantarLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypePengantar, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		d.Subject = "Surat Pengantar"
		d.Attachment = f.Value(FieldLampiran)
		addressee(d, f, "Pimpinan")
		studentRows(d, f)
		d.Extra["Purpose"] = f.Value(FieldKeperluan)
	})
}
