package layouts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
)

// Field names read from a letter request
const (
	FieldNama            = "nama"
	FieldNPM             = "npm"
	FieldProgramStudi    = "program_studi"
	FieldFakultas        = "fakultas"
	FieldTempatLahir     = "tempat_lahir"
	FieldTanggalLahir    = "tanggal_lahir"
	FieldAlamat          = "alamat"
	FieldSemester        = "semester"
	FieldTahunAkademik   = "tahun_akademik"
	FieldKeperluan       = "keperluan"
	FieldTujuan          = "tujuan"
	FieldInstansi        = "instansi"
	FieldAlamatTujuan    = "alamat_tujuan"
	FieldLampiran        = "lampiran"
	FieldTanggalMulai    = "tanggal_mulai"
	FieldTanggalSelesai  = "tanggal_selesai"
	FieldJudulPenelitian = "judul_penelitian"
	FieldPerusahaan      = "perusahaan"
	FieldDivisi          = "divisi"
	FieldKegiatan        = "kegiatan"
	FieldSemesterMulai   = "semester_mulai"
	FieldSemesterSelesai = "semester_selesai"
	FieldJumlahSemester  = "jumlah_semester"
	FieldAlasan          = "alasan"
	FieldIPK             = "ipk"
	FieldNamaBeasiswa    = "nama_beasiswa"
)

// prepareFunc fills the type-specific part of the layout data
type prepareFunc func(d *printing.LayoutData, f letter.FieldMap)

// Layout renders one letter type's stored layout after preparing its data
type Layout struct {
	letterType letter.LetterType
	bodies     *printing.BodyRenderer
	prepare    prepareFunc
}

func newLayout(lt letter.LetterType, bodies *printing.BodyRenderer, prepare prepareFunc) *Layout {
	return &Layout{letterType: lt, bodies: bodies, prepare: prepare}
}

// LetterType returns the letter type this layout handles
func (l *Layout) LetterType() letter.LetterType {
	return l.letterType
}

// Build prepares the layout data from the input and renders the body
func (l *Layout) Build(ctx context.Context, in *printing.LayoutInput) (string, error) {
	if in == nil || in.Template == nil {
		return "", fmt.Errorf("layout %s: missing template", l.letterType)
	}
	data := l.Data(in)
	return l.bodies.Render(ctx, l.letterType.String(), data)
}

// Data returns the layout data Build would render with
func (l *Layout) Data(in *printing.LayoutInput) *printing.LayoutData {
	data := printing.NewLayoutData(in)
	data.Type = l.letterType
	l.prepare(data, in.Fields)
	return data
}

var _ printing.LayoutBuilder = (*Layout)(nil)

// =============================================================================
// Shared preparation
// =============================================================================

// studentRows adds the identity rows every letter about a student starts with
func studentRows(d *printing.LayoutData, f letter.FieldMap) {
	if d.Lang == "en" {
		d.AddRow("Name", printing.TitleCase(f.Value(FieldNama), "en"))
		d.AddRow("Student Number", f.Value(FieldNPM))
		d.AddRow("Study Program", f.Value(FieldProgramStudi))
		d.AddRow("Faculty", f.Value(FieldFakultas))
		return
	}
	d.AddRow("Nama", printing.TitleCase(f.Value(FieldNama), "id"))
	d.AddRow("NPM", f.Value(FieldNPM))
	d.AddRow("Program Studi", f.Value(FieldProgramStudi))
	d.AddRow("Fakultas", f.Value(FieldFakultas))
}

// birthRow adds "Tempat, Tanggal Lahir" when either part is present
func birthRow(d *printing.LayoutData, f letter.FieldMap) {
	place := printing.TitleCase(f.Value(FieldTempatLahir), d.Lang)
	date := printing.FormatDate(f.Value(FieldTanggalLahir), d.Lang)
	switch {
	case place != "" && date != "":
		d.AddRow("Tempat, Tanggal Lahir", place+", "+date)
	case place != "":
		d.AddRow("Tempat Lahir", place)
	case date != "":
		d.AddRow("Tanggal Lahir", date)
	}
}

// addressee fills the recipient block, falling back to defaultName
func addressee(d *printing.LayoutData, f letter.FieldMap, defaultName string) {
	name := strings.TrimSpace(f.Value(FieldTujuan))
	if name == "" {
		name = defaultName
	}
	d.Addressee = printing.Addressee{
		Name:        name,
		Institution: f.Value(FieldInstansi),
		Address:     f.Value(FieldAlamatTujuan),
	}
}

// period formats "mulai s.d. selesai" (or "from ... to ..." in English)
func period(f letter.FieldMap, lang string) string {
	from := printing.FormatDate(f.Value(FieldTanggalMulai), lang)
	to := printing.FormatDate(f.Value(FieldTanggalSelesai), lang)
	switch {
	case from != "" && to != "":
		if lang == "en" {
			return "from " + from + " to " + to
		}
		return "pada tanggal " + from + " s.d. " + to
	case from != "":
		if lang == "en" {
			return "on " + from
		}
		return "pada tanggal " + from
	}
	return ""
}

var indonesianNumbers = [...]string{
	"nol", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh",
	"delapan", "sembilan", "sepuluh", "sebelas", "dua belas", "tiga belas", "empat belas",
}

// semesterLabel renders "5" as "5 (lima)" in Indonesian and "5th" in English.
// Non-numeric values are kept as given.
func semesterLabel(v, lang string) string {
	v = strings.TrimSpace(v)
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n >= len(indonesianNumbers) {
		return v
	}
	if lang == "en" {
		return ordinal(n)
	}
	return fmt.Sprintf("%d (%s)", n, indonesianNumbers[n])
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// academicYear returns the field value, or derives it from the letter date.
// The academic year starts in August.
func academicYear(f letter.FieldMap, date time.Time) string {
	if v := strings.TrimSpace(f.Value(FieldTahunAkademik)); v != "" {
		return v
	}
	if date.IsZero() {
		return ""
	}
	start := date.Year()
	if date.Month() < time.August {
		start--
	}
	return fmt.Sprintf("%d/%d", start, start+1)
}
