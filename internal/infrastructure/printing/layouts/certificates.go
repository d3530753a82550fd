package layouts

import (
	"strconv"
	"strings"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
)

// NewAktifKuliahLayout builds the active-student statement
func NewAktifKuliahLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeAktifKuliah, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		studentRows(d, f)
		birthRow(d, f)
		d.AddRow("Alamat", f.Value(FieldAlamat))
		d.Extra["Semester"] = semesterLabel(f.Value(FieldSemester), d.Lang)
		d.Extra["AcademicYear"] = academicYear(f, d.Date)
		d.Extra["Purpose"] = f.Value(FieldKeperluan)
	})
}

// NewCutiAkademikLayout builds the academic leave statement
func NewCutiAkademikLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeCutiAkademik, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		studentRows(d, f)
		from := f.Value(FieldSemesterMulai)
		to := f.Value(FieldSemesterSelesai)
		d.Extra["FromSemester"] = semesterLabel(from, d.Lang)
		d.Extra["ToSemester"] = semesterLabel(to, d.Lang)
		d.Extra["Semesters"] = leaveLength(f, from, to)
		d.Extra["Reason"] = f.Value(FieldAlasan)
	})
}

// leaveLength counts the semesters of leave, inclusive.
// An explicit jumlah_semester wins over the computed range.
func leaveLength(f letter.FieldMap, from, to string) string {
	if v := strings.TrimSpace(f.Value(FieldJumlahSemester)); v != "" {
		return semesterLabel(v, "id")
	}
	a, errA := strconv.Atoi(strings.TrimSpace(from))
	b, errB := strconv.Atoi(strings.TrimSpace(to))
	if errA != nil || errB != nil || b < a {
		return ""
	}
	return semesterLabel(strconv.Itoa(b-a+1), "id")
}

// NewKelakuanBaikLayout builds the good-conduct statement with a photo block
func NewKelakuanBaikLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeKelakuanBaik, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		studentRows(d, f)
		birthRow(d, f)
		d.AddRow("Alamat", f.Value(FieldAlamat))
		d.Extra["Purpose"] = f.Value(FieldKeperluan)
	})
}

// NewEnrollmentCertificateLayout builds the English certificate of enrollment
func NewEnrollmentCertificateLayout(bodies *printing.BodyRenderer) *Layout {
	return newLayout(letter.LetterTypeEnrollmentCertificate, bodies, func(d *printing.LayoutData, f letter.FieldMap) {
		studentRows(d, f)
		if dob := printing.FormatDate(f.Value(FieldTanggalLahir), "en"); dob != "" {
			place := printing.TitleCase(f.Value(FieldTempatLahir), "en")
			if place != "" {
				dob = place + ", " + dob
			}
			d.AddRow("Place, Date of Birth", dob)
		}
		d.Extra["Institution"] = printing.TitleCase(d.Institution, "en")
		d.Extra["Semester"] = semesterLabel(f.Value(FieldSemester), "en")
		d.Extra["AcademicYear"] = academicYear(f, d.Date)
		if gpa := f.Value(FieldIPK); gpa != "" {
			d.Extra["GPA"] = printing.FormatGPA(gpa, "en")
		}
		d.Extra["Purpose"] = f.Value(FieldKeperluan)
	})
}
