package layouts

import (
	"context"
	"testing"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var letterDate = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func studentFields(extra ...string) letter.FieldMap {
	pairs := append([]string{
		"nama", "budi santoso",
		"npm", "140810220005",
		"program_studi", "Teknik Informatika",
		"fakultas", "Matematika dan Ilmu Pengetahuan Alam",
	}, extra...)
	return letter.NewFieldMap(pairs...)
}

func layoutInput(lt letter.LetterType, fields letter.FieldMap) *printing.LayoutInput {
	return &printing.LayoutInput{
		Template:    &letter.Template{Type: lt, RawContent: "{{nama}}"},
		Fields:      fields,
		Number:      "006/UN6.B.1/" + lt.TypeCode() + "/2025",
		Date:        letterDate,
		Institution: "UNIVERSITAS PADJADJARAN",
		Signatory: printing.Signatory{
			Name:  "Dr. Siti Rahmawati",
			NIP:   "197805122005012001",
			Title: "Wakil Dekan Bidang Akademik",
			City:  "Bandung",
		},
		Signatures: printing.Signatures{Institutional: "https://cdn.example.ac.id/ttd-wd1.png"},
	}
}

func build(t *testing.T, lt letter.LetterType, fields letter.FieldMap) string {
	t.Helper()
	builder, ok := newTestRegistry(t).Resolve(lt)
	require.True(t, ok)
	body, err := builder.Build(context.Background(), layoutInput(lt, fields))
	require.NoError(t, err)
	return body
}

func TestRekomendasiLayout(t *testing.T) {
	body := build(t, letter.LetterTypeRekomendasi, studentFields(
		"keperluan", "mengikuti program pertukaran pelajar",
		"ipk", "3.756",
	))

	assert.Contains(t, body, "SURAT REKOMENDASI")
	assert.Contains(t, body, "006/UN6.B.1/PK.02.00/2025")
	assert.Contains(t, body, "Budi Santoso")
	assert.Contains(t, body, "140810220005")
	assert.Contains(t, body, "3,76")
	assert.Contains(t, body, "layak direkomendasikan untuk mengikuti program pertukaran pelajar")
	assert.Contains(t, body, "Bandung, 10 Maret 2025")
	assert.Contains(t, body, `src="https://cdn.example.ac.id/ttd-wd1.png"`)
	assert.Contains(t, body, "NIP. 197805122005012001")
	assert.NotContains(t, body, "{{")
}

func TestOutgoingLayouts(t *testing.T) {
	period := []string{"tanggal_mulai", "2025-03-01", "tanggal_selesai", "2025-04-30"}

	t.Run("penelitian", func(t *testing.T) {
		body := build(t, letter.LetterTypePenelitian, studentFields(append(period,
			"tujuan", "Kepala Dinas Pendidikan",
			"instansi", "Dinas Pendidikan Kota Bandung",
			"lampiran", "1 berkas",
			"judul_penelitian", "Analisis Sentimen Layanan Publik",
		)...))

		assert.Contains(t, body, "Yth. Kepala Dinas Pendidikan")
		assert.Contains(t, body, "Dinas Pendidikan Kota Bandung")
		assert.Contains(t, body, "Lampiran")
		assert.Contains(t, body, "1 berkas")
		assert.Contains(t, body, "Permohonan Izin Penelitian")
		assert.Contains(t, body, "pada tanggal 1 Maret 2025 s.d. 30 April 2025")
		assert.Contains(t, body, "<em>Analisis Sentimen Layanan Publik</em>")
	})

	t.Run("magang takes the company as institution", func(t *testing.T) {
		body := build(t, letter.LetterTypeMagang, studentFields(append(period,
			"perusahaan", "PT Kereta Api Indonesia",
			"divisi", "Teknologi Informasi",
		)...))

		assert.Contains(t, body, "Yth. Pimpinan")
		assert.Contains(t, body, "PT Kereta Api Indonesia")
		assert.Contains(t, body, "pada bagian Teknologi Informasi")
		assert.NotContains(t, body, "Lampiran")
	})

	t.Run("dispensasi default addressee", func(t *testing.T) {
		body := build(t, letter.LetterTypeDispensasi, studentFields(
			"kegiatan", "Pekan Olahraga Mahasiswa Nasional",
			"tanggal_mulai", "2025-03-01",
		))

		assert.Contains(t, body, "Yth. Dosen Pengampu Mata Kuliah")
		assert.Contains(t, body, "kegiatan Pekan Olahraga Mahasiswa Nasional pada tanggal 1 Maret 2025")
	})

	t.Run("pengantar default purpose", func(t *testing.T) {
		body := build(t, letter.LetterTypePengantar, studentFields())

		assert.Contains(t, body, "Surat Pengantar")
		assert.Contains(t, body, "bermaksud menyampaikan keperluan administrasi")
	})
}

func TestBeasiswaLayout_TwoSignatures(t *testing.T) {
	lt := letter.LetterTypeBeasiswa
	in := layoutInput(lt, studentFields("ipk", "3.5", "semester", "5", "nama_beasiswa", "Beasiswa Bank Indonesia"))
	in.Signatures.Student = "https://cdn.example.ac.id/ttd-mhs.png"

	builder, ok := newTestRegistry(t).Resolve(lt)
	require.True(t, ok)
	body, err := builder.Build(context.Background(), in)
	require.NoError(t, err)

	assert.Contains(t, body, "calon penerima Beasiswa Bank Indonesia")
	assert.Contains(t, body, "indeks prestasi kumulatif 3,50")
	assert.Contains(t, body, "5 (lima)")
	assert.Contains(t, body, `class="signature-pair"`)
	assert.Contains(t, body, `src="https://cdn.example.ac.id/ttd-mhs.png"`)
	assert.Contains(t, body, `src="https://cdn.example.ac.id/ttd-wd1.png"`)
	assert.Contains(t, body, "Pemohon")
}

func TestCertificateLayouts(t *testing.T) {
	t.Run("aktif kuliah", func(t *testing.T) {
		body := build(t, letter.LetterTypeAktifKuliah, studentFields(
			"tempat_lahir", "GARUT",
			"tanggal_lahir", "2003-07-17",
			"alamat", "Jl. Dipatiukur No. 35",
			"semester", "4",
		))

		assert.Contains(t, body, "SURAT KETERANGAN AKTIF KULIAH")
		assert.Contains(t, body, "Garut, 17 Juli 2003")
		assert.Contains(t, body, "semester 4 (empat) tahun akademik 2024/2025")
	})

	t.Run("cuti akademik", func(t *testing.T) {
		body := build(t, letter.LetterTypeCutiAkademik, studentFields(
			"semester_mulai", "5",
			"semester_selesai", "6",
			"alasan", "sakit",
		))

		assert.Contains(t, body, "selama 2 (dua) semester")
		assert.Contains(t, body, "mulai semester 5 (lima) sampai dengan semester 6 (enam)")
		assert.Contains(t, body, "dengan alasan sakit")
	})

	t.Run("kelakuan baik reserves a photo block", func(t *testing.T) {
		body := build(t, letter.LetterTypeKelakuanBaik, studentFields("keperluan", "pendaftaran kerja"))

		assert.Contains(t, body, `class="photo-block"`)
		assert.Contains(t, body, "untuk keperluan pendaftaran kerja")
	})

	t.Run("enrollment certificate in english", func(t *testing.T) {
		body := build(t, letter.LetterTypeEnrollmentCertificate, studentFields(
			"tempat_lahir", "bandung",
			"tanggal_lahir", "2004-01-02",
			"semester", "3",
			"ipk", "3.8",
			"keperluan", "visa application",
		))

		assert.Contains(t, body, "CERTIFICATE OF ENROLLMENT")
		assert.Contains(t, body, "Student Number")
		assert.Contains(t, body, "Bandung, 2 January 2004")
		assert.Contains(t, body, "good standing at Universitas Padjadjaran")
		assert.Contains(t, body, "enrolled in the 3rd semester of the 2024/2025 academic year")
		assert.Contains(t, body, "cumulative GPA of 3.80")
		assert.Contains(t, body, "Bandung, 10 March 2025")
		assert.NotContains(t, body, "Nomor")
	})
}

func TestLayout_BuildWithoutTemplate(t *testing.T) {
	builder, ok := newTestRegistry(t).Resolve(letter.LetterTypeRekomendasi)
	require.True(t, ok)

	_, err := builder.Build(context.Background(), &printing.LayoutInput{})
	assert.Error(t, err)
	_, err = builder.Build(context.Background(), nil)
	assert.Error(t, err)
}

func TestLayout_BlankRowsSkipped(t *testing.T) {
	data := NewAktifKuliahLayout(nil).Data(layoutInput(letter.LetterTypeAktifKuliah,
		letter.NewFieldMap("nama", "Budi", "npm", "")))

	labels := make([]string, 0, len(data.Rows))
	for _, r := range data.Rows {
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"Nama"}, labels)
}

func TestSemesterLabel(t *testing.T) {
	tests := []struct {
		in, lang, want string
	}{
		{"5", "id", "5 (lima)"},
		{" 12 ", "id", "12 (dua belas)"},
		{"genap", "id", "genap"},
		{"0", "id", "0"},
		{"1", "en", "1st"},
		{"2", "en", "2nd"},
		{"3", "en", "3rd"},
		{"11", "en", "11th"},
		{"", "en", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, semesterLabel(tt.in, tt.lang), "%q/%s", tt.in, tt.lang)
	}
	assert.Equal(t, "21st", ordinal(21))
	assert.Equal(t, "112th", ordinal(112))
}

func TestAcademicYear(t *testing.T) {
	none := letter.FieldMap{}

	assert.Equal(t, "2024/2025", academicYear(none, time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025/2026", academicYear(none, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", academicYear(none, time.Time{}))
	assert.Equal(t, "2023/2024 Genap", academicYear(letter.NewFieldMap("tahun_akademik", "2023/2024 Genap"), letterDate))
}

func TestPeriod(t *testing.T) {
	both := letter.NewFieldMap("tanggal_mulai", "2025-03-01", "tanggal_selesai", "2025-03-03")

	assert.Equal(t, "pada tanggal 1 Maret 2025 s.d. 3 Maret 2025", period(both, "id"))
	assert.Equal(t, "from 1 March 2025 to 3 March 2025", period(both, "en"))
	assert.Equal(t, "", period(letter.FieldMap{}, "id"))
	assert.Equal(t, "pada tanggal minggu depan", period(letter.NewFieldMap("tanggal_mulai", "minggu depan"), "id"))
}
