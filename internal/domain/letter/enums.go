package letter

import "strings"

// LetterType identifies an administrative letter category
type LetterType string

const (
	LetterTypeRekomendasi           LetterType = "rekomendasi"            // Surat Rekomendasi
	LetterTypeAktifKuliah           LetterType = "aktif_kuliah"           // Surat Keterangan Aktif Kuliah
	LetterTypePenelitian            LetterType = "penelitian"             // Surat Izin Penelitian
	LetterTypeMagang                LetterType = "magang"                 // Surat Pengantar Magang
	LetterTypeDispensasi            LetterType = "dispensasi"             // Surat Dispensasi
	LetterTypeCutiAkademik          LetterType = "cuti_akademik"          // Surat Keterangan Cuti Akademik
	LetterTypeBeasiswa              LetterType = "beasiswa"               // Surat Rekomendasi Beasiswa
	LetterTypeKelakuanBaik          LetterType = "kelakuan_baik"          // Surat Keterangan Berkelakuan Baik
	LetterTypeEnrollmentCertificate LetterType = "enrollment_certificate" // Certificate of Enrollment
	LetterTypePengantar             LetterType = "pengantar"              // Surat Pengantar Umum
)

// DefaultTypeCode is used for letter types outside the known set
const DefaultTypeCode = "TU.00.00"

// typeCodes maps each known letter type to its administrative classification code
var typeCodes = map[LetterType]string{
	LetterTypeRekomendasi:           "PK.02.00",
	LetterTypeAktifKuliah:           "PP.05.01",
	LetterTypePenelitian:            "PT.01.04",
	LetterTypeMagang:                "PK.03.01",
	LetterTypeDispensasi:            "PK.01.02",
	LetterTypeCutiAkademik:          "PP.05.03",
	LetterTypeBeasiswa:              "PK.04.00",
	LetterTypeKelakuanBaik:          "PK.01.00",
	LetterTypeEnrollmentCertificate: "PP.05.02",
	LetterTypePengantar:             "TU.00.01",
}

// ParseLetterType normalizes user input into a LetterType.
// "Aktif Kuliah", "aktif-kuliah" and "AKTIF_KULIAH" all map to aktif_kuliah.
// Unknown values are kept (normalized) so they can use the generic layout.
func ParseLetterType(s string) LetterType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return LetterType(s)
}

// IsKnown reports whether the type has a dedicated layout and type code
func (t LetterType) IsKnown() bool {
	_, ok := typeCodes[t]
	return ok
}

// IsValid reports whether the type can be used for a request at all
func (t LetterType) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// String returns the string representation of LetterType
func (t LetterType) String() string {
	return string(t)
}

// TypeCode returns the administrative code, or DefaultTypeCode for unknown types
func (t LetterType) TypeCode() string {
	if code, ok := typeCodes[t]; ok {
		return code
	}
	return DefaultTypeCode
}

// DisplayName returns the heading used for the letter type
func (t LetterType) DisplayName() string {
	switch t {
	case LetterTypeRekomendasi:
		return "Surat Rekomendasi"
	case LetterTypeAktifKuliah:
		return "Surat Keterangan Aktif Kuliah"
	case LetterTypePenelitian:
		return "Surat Izin Penelitian"
	case LetterTypeMagang:
		return "Surat Pengantar Magang"
	case LetterTypeDispensasi:
		return "Surat Dispensasi"
	case LetterTypeCutiAkademik:
		return "Surat Keterangan Cuti Akademik"
	case LetterTypeBeasiswa:
		return "Surat Rekomendasi Beasiswa"
	case LetterTypeKelakuanBaik:
		return "Surat Keterangan Berkelakuan Baik"
	case LetterTypeEnrollmentCertificate:
		return "Certificate of Enrollment"
	case LetterTypePengantar:
		return "Surat Pengantar"
	default:
		return string(t)
	}
}

// RequiresStudentSignature reports whether approval needs a student-provided signature
func (t LetterType) RequiresStudentSignature() bool {
	return t == LetterTypeBeasiswa
}

// HasPhotoBlock reports whether the layout reserves a pas foto block
func (t LetterType) HasPhotoBlock() bool {
	return t == LetterTypeKelakuanBaik
}

// IsEnglish reports whether the letter is written in the English register
func (t LetterType) IsEnglish() bool {
	return t == LetterTypeEnrollmentCertificate
}

// AllLetterTypes returns all known letter types in display order
func AllLetterTypes() []LetterType {
	return []LetterType{
		LetterTypeRekomendasi,
		LetterTypeAktifKuliah,
		LetterTypePenelitian,
		LetterTypeMagang,
		LetterTypeDispensasi,
		LetterTypeCutiAkademik,
		LetterTypeBeasiswa,
		LetterTypeKelakuanBaik,
		LetterTypeEnrollmentCertificate,
		LetterTypePengantar,
	}
}

// RequestStatus represents the lifecycle state of a letter request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// IsValid checks if the RequestStatus is a valid value
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of RequestStatus
func (s RequestStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that accept no further transitions
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	switch s {
	case RequestStatusPending:
		return target == RequestStatusApproved || target == RequestStatusRejected
	case RequestStatusApproved, RequestStatusRejected:
		return false
	}
	return false
}
