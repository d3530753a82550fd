package models

import (
	"testing"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterRequestModel_TableName(t *testing.T) {
	assert.Equal(t, "letter_requests", LetterRequestModel{}.TableName())
	assert.Equal(t, "letter_templates", LetterTemplateModel{}.TableName())
	assert.Equal(t, "letter_counters", LetterCounterModel{}.TableName())
}

func TestLetterRequestModel_FromDomain(t *testing.T) {
	req, err := letter.NewLetterRequest(letter.LetterTypeBeasiswa,
		letter.NewFieldMap("nama", "Siti Aminah", "ipk", "3.76"), "https://files.example.ac.id/ttd.png")
	require.NoError(t, err)

	m := LetterRequestModelFromDomain(req)
	assert.Equal(t, req.ID, m.ID)
	assert.Nil(t, m.LetterNumber, "pending requests store NULL so the unique index ignores them")
	assert.JSONEq(t, `{"nama":"Siti Aminah","ipk":"3.76"}`, m.FieldsJSON)
	assert.Equal(t, 1, m.Version)

	at := time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, req.Approve("001/UN6.B.1/PK.04.00/2025", "wakil dekan", at))
	m = LetterRequestModelFromDomain(req)
	require.NotNil(t, m.LetterNumber)
	assert.Equal(t, "001/UN6.B.1/PK.04.00/2025", *m.LetterNumber)

	back := m.ToDomain()
	assert.Equal(t, req.LetterNumber, back.LetterNumber)
	assert.Equal(t, req.Status, back.Status)
	assert.Equal(t, req.StudentSignatureRef, back.StudentSignatureRef)
	assert.Equal(t, []string{"nama", "ipk"}, back.Fields.Keys())
	assert.Equal(t, 2, back.Version)
}

func TestLetterRequestModel_ToDomainBadJSON(t *testing.T) {
	m := &LetterRequestModel{Type: letter.LetterTypeMagang, FieldsJSON: "{", Status: letter.RequestStatusPending}
	req := m.ToDomain()
	assert.Zero(t, req.Fields.Len())
	assert.False(t, req.HasNumber())
}

func TestLetterTemplateModel_ToDomain(t *testing.T) {
	m := &LetterTemplateModel{
		Type:           letter.LetterTypeEnrollmentCertificate,
		RawContent:     "<p>{{nama}}</p>",
		FieldNamesJSON: `["nama"]`,
		HintsJSON:      `{"font":"Arial"}`,
	}
	tmpl := m.ToDomain()
	assert.Equal(t, []string{"nama"}, tmpl.FieldNames)
	assert.Equal(t, "Arial", tmpl.LayoutHints.Font)
	assert.Equal(t, 12, tmpl.LayoutHints.FontSize, "defaults fill the gaps")

	m.HintsJSON = ""
	assert.Equal(t, letter.DefaultLayoutHints(), m.ToDomain().LayoutHints)
}
