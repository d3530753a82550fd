package models

import (
	"encoding/json"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"go.uber.org/zap"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("letter.models")

// LetterRequestModel is the persistence model for the LetterRequest aggregate
type LetterRequestModel struct {
	AggregateModel
	Type                letter.LetterType    `gorm:"type:varchar(64);not null;index"`
	FieldsJSON          string               `gorm:"column:fields;type:text;not null"`
	Status              letter.RequestStatus `gorm:"type:varchar(20);not null;index"`
	LetterNumber        *string              `gorm:"type:varchar(64);uniqueIndex"`
	StudentSignatureRef string               `gorm:"type:text"`
	PhotoRef            string               `gorm:"type:text"`
	ApprovedBy          string               `gorm:"type:varchar(100)"`
	ApprovedAt          *time.Time           `gorm:"index"`
	RejectionReason     string               `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LetterRequestModel) TableName() string {
	return "letter_requests"
}

// ToDomain converts the persistence model to a domain LetterRequest
func (m *LetterRequestModel) ToDomain() *letter.LetterRequest {
	req := &letter.LetterRequest{
		BaseEntity:          m.BaseModel.ToDomain(),
		Version:             m.Version,
		Type:                m.Type,
		Status:              m.Status,
		StudentSignatureRef: m.StudentSignatureRef,
		PhotoRef:            m.PhotoRef,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		RejectionReason:     m.RejectionReason,
	}
	if m.LetterNumber != nil {
		req.LetterNumber = *m.LetterNumber
	}
	if m.FieldsJSON != "" {
		if err := json.Unmarshal([]byte(m.FieldsJSON), &req.Fields); err != nil {
			modelLogger.Warn("failed to parse letter fields JSON",
				zap.String("request_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return req
}

// LetterRequestModelFromDomain creates a persistence model from a domain LetterRequest
func LetterRequestModelFromDomain(r *letter.LetterRequest) *LetterRequestModel {
	m := &LetterRequestModel{
		Type:                r.Type,
		FieldsJSON:          "{}",
		Status:              r.Status,
		StudentSignatureRef: r.StudentSignatureRef,
		PhotoRef:            r.PhotoRef,
		ApprovedBy:          r.ApprovedBy,
		ApprovedAt:          r.ApprovedAt,
		RejectionReason:     r.RejectionReason,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Version = r.Version
	if r.LetterNumber != "" {
		number := r.LetterNumber
		m.LetterNumber = &number
	}
	if data, err := json.Marshal(r.Fields); err == nil {
		m.FieldsJSON = string(data)
	}
	return m
}

// LetterTemplateModel is the persistence model for letter templates.
// There is at most one template per letter type.
type LetterTemplateModel struct {
	BaseModel
	Type           letter.LetterType `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name           string            `gorm:"type:varchar(200)"`
	RawContent     string            `gorm:"type:text;not null"`
	FieldNamesJSON string            `gorm:"column:field_names;type:text"`
	HintsJSON      string            `gorm:"column:layout_hints;type:text"`
}

// TableName returns the table name for GORM
func (LetterTemplateModel) TableName() string {
	return "letter_templates"
}

// ToDomain converts the persistence model to a domain Template
func (m *LetterTemplateModel) ToDomain() *letter.Template {
	t := &letter.Template{
		ID:         m.ID,
		Type:       m.Type,
		Name:       m.Name,
		RawContent: m.RawContent,
		FieldNames: make([]string, 0),
	}
	if m.FieldNamesJSON != "" {
		if err := json.Unmarshal([]byte(m.FieldNamesJSON), &t.FieldNames); err != nil {
			modelLogger.Warn("failed to parse template field names JSON",
				zap.String("letter_type", m.Type.String()),
				zap.Error(err))
		}
	}
	if m.HintsJSON != "" {
		if err := json.Unmarshal([]byte(m.HintsJSON), &t.LayoutHints); err != nil {
			modelLogger.Warn("failed to parse template layout hints JSON",
				zap.String("letter_type", m.Type.String()),
				zap.Error(err))
		}
	}
	t.LayoutHints = t.LayoutHints.WithDefaults()
	return t
}

// LetterTemplateModelFromDomain creates a persistence model from a domain Template
func LetterTemplateModelFromDomain(t *letter.Template, now time.Time) *LetterTemplateModel {
	m := &LetterTemplateModel{
		BaseModel: BaseModel{
			ID:        t.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Type:           t.Type,
		Name:           t.Name,
		RawContent:     t.RawContent,
		FieldNamesJSON: "[]",
	}
	if data, err := json.Marshal(t.FieldNames); err == nil && t.FieldNames != nil {
		m.FieldNamesJSON = string(data)
	}
	if data, err := json.Marshal(t.LayoutHints); err == nil {
		m.HintsJSON = string(data)
	}
	return m
}

// LetterCounterModel stores the last allocated sequence of one letter type
type LetterCounterModel struct {
	LetterType letter.LetterType `gorm:"column:letter_type;type:varchar(64);primaryKey"`
	Value      int64             `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LetterCounterModel) TableName() string {
	return "letter_counters"
}
