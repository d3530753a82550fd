package letter

import (
	"time"

	domain "github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/google/uuid"
)

// SubmitRequest is the input for a new letter request
type SubmitRequest struct {
	Type                string          `json:"type" binding:"required"`
	Fields              domain.FieldMap `json:"fields"`
	StudentSignatureRef string          `json:"student_signature_ref"`
	PhotoRef            string          `json:"photo_ref"`
}

// SignatureRefs are the image references placed in signature blocks
type SignatureRefs struct {
	Institutional string `json:"institutional"`
	Student       string `json:"student"`
}

// PreviewRequest is the input for a preview render. When RequestID is set the
// stored request supplies anything the payload leaves empty.
type PreviewRequest struct {
	Type       string          `json:"type"`
	Fields     domain.FieldMap `json:"fields"`
	RequestID  *uuid.UUID      `json:"request_id,omitempty"`
	Signatures SignatureRefs   `json:"signatures"`
	Photo      string          `json:"photo"`
}

// PreviewResponse is an assembled preview
type PreviewResponse struct {
	HTML   string `json:"html"`
	Number string `json:"number"`
}

// DocumentResponse is the final document of an approved request
type DocumentResponse struct {
	RequestID uuid.UUID `json:"request_id"`
	Number    string    `json:"number"`
	HTML      string    `json:"html"`
}

// LetterRequestResponse represents a letter request in API responses
type LetterRequestResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Type                string          `json:"type"`
	TypeCode            string          `json:"type_code"`
	TypeName            string          `json:"type_name"`
	Status              string          `json:"status"`
	Fields              domain.FieldMap `json:"fields"`
	LetterNumber        string          `json:"letter_number,omitempty"`
	StudentSignatureRef string          `json:"student_signature_ref,omitempty"`
	PhotoRef            string          `json:"photo_ref,omitempty"`
	ApprovedBy          string          `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	RejectionReason     string          `json:"rejection_reason,omitempty"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ToLetterRequestResponse converts a domain request to a response
func ToLetterRequestResponse(req *domain.LetterRequest) LetterRequestResponse {
	return LetterRequestResponse{
		ID:                  req.ID,
		Type:                req.Type.String(),
		TypeCode:            req.Type.TypeCode(),
		TypeName:            req.Type.DisplayName(),
		Status:              req.Status.String(),
		Fields:              req.Fields.Clone(),
		LetterNumber:        req.LetterNumber,
		StudentSignatureRef: req.StudentSignatureRef,
		PhotoRef:            req.PhotoRef,
		ApprovedBy:          req.ApprovedBy,
		ApprovedAt:          req.ApprovedAt,
		RejectionReason:     req.RejectionReason,
		Version:             req.Version,
		CreatedAt:           req.CreatedAt,
		UpdatedAt:           req.UpdatedAt,
	}
}

// LetterTypeResponse describes one letter type
type LetterTypeResponse struct {
	Type                     string `json:"type"`
	Code                     string `json:"code"`
	Name                     string `json:"name"`
	RequiresStudentSignature bool   `json:"requires_student_signature"`
	English                  bool   `json:"english"`
}

// NumberResponse is a peeked letter number
type NumberResponse struct {
	Type   string `json:"type"`
	Year   int    `json:"year"`
	Number string `json:"number"`
}

// SignatureUploadResponse tells the client where to PUT a signature image
type SignatureUploadResponse struct {
	Ref       string    `json:"ref"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
