package letter

import (
	"strings"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
)

// LetterRequest is a student's request for a letter together with the
// approval decision. Once a letter number is assigned it is permanent.
type LetterRequest struct {
	shared.BaseEntity
	Version             int
	Type                LetterType
	Fields              FieldMap
	Status              RequestStatus
	LetterNumber        string
	StudentSignatureRef string
	PhotoRef            string
	ApprovedBy          string
	ApprovedAt          *time.Time
	RejectionReason     string
}

// NewLetterRequest creates a pending letter request
func NewLetterRequest(letterType LetterType, fields FieldMap, studentSignatureRef string) (*LetterRequest, error) {
	if !letterType.IsValid() {
		return nil, shared.NewDomainError("INVALID_LETTER_TYPE", "Letter type is required")
	}
	if fields.Len() == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one field is required")
	}
	return &LetterRequest{
		BaseEntity:          shared.NewBaseEntity(),
		Version:             1,
		Type:                letterType,
		Fields:              fields.Clone(),
		Status:              RequestStatusPending,
		StudentSignatureRef: strings.TrimSpace(studentSignatureRef),
	}, nil
}

// HasNumber reports whether a letter number has already been assigned
func (r *LetterRequest) HasNumber() bool {
	return r.LetterNumber != ""
}

// CanBeApproved checks the preconditions for approval other than numbering
func (r *LetterRequest) CanBeApproved() error {
	if r.HasNumber() {
		return shared.NewDomainError("LETTER_ALREADY_NUMBERED",
			"Letter request already carries number "+r.LetterNumber)
	}
	if !r.Status.CanTransitionTo(RequestStatusApproved) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot approve a request in status: "+r.Status.String())
	}
	if r.Type.RequiresStudentSignature() && r.StudentSignatureRef == "" {
		return shared.NewDomainError("STUDENT_SIGNATURE_REQUIRED",
			"A student signature is required for "+r.Type.DisplayName())
	}
	return nil
}

// Approve records the decision and the freshly allocated number.
// It refuses to overwrite an existing number.
func (r *LetterRequest) Approve(number, approver string, at time.Time) error {
	if err := r.CanBeApproved(); err != nil {
		return err
	}
	if strings.TrimSpace(number) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Letter number is required for approval")
	}
	r.LetterNumber = number
	r.Status = RequestStatusApproved
	r.ApprovedBy = approver
	r.ApprovedAt = &at
	r.UpdatedAt = at
	r.Version++
	return nil
}

// Reject closes a pending request without a number
func (r *LetterRequest) Reject(reason string, at time.Time) error {
	if !r.Status.CanTransitionTo(RequestStatusRejected) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot reject a request in status: "+r.Status.String())
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_INPUT", "Rejection reason is required")
	}
	r.Status = RequestStatusRejected
	r.RejectionReason = reason
	r.UpdatedAt = at
	r.Version++
	return nil
}

// AttachStudentSignature sets the student-provided signature reference while pending
func (r *LetterRequest) AttachStudentSignature(ref string) error {
	if r.Status != RequestStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Signature can only change while pending")
	}
	r.StudentSignatureRef = strings.TrimSpace(ref)
	return nil
}

// IsApproved returns true if the request has been approved
func (r *LetterRequest) IsApproved() bool {
	return r.Status == RequestStatusApproved
}

// Year returns the year printed in the letter number: the approval year once
// approved, otherwise the creation year.
func (r *LetterRequest) Year() int {
	if r.ApprovedAt != nil {
		return r.ApprovedAt.Year()
	}
	return r.CreatedAt.Year()
}
