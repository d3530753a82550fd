package letter

import (
	"context"

	"github.com/google/uuid"
)

// RequestRepository persists letter requests
type RequestRepository interface {
	ApprovedNumberSource
	FindByID(ctx context.Context, id uuid.UUID) (*LetterRequest, error)
	FindByStatus(ctx context.Context, status RequestStatus, limit int) ([]LetterRequest, error)
	Save(ctx context.Context, request *LetterRequest) error
}

// TemplateRepository supplies templates keyed by id or letter type
type TemplateRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Template, error)
	// FindByType returns the template for a letter type, or (nil, nil) if none exists
	FindByType(ctx context.Context, letterType LetterType) (*Template, error)
	Save(ctx context.Context, template *Template) error
}
