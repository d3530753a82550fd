package persistence

import (
	"context"
	"errors"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultRequestListLimit = 50
	maxRequestListLimit     = 500
)

// GormLetterRequestRepository implements letter.RequestRepository using GORM
type GormLetterRequestRepository struct {
	db *gorm.DB
}

// NewGormLetterRequestRepository creates a new GormLetterRequestRepository
func NewGormLetterRequestRepository(db *gorm.DB) *GormLetterRequestRepository {
	return &GormLetterRequestRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormLetterRequestRepository) WithTx(tx *gorm.DB) *GormLetterRequestRepository {
	return &GormLetterRequestRepository{db: tx}
}

// FindByID finds a letter request by its ID
func (r *GormLetterRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*letter.LetterRequest, error) {
	var model models.LetterRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStatus lists requests in a status, newest first
func (r *GormLetterRequestRepository) FindByStatus(ctx context.Context, status letter.RequestStatus, limit int) ([]letter.LetterRequest, error) {
	if limit <= 0 {
		limit = defaultRequestListLimit
	}
	if limit > maxRequestListLimit {
		limit = maxRequestListLimit
	}

	var rows []models.LetterRequestModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	requests := make([]letter.LetterRequest, len(rows))
	for i := range rows {
		requests[i] = *rows[i].ToDomain()
	}
	return requests, nil
}

// FindIssuedNumbers lists every letter number issued for a type
func (r *GormLetterRequestRepository) FindIssuedNumbers(ctx context.Context, letterType letter.LetterType) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.LetterRequestModel{}).
		Where("type = ? AND letter_number IS NOT NULL", letterType).
		Pluck("letter_number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// Save inserts a new request or updates an existing one. Updates only apply
// over an older stored version; anything else is a concurrency conflict.
func (r *GormLetterRequestRepository) Save(ctx context.Context, request *letter.LetterRequest) error {
	model := models.LetterRequestModelFromDomain(request)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.LetterRequestModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(model).Error
		}

		result := tx.Model(&models.LetterRequestModel{}).
			Where("id = ? AND version < ?", model.ID, model.Version).
			Updates(map[string]any{
				"fields":                model.FieldsJSON,
				"status":                model.Status,
				"letter_number":         model.LetterNumber,
				"student_signature_ref": model.StudentSignatureRef,
				"photo_ref":             model.PhotoRef,
				"approved_by":           model.ApprovedBy,
				"approved_at":           model.ApprovedAt,
				"rejection_reason":      model.RejectionReason,
				"version":               model.Version,
				"updated_at":            model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

var _ letter.RequestRepository = (*GormLetterRequestRepository)(nil)
