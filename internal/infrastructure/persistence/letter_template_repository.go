package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLetterTemplateRepository implements letter.TemplateRepository using GORM
type GormLetterTemplateRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormLetterTemplateRepository creates a new GormLetterTemplateRepository
func NewGormLetterTemplateRepository(db *gorm.DB) *GormLetterTemplateRepository {
	return &GormLetterTemplateRepository{db: db, now: time.Now}
}

// FindByID finds a template by its ID
func (r *GormLetterTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*letter.Template, error) {
	var model models.LetterTemplateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByType returns the template for letterType, or (nil, nil) if there is none
func (r *GormLetterTemplateRepository) FindByType(ctx context.Context, letterType letter.LetterType) (*letter.Template, error) {
	var model models.LetterTemplateModel
	if err := r.db.WithContext(ctx).Where("type = ?", letterType).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save stores a template, replacing the existing template of the same type
func (r *GormLetterTemplateRepository) Save(ctx context.Context, template *letter.Template) error {
	if err := template.Validate(); err != nil {
		return err
	}
	model := models.LetterTemplateModelFromDomain(template, r.now())
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "raw_content", "field_names", "layout_hints", "updated_at"}),
		}).
		Create(model).Error
}

// SeedMissing stores each template whose type has no template yet and
// returns how many were added. Existing templates are left untouched.
func (r *GormLetterTemplateRepository) SeedMissing(ctx context.Context, templates []*letter.Template) (int, error) {
	added := 0
	for _, t := range templates {
		model := models.LetterTemplateModelFromDomain(t, r.now())
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "type"}}, DoNothing: true}).
			Create(model)
		if result.Error != nil {
			return added, result.Error
		}
		added += int(result.RowsAffected)
	}
	return added, nil
}

var _ letter.TemplateRepository = (*GormLetterTemplateRepository)(nil)
