package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCounterStore keeps letter counters in the letter_counters table.
// Increment runs an UPDATE ... SET value = value + 1 inside a transaction, so
// the row lock makes allocation atomic across service instances.
type GormCounterStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormCounterStore creates a new GormCounterStore
func NewGormCounterStore(db *gorm.DB) *GormCounterStore {
	return &GormCounterStore{db: db, now: time.Now}
}

// Get returns the stored value, 0 when the type has no row yet
func (s *GormCounterStore) Get(ctx context.Context, letterType letter.LetterType) (int64, error) {
	var model models.LetterCounterModel
	err := s.db.WithContext(ctx).Where("letter_type = ?", letterType).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.Value, nil
}

// Set overwrites the stored value
func (s *GormCounterStore) Set(ctx context.Context, letterType letter.LetterType, value int64) error {
	model := models.LetterCounterModel{LetterType: letterType, Value: value, UpdatedAt: s.now()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "letter_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model).Error
}

// Increment adds one and returns the new value
func (s *GormCounterStore) Increment(ctx context.Context, letterType letter.LetterType) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.LetterCounterModel{LetterType: letterType, UpdatedAt: s.now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		result := tx.Model(&models.LetterCounterModel{}).
			Where("letter_type = ?", letterType).
			Updates(map[string]any{
				"value":      gorm.Expr("value + ?", 1),
				"updated_at": s.now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("counter row for %s disappeared", letterType)
		}

		var model models.LetterCounterModel
		if err := tx.Where("letter_type = ?", letterType).First(&model).Error; err != nil {
			return err
		}
		value = model.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return value, nil
}

// RaiseTo moves the counter up to value with UPDATE ... WHERE value < ?, so a
// concurrent Increment is never overwritten. Returns the value stored afterwards.
func (s *GormCounterStore) RaiseTo(ctx context.Context, letterType letter.LetterType, value int64) (int64, error) {
	var stored int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.LetterCounterModel{LetterType: letterType, UpdatedAt: s.now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		err := tx.Model(&models.LetterCounterModel{}).
			Where("letter_type = ? AND value < ?", letterType, value).
			Updates(map[string]any{
				"value":      value,
				"updated_at": s.now(),
			}).Error
		if err != nil {
			return err
		}

		var model models.LetterCounterModel
		if err := tx.Where("letter_type = ?", letterType).First(&model).Error; err != nil {
			return err
		}
		stored = model.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to raise counter: %w", err)
	}
	return stored, nil
}

// All returns every stored counter
func (s *GormCounterStore) All(ctx context.Context) (map[letter.LetterType]int64, error) {
	var rows []models.LetterCounterModel
	if err := s.db.WithContext(ctx).Order("letter_type").Find(&rows).Error; err != nil {
		return nil, err
	}
	counters := make(map[letter.LetterType]int64, len(rows))
	for _, row := range rows {
		counters[row.LetterType] = row.Value
	}
	return counters, nil
}

var (
	_ letter.AtomicCounterStore  = (*GormCounterStore)(nil)
	_ letter.RaisingCounterStore = (*GormCounterStore)(nil)
)
