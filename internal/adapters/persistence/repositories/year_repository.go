package repositories

import (
	"context"

	"assotessera/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// yearRepository implements YearRepository interface
type yearRepository struct {
	db *gorm.DB
}

// NewYearRepository creates a new association year repository
func NewYearRepository(db *gorm.DB) YearRepository {
	return &yearRepository{db: db}
}

// Create creates a new association year
func (r *yearRepository) Create(ctx context.Context, year *models.AssociationYear) error {
	return r.db.WithContext(ctx).Create(year).Error
}

// GetByID gets a year by ID
func (r *yearRepository) GetByID(ctx context.Context, id uint) (*models.AssociationYear, error) {
	var year models.AssociationYear
	err := r.db.WithContext(ctx).First(&year, id).Error
	if err != nil {
		return nil, err
	}
	return &year, nil
}

// GetActive gets the single active year
func (r *yearRepository) GetActive(ctx context.Context) (*models.AssociationYear, error) {
	var year models.AssociationYear
	err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&year).Error
	if err != nil {
		return nil, err
	}
	return &year, nil
}

// List lists all years, newest first
func (r *yearRepository) List(ctx context.Context) ([]*models.AssociationYear, error) {
	var years []*models.AssociationYear
	err := r.db.WithContext(ctx).Order("start_date DESC").Find(&years).Error
	return years, err
}

// ActivateExclusive activates one year and deactivates every other in the
// same transaction, keeping the single-active invariant.
func (r *yearRepository) ActivateExclusive(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AssociationYear{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.AssociationYear{}).
			Where("id = ?", id).
			Update("is_active", true).Error
	})
}
