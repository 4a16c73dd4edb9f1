package repositories

import (
	"context"

	"assotessera/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// cardRangeRepository implements CardRangeRepository interface
type cardRangeRepository struct {
	db *gorm.DB
}

// NewCardRangeRepository creates a new card range repository
func NewCardRangeRepository(db *gorm.DB) CardRangeRepository {
	return &cardRangeRepository{db: db}
}

// Create creates a new range
func (r *cardRangeRepository) Create(ctx context.Context, rangeRow *models.CardNumberRange) error {
	return r.db.WithContext(ctx).Create(rangeRow).Error
}

// GetByID gets a range by ID
func (r *cardRangeRepository) GetByID(ctx context.Context, id uint) (*models.CardNumberRange, error) {
	var rangeRow models.CardNumberRange
	err := r.db.WithContext(ctx).First(&rangeRow, id).Error
	if err != nil {
		return nil, err
	}
	return &rangeRow, nil
}

// ListByYear lists ranges for a year in stable start-number order; the
// allocator depends on this ordering for deterministic assignment.
func (r *cardRangeRepository) ListByYear(ctx context.Context, yearID uint) ([]*models.CardNumberRange, error) {
	var ranges []*models.CardNumberRange
	err := r.db.WithContext(ctx).
		Where("year_id = ?", yearID).
		Order("start_number").
		Find(&ranges).Error
	return ranges, err
}

// Delete hard-deletes a range
func (r *cardRangeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.CardNumberRange{}, id).Error
}
