package repositories

import (
	"context"
	"strings"

	"assotessera/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// comuneRepository implements ComuneRepository interface
type comuneRepository struct {
	db *gorm.DB
}

// NewComuneRepository creates a new municipality repository
func NewComuneRepository(db *gorm.DB) ComuneRepository {
	return &comuneRepository{db: db}
}

// GetByCadastralCode gets a municipality by its cadastral code
func (r *comuneRepository) GetByCadastralCode(ctx context.Context, code string) (*models.Comune, error) {
	var comune models.Comune
	err := r.db.WithContext(ctx).
		Where("cadastral_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&comune).Error
	if err != nil {
		return nil, err
	}
	return &comune, nil
}

// GetByNameProvince gets a municipality by name and province, both
// normalized case-insensitively.
func (r *comuneRepository) GetByNameProvince(ctx context.Context, name, province string) (*models.Comune, error) {
	var comune models.Comune
	err := r.db.WithContext(ctx).
		Where("UPPER(name) = ? AND province = ?",
			strings.ToUpper(strings.TrimSpace(name)),
			strings.ToUpper(strings.TrimSpace(province))).
		First(&comune).Error
	if err != nil {
		return nil, err
	}
	return &comune, nil
}

// Count counts reference rows (used to decide whether to seed)
func (r *comuneRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comune{}).Count(&count).Error
	return count, err
}

// BulkInsert inserts municipality rows in batches
func (r *comuneRepository) BulkInsert(ctx context.Context, comuni []models.Comune) error {
	if len(comuni) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(comuni, 500).Error
}

// nameRepository implements NameRepository interface
type nameRepository struct {
	db *gorm.DB
}

// NewNameRepository creates a new name dictionary repository
func NewNameRepository(db *gorm.DB) NameRepository {
	return &nameRepository{db: db}
}

// ListAll lists the whole dictionary; the reconciliation CLI iterates it
// in memory.
func (r *nameRepository) ListAll(ctx context.Context) ([]*models.NameDictionary, error) {
	var names []*models.NameDictionary
	err := r.db.WithContext(ctx).Order("name").Find(&names).Error
	return names, err
}
