package repositories

import (
	"context"
	"time"

	"assotessera/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// loginTokenRepository implements LoginTokenRepository interface
type loginTokenRepository struct {
	db *gorm.DB
}

// NewLoginTokenRepository creates a new login token repository
func NewLoginTokenRepository(db *gorm.DB) LoginTokenRepository {
	return &loginTokenRepository{db: db}
}

// Create creates a new login token
func (r *loginTokenRepository) Create(ctx context.Context, token *models.LoginToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByTokenHash gets a token by its SHA-256 hash with user preloaded
func (r *loginTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.LoginToken, error) {
	var token models.LoginToken
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkUsed stamps a token as consumed (single-use)
func (r *loginTokenRepository) MarkUsed(ctx context.Context, id uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.LoginToken{}).
		Where("id = ?", id).
		Update("used_at", now).Error
}

// RevokeActiveByUserID revokes every still-usable token for a user; called
// before issuing a new magic link.
func (r *loginTokenRepository) RevokeActiveByUserID(ctx context.Context, userID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.LoginToken{}).
		Where("user_id = ? AND used_at IS NULL AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

// DeleteExpired removes tokens past their TTL
func (r *loginTokenRepository) DeleteExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.LoginToken{}).Error
}
