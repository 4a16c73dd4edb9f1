package repositories

import (
	"context"

	"assotessera/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// paymentLogRepository implements PaymentLogRepository interface
type paymentLogRepository struct {
	db *gorm.DB
}

// NewPaymentLogRepository creates a new payment log repository
func NewPaymentLogRepository(db *gorm.DB) PaymentLogRepository {
	return &paymentLogRepository{db: db}
}

// Create appends one audit row. With TranslateError enabled a duplicate
// (membership_id, event_type) insert surfaces as gorm.ErrDuplicatedKey,
// which the webhook processor treats as "already applied".
func (r *paymentLogRepository) Create(ctx context.Context, log *models.PaymentLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
