package repositories

import (
	"context"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/core/domain"

	"gorm.io/gorm"
)

// membershipRepository implements MembershipRepository interface
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// Create creates a new membership
func (r *membershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

// GetByID gets a membership by ID with user preloaded
func (r *membershipRepository) GetByID(ctx context.Context, id uint) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Year").
		First(&membership, id).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// GetLatestByUserID gets the newest membership for a user. The newest row is
// the authoritative one for state derivation.
func (r *membershipRepository) GetLatestByUserID(ctx context.Context, userID uint) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// GetByProviderOrderID gets a membership by the payment provider order id
func (r *membershipRepository) GetByProviderOrderID(ctx context.Context, orderID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Year").
		Where("provider_order_id = ?", orderID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// Update updates a membership
func (r *membershipRepository) Update(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Save(membership).Error
}

// ListForExport lists memberships with user and profile preloaded, filtered
// for the admin listing/export surface.
func (r *membershipRepository) ListForExport(ctx context.Context, filter *ExportFilter) ([]*models.Membership, error) {
	query := r.db.WithContext(ctx).
		Preload("User").
		Preload("User.Profile").
		Joins("JOIN users ON users.id = memberships.user_id").
		Order("memberships.created_at")

	if filter != nil {
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			query = query.
				Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
				Where("users.email LIKE ? OR profiles.first_name LIKE ? OR profiles.last_name LIKE ? OR profiles.fiscal_code LIKE ?",
					like, like, like, like)
		}
		if filter.Status != "" {
			query = query.Where("memberships.status = ?", filter.Status)
		}
		if filter.From != nil {
			query = query.Where("memberships.created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			query = query.Where("memberships.created_at <= ?", *filter.To)
		}
		if len(filter.UserIDs) > 0 {
			query = query.Where("memberships.user_id IN ?", filter.UserIDs)
		}
	}

	var memberships []*models.Membership
	err := query.Find(&memberships).Error
	return memberships, err
}

// ListAwaitingNumber lists memberships paid but without a card number, for
// the given users, preserving newest-first per user via a latest-row filter.
func (r *membershipRepository) ListAwaitingNumber(ctx context.Context, userIDs []uint) ([]*models.Membership, error) {
	var memberships []*models.Membership
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN ?", userIDs).
		Where("payment_status = ?", domain.PaymentSucceeded).
		Where("membership_number IS NULL OR membership_number = ''").
		Where("status NOT IN ?", []domain.MembershipStatus{domain.MembershipCanceled, domain.MembershipExpired}).
		Find(&memberships).Error
	return memberships, err
}

// ListAssignedNumbersByYear returns every membership number already assigned
// for a year, as integers, sorted ascending.
func (r *membershipRepository) ListAssignedNumbersByYear(ctx context.Context, yearID uint) ([]int, error) {
	var raw []string
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("year_id = ?", yearID).
		Where("membership_number IS NOT NULL AND membership_number <> ''").
		Order("CAST(membership_number AS UNSIGNED)").
		Pluck("membership_number", &raw).Error
	if err != nil {
		return nil, err
	}

	numbers := make([]int, 0, len(raw))
	for _, s := range raw {
		n := 0
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				n = -1
				break
			}
			n = n*10 + int(s[i]-'0')
		}
		if n > 0 {
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}

// CountAssignedByYear counts memberships with an assigned number for a year
func (r *membershipRepository) CountAssignedByYear(ctx context.Context, yearID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("year_id = ?", yearID).
		Where("membership_number IS NOT NULL AND membership_number <> ''").
		Count(&count).Error
	return count, err
}

// ExpireActiveEndedBefore flips ACTIVE memberships whose end date has passed
// to EXPIRED. Returns the number of rows touched.
func (r *membershipRepository) ExpireActiveEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("status = ?", domain.MembershipActive).
		Where("end_date IS NOT NULL AND end_date < ?", cutoff).
		Update("status", domain.MembershipExpired)
	return result.RowsAffected, result.Error
}
