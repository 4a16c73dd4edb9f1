package repositories

import (
	"context"
	"time"

	"assotessera/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
}

// ProfileRepository defines profile repository interface
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	ListWithFiscalCode(ctx context.Context) ([]*models.Profile, error)
}

// LoginTokenRepository defines login token repository interface
type LoginTokenRepository interface {
	Create(ctx context.Context, token *models.LoginToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.LoginToken, error)
	MarkUsed(ctx context.Context, id uint) error
	RevokeActiveByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// AdminRepository defines admin repository interface
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ExportFilter narrows the member dataset for admin listing and export
type ExportFilter struct {
	Search  string
	Status  string
	From    *time.Time
	To      *time.Time
	UserIDs []uint
}

// MembershipRepository defines membership repository interface
type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	GetByID(ctx context.Context, id uint) (*models.Membership, error)
	GetLatestByUserID(ctx context.Context, userID uint) (*models.Membership, error)
	GetByProviderOrderID(ctx context.Context, orderID string) (*models.Membership, error)
	Update(ctx context.Context, membership *models.Membership) error
	ListForExport(ctx context.Context, filter *ExportFilter) ([]*models.Membership, error)
	ListAwaitingNumber(ctx context.Context, userIDs []uint) ([]*models.Membership, error)
	ListAssignedNumbersByYear(ctx context.Context, yearID uint) ([]int, error)
	CountAssignedByYear(ctx context.Context, yearID uint) (int64, error)
	ExpireActiveEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PaymentLogRepository defines the append-only webhook audit trail.
// Create returns gorm.ErrDuplicatedKey when the (membership, event type)
// pair was already logged; that error is the idempotency signal.
type PaymentLogRepository interface {
	Create(ctx context.Context, log *models.PaymentLog) error
}

// CardRangeRepository defines card number range repository interface
type CardRangeRepository interface {
	Create(ctx context.Context, r *models.CardNumberRange) error
	GetByID(ctx context.Context, id uint) (*models.CardNumberRange, error)
	ListByYear(ctx context.Context, yearID uint) ([]*models.CardNumberRange, error)
	Delete(ctx context.Context, id uint) error
}

// YearRepository defines association year repository interface
type YearRepository interface {
	Create(ctx context.Context, year *models.AssociationYear) error
	GetByID(ctx context.Context, id uint) (*models.AssociationYear, error)
	GetActive(ctx context.Context) (*models.AssociationYear, error)
	List(ctx context.Context) ([]*models.AssociationYear, error)
	ActivateExclusive(ctx context.Context, id uint) error
}

// ComuneRepository defines municipality reference data access
type ComuneRepository interface {
	GetByCadastralCode(ctx context.Context, code string) (*models.Comune, error)
	GetByNameProvince(ctx context.Context, name, province string) (*models.Comune, error)
	Count(ctx context.Context) (int64, error)
	BulkInsert(ctx context.Context, comuni []models.Comune) error
}

// NameRepository defines the given-name dictionary access
type NameRepository interface {
	ListAll(ctx context.Context) ([]*models.NameDictionary, error)
}
