package models

import (
	"time"

	"gorm.io/gorm"

	"assotessera/internal/core/domain"
)

// ============================================================
// Identity & profile tables
// ============================================================

// User represents users table. Email is the identity anchor; login happens
// via magic links, so there is no password column.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Email      string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone      *string        `gorm:"size:30" json:"phone"`
	Newsletter bool           `gorm:"default:false" json:"newsletter"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Profile     *Profile     `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Memberships []Membership `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone,omitempty"`
	Newsletter bool      `json:"newsletter"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Phone:      u.Phone,
		Newsletter: u.Newsletter,
		CreatedAt:  u.CreatedAt,
	}
}

// Profile represents profiles table (one-to-one with users)
type Profile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	FirstName       string    `gorm:"size:100;not null" json:"first_name"`
	LastName        string    `gorm:"size:100;not null" json:"last_name"`
	BirthDate       time.Time `gorm:"not null" json:"birth_date"`
	Gender          *string   `gorm:"size:1" json:"gender"`
	FiscalCode      *string   `gorm:"size:16;index" json:"fiscal_code"`
	BirthCity       *string   `gorm:"size:100" json:"birth_city"`
	BirthProvince   *string   `gorm:"size:2" json:"birth_province"`
	Street          string    `gorm:"size:200" json:"street"`
	City            string    `gorm:"size:100" json:"city"`
	Province        string    `gorm:"size:2" json:"province"`
	PostalCode      string    `gorm:"size:10" json:"postal_code"`
	Country         string    `gorm:"size:2;default:'IT'" json:"country"`
	DocumentType    *string   `gorm:"size:30" json:"document_type"`
	DocumentNumber  *string   `gorm:"size:50" json:"document_number"`
	StatuteConsent  bool      `gorm:"default:false" json:"statute_consent"`
	PrivacyConsent  bool      `gorm:"default:false" json:"privacy_consent"`
	ProfileComplete bool      `gorm:"default:false" json:"profile_complete"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// IsComplete recomputes the derived completeness flag from required fields.
func (p *Profile) IsComplete() bool {
	return p.FirstName != "" && p.LastName != "" &&
		!p.BirthDate.IsZero() &&
		p.FiscalCode != nil && *p.FiscalCode != "" &&
		p.Street != "" && p.City != "" && p.Province != "" && p.PostalCode != "" &&
		p.StatuteConsent && p.PrivacyConsent
}

// LoginToken represents login_tokens table. Only the SHA-256 hash of the
// magic-link token is stored.
type LoginToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (LoginToken) TableName() string {
	return "login_tokens"
}

func (t *LoginToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *LoginToken) IsUsable() bool {
	return t.UsedAt == nil && t.RevokedAt == nil && !t.IsExpired()
}

// Admin represents admins table. Admins are the only password-holding
// accounts; they are managed via the CLI, never via self-registration.
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Admin) TableName() string {
	return "admins"
}

// ============================================================
// Membership tables
// ============================================================

// Membership represents memberships table. The newest row per user is the
// authoritative one for state derivation.
type Membership struct {
	ID               uint                    `gorm:"primaryKey" json:"id"`
	UserID           uint                    `gorm:"index;not null" json:"user_id"`
	YearID           uint                    `gorm:"index;not null" json:"year_id"`
	PaymentStatus    domain.PaymentStatus    `gorm:"size:20;not null;default:'PENDING'" json:"payment_status"`
	Status           domain.MembershipStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	ProviderOrderID  *string                 `gorm:"size:64;uniqueIndex" json:"provider_order_id"`
	AmountCents      int                     `gorm:"not null" json:"amount_cents"`
	MembershipNumber *string                 `gorm:"size:20" json:"membership_number"`
	StartDate        *time.Time              `json:"start_date"`
	EndDate          *time.Time              `json:"end_date"`
	CreatedAt        time.Time               `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time               `gorm:"autoUpdateTime" json:"updated_at"`

	User User            `gorm:"foreignKey:UserID" json:"-"`
	Year AssociationYear `gorm:"foreignKey:YearID" json:"-"`
}

func (Membership) TableName() string {
	return "memberships"
}

// ToView projects the row into the pure state-derivation input.
func (m *Membership) ToView() *domain.MembershipView {
	return &domain.MembershipView{
		Status:        m.Status,
		PaymentStatus: m.PaymentStatus,
		HasOrderID:    m.ProviderOrderID != nil && *m.ProviderOrderID != "",
		HasCardNumber: m.MembershipNumber != nil && *m.MembershipNumber != "",
	}
}

// PaymentLog is the append-only webhook audit trail. The composite unique
// index on (membership_id, event_type) is the idempotency guard: a duplicate
// delivery fails the insert with a duplicate-key error and is acknowledged
// without reprocessing.
type PaymentLog struct {
	ID           uint                    `gorm:"primaryKey" json:"id"`
	MembershipID uint                    `gorm:"not null;uniqueIndex:ux_payment_logs_membership_event,priority:1" json:"membership_id"`
	EventType    domain.WebhookEventType `gorm:"size:50;not null;uniqueIndex:ux_payment_logs_membership_event,priority:2" json:"event_type"`
	ProviderID   string                  `gorm:"size:64;index" json:"provider_id"`
	RawPayload   string                  `gorm:"type:text" json:"-"`
	CreatedAt    time.Time               `gorm:"autoCreateTime" json:"created_at"`

	Membership Membership `gorm:"foreignKey:MembershipID" json:"-"`
}

func (PaymentLog) TableName() string {
	return "payment_logs"
}

// ============================================================
// Master tables
// ============================================================

// AssociationYear represents association_years table
type AssociationYear struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:20;uniqueIndex;not null" json:"name"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	FeeCents  int       `gorm:"not null" json:"fee_cents"`
	IsActive  bool      `gorm:"default:false;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AssociationYear) TableName() string {
	return "association_years"
}

func (y *AssociationYear) ToDomain() domain.AssociationYear {
	return domain.AssociationYear{
		ID:        y.ID,
		Name:      y.Name,
		StartDate: y.StartDate,
		EndDate:   y.EndDate,
		FeeCents:  y.FeeCents,
		IsActive:  y.IsActive,
	}
}

// CardNumberRange represents card_number_ranges table
type CardNumberRange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Start     int       `gorm:"column:start_number;not null" json:"start"`
	End       int       `gorm:"column:end_number;not null" json:"end"`
	YearID    uint      `gorm:"index;not null" json:"year_id"`
	CreatedBy uint      `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Year AssociationYear `gorm:"foreignKey:YearID" json:"-"`
}

func (CardNumberRange) TableName() string {
	return "card_number_ranges"
}

func (r *CardNumberRange) ToDomain() domain.CardNumberRange {
	return domain.CardNumberRange{
		ID:        r.ID,
		Start:     r.Start,
		End:       r.End,
		YearID:    r.YearID,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

// Comune is the reference municipality table used for residence
// normalization and cadastral-code lookups (AICS export).
type Comune struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"size:100;not null;index:ix_comuni_name_province,priority:1" json:"name"`
	Province      string `gorm:"size:2;not null;index:ix_comuni_name_province,priority:2" json:"province"`
	CadastralCode string `gorm:"size:4;uniqueIndex;not null" json:"cadastral_code"`
}

func (Comune) TableName() string {
	return "comuni"
}

// NameDictionary maps given names to gender; consulted by the fiscal-code
// reconciliation CLI when hunting for dropped compound names.
type NameDictionary struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Gender string `gorm:"size:1;not null" json:"gender"`
}

func (NameDictionary) TableName() string {
	return "name_dictionary"
}

// AutoMigrate creates or updates all application tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Profile{},
		&LoginToken{},
		&Admin{},
		&AssociationYear{},
		&Membership{},
		&PaymentLog{},
		&CardNumberRange{},
		&Comune{},
		&NameDictionary{},
	)
}
