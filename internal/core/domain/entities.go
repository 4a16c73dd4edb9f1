package domain

import "time"

// Role represents an authenticated role in the system
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// PaymentStatus tracks the payment side of a membership
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCanceled  PaymentStatus = "CANCELED"
)

// MembershipStatus tracks the lifecycle side of a membership.
// Memberships are never hard-deleted; they move to CANCELED or EXPIRED.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "PENDING"
	MembershipActive   MembershipStatus = "ACTIVE"
	MembershipExpired  MembershipStatus = "EXPIRED"
	MembershipCanceled MembershipStatus = "CANCELED"
)

// WebhookEventType is a payment-provider event admitted by the allow-list
type WebhookEventType string

const (
	EventOrderApproved    WebhookEventType = "CHECKOUT.ORDER.APPROVED"
	EventPaymentCompleted WebhookEventType = "PAYMENT.CAPTURE.COMPLETED"
	EventPaymentDenied    WebhookEventType = "PAYMENT.CAPTURE.DENIED"
	EventPaymentRefunded  WebhookEventType = "PAYMENT.CAPTURE.REFUNDED"
)

// AllowedWebhookEvents is the explicit allow-list; anything else is rejected
// before processing.
var AllowedWebhookEvents = map[WebhookEventType]bool{
	EventOrderApproved:    true,
	EventPaymentCompleted: true,
	EventPaymentDenied:    true,
	EventPaymentRefunded:  true,
}

// AssociationYear represents one membership period. Exactly one year is
// active at a time; activation is handled by the admin CLI.
type AssociationYear struct {
	ID        uint
	Name      string
	StartDate time.Time
	EndDate   time.Time
	FeeCents  int
	IsActive  bool
}

// CardNumberRange is an admin-defined inclusive numeric interval scoped to an
// association year.
type CardNumberRange struct {
	ID        uint
	Start     int
	End       int
	YearID    uint
	CreatedBy uint
	CreatedAt time.Time
}

// Size returns the count of numbers covered by the range.
func (r CardNumberRange) Size() int {
	return r.End - r.Start + 1
}

// Contains reports whether n falls inside the range.
func (r CardNumberRange) Contains(n int) bool {
	return n >= r.Start && n <= r.End
}
