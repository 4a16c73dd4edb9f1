package domain

// SystemState is the derived lifecycle state of a user's membership journey
type SystemState string

const (
	StateNoMembership      SystemState = "NO_MEMBERSHIP"
	StateProfileComplete   SystemState = "PROFILE_COMPLETE"
	StateProcessingPayment SystemState = "PROCESSING_PAYMENT"
	StatePaymentFailed     SystemState = "PAYMENT_FAILED"
	StateAwaitingNumber    SystemState = "AWAITING_NUMBER"
	StateActive            SystemState = "ACTIVE"
	StateExpired           SystemState = "EXPIRED"
	StateCanceled          SystemState = "CANCELED"
)

// Label returns the Italian user-facing label for the state.
func (s SystemState) Label() string {
	switch s {
	case StateNoMembership:
		return "Completa il tuo profilo"
	case StateProfileComplete:
		return "Profilo completo, puoi tesserarti"
	case StateProcessingPayment:
		return "Pagamento in elaborazione"
	case StatePaymentFailed:
		return "Pagamento non riuscito"
	case StateAwaitingNumber:
		return "In attesa del numero di tessera"
	case StateActive:
		return "Tessera attiva"
	case StateExpired:
		return "Tessera scaduta"
	case StateCanceled:
		return "Tessera annullata"
	default:
		return string(s)
	}
}

// MembershipView is the membership data DeriveState decides on. A nil view
// means the user has no membership record at all.
type MembershipView struct {
	Status        MembershipStatus
	PaymentStatus PaymentStatus
	HasOrderID    bool
	HasCardNumber bool
}

// stateRule pairs a predicate with the state it yields. Rules are evaluated
// strictly in order: terminal and negative states come before positive ones,
// so a canceled-then-retried membership is never reported as active.
type stateRule struct {
	applies func(profileComplete bool, m *MembershipView) bool
	state   SystemState
}

var stateRules = []stateRule{
	{func(pc bool, m *MembershipView) bool { return !pc }, StateNoMembership},
	{func(pc bool, m *MembershipView) bool { return m == nil }, StateProfileComplete},
	{func(pc bool, m *MembershipView) bool { return m.Status == MembershipCanceled }, StateCanceled},
	{func(pc bool, m *MembershipView) bool { return m.Status == MembershipExpired }, StateExpired},
	{func(pc bool, m *MembershipView) bool {
		return m.PaymentStatus == PaymentFailed || m.PaymentStatus == PaymentCanceled
	}, StatePaymentFailed},
	{func(pc bool, m *MembershipView) bool {
		return m.PaymentStatus == PaymentPending && !m.HasOrderID
	}, StateProfileComplete},
	{func(pc bool, m *MembershipView) bool {
		return m.PaymentStatus == PaymentPending && m.HasOrderID
	}, StateProcessingPayment},
	{func(pc bool, m *MembershipView) bool {
		return m.PaymentStatus == PaymentSucceeded && !m.HasCardNumber
	}, StateAwaitingNumber},
	{func(pc bool, m *MembershipView) bool {
		return m.PaymentStatus == PaymentSucceeded && m.HasCardNumber
	}, StateActive},
}

// DeriveState maps persisted profile/membership data to exactly one state.
// It is total: any reachable combination matches a rule, and unreachable
// payment statuses fall back to NoMembership rather than panicking.
func DeriveState(profileComplete bool, m *MembershipView) SystemState {
	for _, rule := range stateRules {
		if rule.applies(profileComplete, m) {
			return rule.state
		}
	}
	return StateNoMembership
}

// CanPurchase reports whether a new checkout may be started from the state.
func CanPurchase(state SystemState) bool {
	switch state {
	case StateNoMembership, StateProfileComplete, StatePaymentFailed:
		return true
	}
	return false
}
