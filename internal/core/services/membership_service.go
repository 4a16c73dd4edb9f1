package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/config"
	"assotessera/internal/core/domain"

	"gorm.io/gorm"
)

// MembershipService drives the membership lifecycle: status derivation,
// checkout and the admin-side terminal transitions.
type MembershipService struct {
	membershipRepo repositories.MembershipRepository
	profileRepo    repositories.ProfileRepository
	yearRepo       repositories.YearRepository
	provider       PaymentProvider
	cfg            *config.Config
}

// NewMembershipService creates a new membership service
func NewMembershipService(
	membershipRepo repositories.MembershipRepository,
	profileRepo repositories.ProfileRepository,
	yearRepo repositories.YearRepository,
	provider PaymentProvider,
	cfg *config.Config,
) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		profileRepo:    profileRepo,
		yearRepo:       yearRepo,
		provider:       provider,
		cfg:            cfg,
	}
}

// MembershipSummary is the membership detail embedded in a status response
type MembershipSummary struct {
	ID               uint                    `json:"id"`
	YearName         string                  `json:"year_name"`
	PaymentStatus    domain.PaymentStatus    `json:"payment_status"`
	Status           domain.MembershipStatus `json:"status"`
	MembershipNumber *string                 `json:"membership_number,omitempty"`
	StartDate        *time.Time              `json:"start_date,omitempty"`
	EndDate          *time.Time              `json:"end_date,omitempty"`
}

// StatusResponse is the polled membership status for the frontend
type StatusResponse struct {
	State       domain.SystemState   `json:"state"`
	Label       string               `json:"label"`
	CanPurchase bool                 `json:"can_purchase"`
	ActiveYear  *YearSummary         `json:"active_year,omitempty"`
	Membership  *MembershipSummary   `json:"membership,omitempty"`
}

// YearSummary is the active-year detail shown before checkout
type YearSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	FeeCents int    `json:"fee_cents"`
}

// CheckoutResponse carries the provider approval redirect
type CheckoutResponse struct {
	MembershipID uint   `json:"membership_id"`
	OrderID      string `json:"order_id"`
	ApprovalURL  string `json:"approval_url"`
	AmountCents  int    `json:"amount_cents"`
}

// GetStatus derives the current lifecycle state for a user. The newest
// membership row is authoritative.
func (s *MembershipService) GetStatus(ctx context.Context, userID uint) (*StatusResponse, error) {
	profileComplete := false
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		profileComplete = profile.ProfileComplete
	}

	latest, err := s.membershipRepo.GetLatestByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		latest = nil
	}

	var view *domain.MembershipView
	if latest != nil {
		view = latest.ToView()
	}

	state := domain.DeriveState(profileComplete, view)

	resp := &StatusResponse{
		State:       state,
		Label:       state.Label(),
		CanPurchase: domain.CanPurchase(state),
	}

	if latest != nil {
		year, err := s.yearRepo.GetByID(ctx, latest.YearID)
		yearName := ""
		if err == nil {
			yearName = year.Name
		}
		resp.Membership = &MembershipSummary{
			ID:               latest.ID,
			YearName:         yearName,
			PaymentStatus:    latest.PaymentStatus,
			Status:           latest.Status,
			MembershipNumber: latest.MembershipNumber,
			StartDate:        latest.StartDate,
			EndDate:          latest.EndDate,
		}
	}

	if active, err := s.yearRepo.GetActive(ctx); err == nil {
		resp.ActiveYear = &YearSummary{ID: active.ID, Name: active.Name, FeeCents: active.FeeCents}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return resp, nil
}

// Checkout starts a payment for the active year. Only allowed from the
// purchasable states; a pending membership without an order is reused so an
// abandoned checkout does not pile up rows.
func (s *MembershipService) Checkout(ctx context.Context, userID uint) (*CheckoutResponse, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPurchaseNotAllowed
		}
		return nil, err
	}
	if !profile.ProfileComplete {
		return nil, domain.ErrPurchaseNotAllowed
	}

	latest, err := s.membershipRepo.GetLatestByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		latest = nil
	}

	var view *domain.MembershipView
	if latest != nil {
		view = latest.ToView()
	}
	if !domain.CanPurchase(domain.DeriveState(true, view)) {
		return nil, domain.ErrPurchaseNotAllowed
	}

	year, err := s.yearRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoActiveYear
		}
		return nil, err
	}

	membership := s.reusablePending(latest, year.ID)
	if membership == nil {
		membership = &models.Membership{
			UserID:        userID,
			YearID:        year.ID,
			PaymentStatus: domain.PaymentPending,
			Status:        domain.MembershipPending,
			AmountCents:   year.FeeCents,
		}
		if err := s.membershipRepo.Create(ctx, membership); err != nil {
			return nil, err
		}
	}

	order, err := s.provider.CreateOrder(ctx,
		year.FeeCents,
		fmt.Sprintf("Tesseramento %s", year.Name),
		strconv.FormatUint(uint64(membership.ID), 10),
		s.cfg.PublicURL+"/tesseramento/esito",
		s.cfg.PublicURL+"/tesseramento/annullato",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	membership.ProviderOrderID = &order.ID
	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, err
	}

	log.Printf("🚀 Checkout started: membership %d, order %s", membership.ID, order.ID)

	return &CheckoutResponse{
		MembershipID: membership.ID,
		OrderID:      order.ID,
		ApprovalURL:  order.ApprovalURL,
		AmountCents:  year.FeeCents,
	}, nil
}

// reusablePending returns the latest membership when it is a not-yet-paid
// attempt for the same year, so checkout replaces its order instead of
// inserting a sibling.
func (s *MembershipService) reusablePending(latest *models.Membership, yearID uint) *models.Membership {
	if latest == nil || latest.YearID != yearID {
		return nil
	}
	if latest.Status != domain.MembershipPending {
		return nil
	}
	if latest.PaymentStatus != domain.PaymentPending && latest.PaymentStatus != domain.PaymentFailed {
		return nil
	}
	if latest.PaymentStatus == domain.PaymentFailed {
		latest.PaymentStatus = domain.PaymentPending
	}
	return latest
}

// Cancel moves a membership to the CANCELED terminal state (admin action).
// Rows are never deleted.
func (s *MembershipService) Cancel(ctx context.Context, membershipID uint) error {
	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMembershipNotFound
		}
		return err
	}

	if membership.Status == domain.MembershipCanceled {
		return nil
	}

	membership.Status = domain.MembershipCanceled
	return s.membershipRepo.Update(ctx, membership)
}

// RunExpirationSweep flips active memberships past their end date to EXPIRED.
// Invoked on a daily ticker from main and runnable on demand.
func (s *MembershipService) RunExpirationSweep(ctx context.Context) (int64, error) {
	n, err := s.membershipRepo.ExpireActiveEndedBefore(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("✅ Expiration sweep: %d memberships expired", n)
	}
	return n, nil
}
