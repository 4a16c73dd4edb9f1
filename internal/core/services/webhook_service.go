package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/core/domain"

	"gorm.io/gorm"
)

// maxWebhookBody caps accepted webhook payloads at 64 KiB
const maxWebhookBody = 64 * 1024

// Webhook errors
var (
	ErrPayloadTooLarge  = errors.New("webhook payload too large")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownEventType = errors.New("event type not allowed")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// WebhookResult summarizes the outcome of a processed delivery
type WebhookResult struct {
	EventType domain.WebhookEventType `json:"event_type"`
	Duplicate bool                    `json:"duplicate"`
}

// WebhookService processes payment provider webhook deliveries
type WebhookService struct {
	membershipRepo repositories.MembershipRepository
	logRepo        repositories.PaymentLogRepository
	provider       PaymentProvider
	mail           MailSender
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	membershipRepo repositories.MembershipRepository,
	logRepo repositories.PaymentLogRepository,
	provider PaymentProvider,
	mail MailSender,
) *WebhookService {
	return &WebhookService{
		membershipRepo: membershipRepo,
		logRepo:        logRepo,
		provider:       provider,
		mail:           mail,
	}
}

// webhookEvent is the subset of the provider event envelope we consume
type webhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID            string `json:"id"`
		CustomID      string `json:"custom_id"`
		PurchaseUnits []struct {
			CustomID string `json:"custom_id"`
		} `json:"purchase_units"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// orderID returns the provider order id regardless of the resource shape:
// order events carry it as the resource id, capture events under
// supplementary_data.
func (e *webhookEvent) orderID() string {
	if e.Resource.SupplementaryData.RelatedIDs.OrderID != "" {
		return e.Resource.SupplementaryData.RelatedIDs.OrderID
	}
	if domain.WebhookEventType(e.EventType) == domain.EventOrderApproved {
		return e.Resource.ID
	}
	return ""
}

// customID returns the membership id we stamped on the purchase unit
func (e *webhookEvent) customID() string {
	if e.Resource.CustomID != "" {
		return e.Resource.CustomID
	}
	if len(e.Resource.PurchaseUnits) > 0 {
		return e.Resource.PurchaseUnits[0].CustomID
	}
	return ""
}

// Process validates and applies one webhook delivery. Redeliveries are
// acknowledged as duplicates without repeating side effects; unresolvable
// deliveries return an error so the provider retries.
func (s *WebhookService) Process(ctx context.Context, headers WebhookSignatureHeaders, rawBody []byte) (*WebhookResult, error) {
	if len(rawBody) > maxWebhookBody {
		return nil, ErrPayloadTooLarge
	}

	valid, err := s.provider.VerifyWebhookSignature(ctx, headers, rawBody)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil || event.EventType == "" {
		return nil, ErrMalformedPayload
	}

	eventType := domain.WebhookEventType(event.EventType)
	if !domain.AllowedWebhookEvents[eventType] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, event.EventType)
	}

	membership, err := s.resolveMembership(ctx, &event)
	if err != nil {
		return nil, err
	}

	entry := &models.PaymentLog{
		MembershipID: membership.ID,
		EventType:    eventType,
		ProviderID:   event.ID,
		RawPayload:   string(rawBody),
	}

	duplicate := false
	if err := s.logRepo.Create(ctx, entry); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Redelivery. The mutation is still re-checked below so a retry
		// after a failed update converges.
		duplicate = true
	}

	if err := s.applyEvent(ctx, membership, eventType); err != nil {
		return nil, err
	}

	if duplicate {
		log.Printf("⚠️ Duplicate webhook %s for membership %d acknowledged", eventType, membership.ID)
	} else {
		log.Printf("✅ Webhook %s applied to membership %d", eventType, membership.ID)
	}

	return &WebhookResult{EventType: eventType, Duplicate: duplicate}, nil
}

// resolveMembership finds the membership targeted by the event, by provider
// order id first and by the stamped custom id as fallback.
func (s *WebhookService) resolveMembership(ctx context.Context, event *webhookEvent) (*models.Membership, error) {
	if orderID := event.orderID(); orderID != "" {
		membership, err := s.membershipRepo.GetByProviderOrderID(ctx, orderID)
		if err == nil {
			return membership, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if customID := event.customID(); customID != "" {
		id, err := strconv.ParseUint(customID, 10, 32)
		if err == nil {
			membership, err := s.membershipRepo.GetByID(ctx, uint(id))
			if err == nil {
				return membership, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}

	// Unmatched events make the provider retry; the order may still be
	// mid-creation on our side.
	return nil, fmt.Errorf("no membership matches webhook event %s", event.ID)
}

// applyEvent applies the state mutation for the event. Mutations are written
// only when the row is not already in the target state, so replays are safe.
func (s *WebhookService) applyEvent(ctx context.Context, membership *models.Membership, eventType domain.WebhookEventType) error {
	switch eventType {
	case domain.EventOrderApproved:
		// The buyer approved the order; trigger the capture. Captures are
		// idempotent on the provider side via the request id.
		if membership.PaymentStatus != domain.PaymentPending || membership.ProviderOrderID == nil {
			return nil
		}
		if err := s.provider.CaptureOrder(ctx, *membership.ProviderOrderID); err != nil {
			return fmt.Errorf("capture failed for order %s: %w", *membership.ProviderOrderID, err)
		}
		return nil

	case domain.EventPaymentCompleted:
		if membership.PaymentStatus == domain.PaymentSucceeded {
			return nil
		}
		membership.PaymentStatus = domain.PaymentSucceeded
		if err := s.membershipRepo.Update(ctx, membership); err != nil {
			return err
		}
		if err := s.mail.SendMembershipConfirmation(ctx, membership.User.Email, membership.Year.Name); err != nil {
			// mail failure must not fail the webhook: the payment state is
			// already persisted and the provider would redeliver forever
			log.Printf("❌ Confirmation email for membership %d failed: %v", membership.ID, err)
		}
		return nil

	case domain.EventPaymentDenied:
		if membership.PaymentStatus == domain.PaymentFailed {
			return nil
		}
		// A denial after a recorded success is suspicious; keep the success
		// and rely on the audit trail.
		if membership.PaymentStatus == domain.PaymentSucceeded {
			log.Printf("⚠️ Ignoring denial after success for membership %d", membership.ID)
			return nil
		}
		membership.PaymentStatus = domain.PaymentFailed
		return s.membershipRepo.Update(ctx, membership)

	case domain.EventPaymentRefunded:
		if membership.Status == domain.MembershipCanceled {
			return nil
		}
		membership.Status = domain.MembershipCanceled
		membership.PaymentStatus = domain.PaymentCanceled
		return s.membershipRepo.Update(ctx, membership)
	}

	return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
}
