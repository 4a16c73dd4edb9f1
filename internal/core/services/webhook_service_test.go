package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookFixture() (*fakeMembershipRepo, *models.Membership) {
	orderID := "ORD-123"
	membership := &models.Membership{
		ID:              7,
		UserID:          3,
		YearID:          1,
		PaymentStatus:   domain.PaymentPending,
		Status:          domain.MembershipPending,
		ProviderOrderID: &orderID,
		AmountCents:     2500,
		User:            models.User{ID: 3, Email: "socio@example.org"},
		Year:            models.AssociationYear{ID: 1, Name: "2025/2026"},
	}
	return newFakeMembershipRepo(membership), membership
}

func captureCompletedBody(orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "WH-1",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "CAP-1",
			"custom_id": "7",
			"supplementary_data": {"related_ids": {"order_id": "%s"}}
		}
	}`, orderID))
}

func TestWebhookService_Process(t *testing.T) {
	headers := WebhookSignatureHeaders{TransmissionID: "t1"}

	t.Run("rejects oversized payloads", func(t *testing.T) {
		repo, _ := webhookFixture()
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: true}, &fakeMail{})

		_, err := svc.Process(context.Background(), headers, bytes.Repeat([]byte("a"), maxWebhookBody+1))
		require.ErrorIs(t, err, ErrPayloadTooLarge)
	})

	t.Run("rejects invalid signatures", func(t *testing.T) {
		repo, _ := webhookFixture()
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: false}, &fakeMail{})

		_, err := svc.Process(context.Background(), headers, captureCompletedBody("ORD-123"))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("signature verification failure is not a rejection", func(t *testing.T) {
		repo, _ := webhookFixture()
		provider := &fakeProvider{signatureErr: errors.New("paypal down")}
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), provider, &fakeMail{})

		_, err := svc.Process(context.Background(), headers, captureCompletedBody("ORD-123"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		repo, _ := webhookFixture()
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: true}, &fakeMail{})

		_, err := svc.Process(context.Background(), headers, []byte("not json"))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("rejects event types outside the allow list", func(t *testing.T) {
		repo, _ := webhookFixture()
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: true}, &fakeMail{})

		body := []byte(`{"id":"WH-2","event_type":"BILLING.SUBSCRIPTION.CREATED","resource":{}}`)
		_, err := svc.Process(context.Background(), headers, body)
		require.ErrorIs(t, err, ErrUnknownEventType)
	})

	t.Run("capture completed marks the payment succeeded and mails once", func(t *testing.T) {
		repo, membership := webhookFixture()
		mail := &fakeMail{}
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: true}, mail)

		result, err := svc.Process(context.Background(), headers, captureCompletedBody("ORD-123"))
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, domain.EventPaymentCompleted, result.EventType)
		assert.Equal(t, domain.PaymentSucceeded, membership.PaymentStatus)
		assert.Equal(t, []string{"socio@example.org"}, mail.confirmations)
	})

	t.Run("duplicate delivery is acknowledged without side effects", func(t *testing.T) {
		repo, membership := webhookFixture()
		mail := &fakeMail{}
		logs := newFakePaymentLogRepo()
		svc := NewWebhookService(repo, logs, &fakeProvider{signatureValid: true}, mail)

		first, err := svc.Process(context.Background(), headers, captureCompletedBody("ORD-123"))
		require.NoError(t, err)
		require.False(t, first.Duplicate)

		second, err := svc.Process(context.Background(), headers, captureCompletedBody("ORD-123"))
		require.NoError(t, err)
		assert.True(t, second.Duplicate)

		assert.Equal(t, 1, logs.created)
		assert.Equal(t, 1, repo.updates)
		assert.Len(t, mail.confirmations, 1)
		assert.Equal(t, domain.PaymentSucceeded, membership.PaymentStatus)
	})

	t.Run("order approved triggers the capture", func(t *testing.T) {
		repo, _ := webhookFixture()
		provider := &fakeProvider{signatureValid: true}
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), provider, &fakeMail{})

		body := []byte(`{
			"id": "WH-3",
			"event_type": "CHECKOUT.ORDER.APPROVED",
			"resource": {"id": "ORD-123", "purchase_units": [{"custom_id": "7"}]}
		}`)
		result, err := svc.Process(context.Background(), headers, body)
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, []string{"ORD-123"}, provider.captured)
	})

	t.Run("capture denied marks the payment failed", func(t *testing.T) {
		repo, membership := webhookFixture()
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: true}, &fakeMail{})

		body := []byte(`{
			"id": "WH-4",
			"event_type": "PAYMENT.CAPTURE.DENIED",
			"resource": {"custom_id": "7", "supplementary_data": {"related_ids": {"order_id": "ORD-123"}}}
		}`)
		_, err := svc.Process(context.Background(), headers, body)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, membership.PaymentStatus)
	})

	t.Run("refund cancels the membership", func(t *testing.T) {
		repo, membership := webhookFixture()
		membership.PaymentStatus = domain.PaymentSucceeded
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: true}, &fakeMail{})

		body := []byte(`{
			"id": "WH-5",
			"event_type": "PAYMENT.CAPTURE.REFUNDED",
			"resource": {"custom_id": "7", "supplementary_data": {"related_ids": {"order_id": "ORD-123"}}}
		}`)
		_, err := svc.Process(context.Background(), headers, body)
		require.NoError(t, err)
		assert.Equal(t, domain.MembershipCanceled, membership.Status)
		assert.Equal(t, domain.PaymentCanceled, membership.PaymentStatus)
	})

	t.Run("unmatched events error so the provider retries", func(t *testing.T) {
		repo, _ := webhookFixture()
		svc := NewWebhookService(repo, newFakePaymentLogRepo(), &fakeProvider{signatureValid: true}, &fakeMail{})

		body := []byte(`{
			"id": "WH-6",
			"event_type": "PAYMENT.CAPTURE.COMPLETED",
			"resource": {"custom_id": "999", "supplementary_data": {"related_ids": {"order_id": "ORD-UNKNOWN"}}}
		}`)
		_, err := svc.Process(context.Background(), headers, body)
		require.Error(t, err)
	})
}
