package handlers

import (
	"errors"
	"log"

	"assotessera/internal/core/services"
	"assotessera/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler handles payment provider webhook deliveries
type WebhookHandler struct {
	webhookService *services.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// HandlePayPal processes one PayPal webhook delivery
// @Summary PayPal webhook
// @Description Verifies the transmission signature and applies the event; duplicate deliveries are acknowledged
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 413 {object} response.Response
// @Router /webhooks/paypal [post]
func (h *WebhookHandler) HandlePayPal(c *fiber.Ctx) error {
	headers := services.WebhookSignatureHeaders{
		TransmissionID:   c.Get("Paypal-Transmission-Id"),
		TransmissionTime: c.Get("Paypal-Transmission-Time"),
		TransmissionSig:  c.Get("Paypal-Transmission-Sig"),
		CertURL:          c.Get("Paypal-Cert-Url"),
		AuthAlgo:         c.Get("Paypal-Auth-Algo"),
	}

	// Body() is the raw bytes; signature verification needs them untouched
	result, err := h.webhookService.Process(c.Context(), headers, c.Body())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPayloadTooLarge):
			return response.PayloadTooLarge(c, "Webhook payload too large")
		case errors.Is(err, services.ErrInvalidSignature):
			return response.Unauthorized(c, "Invalid webhook signature")
		case errors.Is(err, services.ErrUnknownEventType):
			return response.BadRequest(c, "Event type not handled")
		case errors.Is(err, services.ErrMalformedPayload):
			return response.BadRequest(c, "Malformed webhook payload")
		default:
			// a 5xx makes the provider retry the delivery
			log.Printf("❌ Webhook processing failed: %v", err)
			return response.InternalServerError(c, "Webhook processing failed")
		}
	}

	return response.Success(c, "Webhook processed", result)
}
