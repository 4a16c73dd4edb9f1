package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"assotessera/internal/config"

	"github.com/google/uuid"
)

// PayPalOrder represents the created order returned to the checkout flow
type PayPalOrder struct {
	ID          string
	ApprovalURL string
}

// WebhookSignatureHeaders carries the PayPal transmission headers needed for
// signature verification.
type WebhookSignatureHeaders struct {
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
	CertURL          string
	AuthAlgo         string
}

// PayPalService talks to the PayPal REST API
type PayPalService struct {
	cfg        config.PayPalConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalService creates a new PayPal service
func NewPayPalService(cfg config.PayPalConfig) *PayPalService {
	return &PayPalService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// paypalTokenResponse represents the OAuth token response
type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken returns a cached client-credentials token, refreshing it
// one minute before expiry.
func (s *PayPalService) getAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry.Add(-time.Minute)) {
		return s.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.cfg.ClientID, s.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token error: %s", string(body))
	}

	var tokenResp paypalTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", err
	}

	s.accessToken = tokenResp.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return s.accessToken, nil
}

// createOrderRequest represents the Orders v2 create payload
type createOrderRequest struct {
	Intent             string         `json:"intent"`
	PurchaseUnits      []purchaseUnit `json:"purchase_units"`
	ApplicationContext *appContext    `json:"application_context,omitempty"`
}

type purchaseUnit struct {
	Amount      orderAmount `json:"amount"`
	CustomID    string      `json:"custom_id,omitempty"`
	Description string      `json:"description,omitempty"`
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type appContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
	BrandName string `json:"brand_name,omitempty"`
}

type orderResponse struct {
	ID    string `json:"id"`
	Links []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// FormatAmount renders integer cents as the decimal string PayPal expects
func FormatAmount(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// CreateOrder creates a CAPTURE-intent order and returns its id and
// approval link.
func (s *PayPalService) CreateOrder(ctx context.Context, amountCents int, description, customID, returnURL, cancelURL string) (*PayPalOrder, error) {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount:      orderAmount{CurrencyCode: "EUR", Value: FormatAmount(amountCents)},
			CustomID:    customID,
			Description: description,
		}},
		ApplicationContext: &appContext{
			ReturnURL: returnURL,
			CancelURL: cancelURL,
			BrandName: "Tesseramento",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	// Idempotency key: retried creates return the original order
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("paypal create order error: %s", string(respBody))
	}

	var order orderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, err
	}

	result := &PayPalOrder{ID: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			result.ApprovalURL = link.Href
		}
	}
	if result.ApprovalURL == "" {
		return nil, fmt.Errorf("paypal create order: missing approval link for order %s", order.ID)
	}

	return result, nil
}

// CaptureOrder captures an approved order
func (s *PayPalService) CaptureOrder(ctx context.Context, orderID string) error {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/v2/checkout/orders/"+orderID+"/capture", strings.NewReader("{}"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("paypal capture error: %s", string(respBody))
	}

	return nil
}

// verifySignatureRequest represents the verify-webhook-signature payload
type verifySignatureRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifySignatureResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhookSignature asks PayPal to verify the transmission signature of
// a webhook delivery against the raw body.
func (s *PayPalService) VerifyWebhookSignature(ctx context.Context, headers WebhookSignatureHeaders, rawBody []byte) (bool, error) {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return false, err
	}

	payload := verifySignatureRequest{
		AuthAlgo:         headers.AuthAlgo,
		CertURL:          headers.CertURL,
		TransmissionID:   headers.TransmissionID,
		TransmissionSig:  headers.TransmissionSig,
		TransmissionTime: headers.TransmissionTime,
		WebhookID:        s.cfg.WebhookID,
		WebhookEvent:     json.RawMessage(rawBody),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("paypal verify signature error: %s", string(respBody))
	}

	var verifyResp verifySignatureResponse
	if err := json.Unmarshal(respBody, &verifyResp); err != nil {
		return false, err
	}

	return verifyResp.VerificationStatus == "SUCCESS", nil
}
