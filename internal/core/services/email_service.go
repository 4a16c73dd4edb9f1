package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"assotessera/internal/config"
)

const resendBaseURL = "https://api.resend.com"

// EmailService sends transactional mail through the Resend API
type EmailService struct {
	cfg        config.ResendConfig
	httpClient *http.Client
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.ResendConfig) *EmailService {
	return &EmailService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// resendRequest represents the send payload
type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendMagicLink sends the passwordless login link
func (s *EmailService) SendMagicLink(ctx context.Context, to, link string) error {
	html := fmt.Sprintf(`<p>Ciao,</p>
<p>per accedere al tesseramento clicca sul link qui sotto:</p>
<p><a href="%s">Accedi</a></p>
<p>Il link è valido per 15 minuti e può essere usato una sola volta.</p>
<p>Se non hai richiesto questo accesso puoi ignorare questa email.</p>`, link)

	return s.send(ctx, to, "Il tuo link di accesso", html)
}

// SendMembershipConfirmation sends the paid-membership confirmation
func (s *EmailService) SendMembershipConfirmation(ctx context.Context, to, yearName string) error {
	html := fmt.Sprintf(`<p>Ciao,</p>
<p>abbiamo ricevuto il tuo pagamento per il tesseramento %s.</p>
<p>Riceverai il numero di tessera non appena verrà assegnato.</p>
<p>Grazie!</p>`, yearName)

	return s.send(ctx, to, "Pagamento ricevuto", html)
}

// SendCardAssigned notifies a member of the assigned card number
func (s *EmailService) SendCardAssigned(ctx context.Context, to, number string) error {
	html := fmt.Sprintf(`<p>Ciao,</p>
<p>la tua tessera è attiva. Il tuo numero di tessera è <strong>%s</strong>.</p>
<p>Grazie!</p>`, number)

	return s.send(ctx, to, "La tua tessera è attiva", html)
}

func (s *EmailService) send(ctx context.Context, to, subject, html string) error {
	payload := resendRequest{
		From:    s.cfg.From,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		resendBaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logSendFailure(to, subject, 0, err.Error())
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		logSendFailure(to, subject, resp.StatusCode, string(respBody))
		return fmt.Errorf("resend error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// logSendFailure classifies the failure as transient or permanent to pick a
// log severity. Classification drives logging only; there is no automatic
// retry anywhere in the application layer.
func logSendFailure(to, subject string, status int, detail string) {
	if isTransientEmailFailure(status) {
		log.Printf("⚠️ Transient email failure to %s (%s): %s", to, subject, detail)
		return
	}
	log.Printf("❌ Permanent email failure to %s (%s): %s", to, subject, detail)
}

// isTransientEmailFailure treats network errors, rate limits and provider
// 5xx as retry-worthy by the operator.
func isTransientEmailFailure(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}
