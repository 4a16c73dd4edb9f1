package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"assotessera/internal/config"
)

// MailchimpService syncs members to the newsletter audience
type MailchimpService struct {
	cfg        config.MailchimpConfig
	httpClient *http.Client
}

// NewMailchimpService creates a new Mailchimp service
func NewMailchimpService(cfg config.MailchimpConfig) *MailchimpService {
	return &MailchimpService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether the integration is configured; sync is skipped
// silently when it is not.
func (s *MailchimpService) Enabled() bool {
	return s.cfg.APIKey != "" && s.cfg.ServerPrefix != "" && s.cfg.ListID != ""
}

func (s *MailchimpService) baseURL() string {
	return fmt.Sprintf("https://%s.api.mailchimp.com/3.0", s.cfg.ServerPrefix)
}

// subscriberHash is the audience member key (md5 of the lowercased email)
func subscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// SyncMember upserts the audience member and its membership tag. The two
// provider calls are independent and issued concurrently.
func (s *MailchimpService) SyncMember(ctx context.Context, email, firstName, lastName string, subscribed bool) error {
	if !s.Enabled() {
		return nil
	}

	mergeErrCh := make(chan error, 1)
	tagErrCh := make(chan error, 1)

	go func() {
		mergeErrCh <- s.upsertMember(ctx, email, firstName, lastName, subscribed)
	}()
	go func() {
		tagErrCh <- s.updateTag(ctx, email, subscribed)
	}()

	mergeErr := <-mergeErrCh
	tagErr := <-tagErrCh

	if mergeErr != nil {
		return mergeErr
	}
	return tagErr
}

func (s *MailchimpService) upsertMember(ctx context.Context, email, firstName, lastName string, subscribed bool) error {
	status := "subscribed"
	if !subscribed {
		status = "unsubscribed"
	}

	payload := map[string]interface{}{
		"email_address": strings.ToLower(strings.TrimSpace(email)),
		"status_if_new": status,
		"status":        status,
		"merge_fields": map[string]string{
			"FNAME": firstName,
			"LNAME": lastName,
		},
	}

	url := fmt.Sprintf("%s/lists/%s/members/%s", s.baseURL(), s.cfg.ListID, subscriberHash(email))
	return s.do(ctx, http.MethodPut, url, payload)
}

func (s *MailchimpService) updateTag(ctx context.Context, email string, subscribed bool) error {
	status := "active"
	if !subscribed {
		status = "inactive"
	}

	payload := map[string]interface{}{
		"tags": []map[string]string{
			{"name": "socio", "status": status},
		},
	}

	url := fmt.Sprintf("%s/lists/%s/members/%s/tags", s.baseURL(), s.cfg.ListID, subscriberHash(email))
	return s.do(ctx, http.MethodPost, url, payload)
}

func (s *MailchimpService) do(ctx context.Context, method, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth("anystring", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailchimp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("⚠️ Mailchimp error (status %d): %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("mailchimp error (status %d)", resp.StatusCode)
	}

	return nil
}
