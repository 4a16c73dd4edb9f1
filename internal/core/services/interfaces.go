package services

import "context"

// PaymentProvider abstracts the PayPal client for services and tests
type PaymentProvider interface {
	CreateOrder(ctx context.Context, amountCents int, description, customID, returnURL, cancelURL string) (*PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) error
	VerifyWebhookSignature(ctx context.Context, headers WebhookSignatureHeaders, rawBody []byte) (bool, error)
}

// MailSender abstracts the transactional email client
type MailSender interface {
	SendMagicLink(ctx context.Context, to, link string) error
	SendMembershipConfirmation(ctx context.Context, to, yearName string) error
	SendCardAssigned(ctx context.Context, to, number string) error
}

// NewsletterSyncer abstracts the audience sync client
type NewsletterSyncer interface {
	SyncMember(ctx context.Context, email, firstName, lastName string, subscribed bool) error
}
