package sales

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails signature verification
	ErrInvalidSignature = errors.New("payment provider: invalid webhook signature")
	// ErrSessionCompleted is returned when expiring a session the customer already paid for
	ErrSessionCompleted = errors.New("payment provider: session already completed")
	// ErrSessionAwaitingPayment is returned when expiring a session the customer
	// completed with a delayed method (boleto) whose funds have not cleared yet
	ErrSessionAwaitingPayment = errors.New("payment provider: session completed but awaiting payment")
)

// ProviderLineItem is one line on the provider's payment page
type ProviderLineItem struct {
	Name        string
	AmountMinor int64
	Quantity    int64
}

// SessionRequest is everything the provider needs to open a payment session
type SessionRequest struct {
	Lines         []ProviderLineItem
	Currency      string
	PaymentMethod PaymentMethod
	CustomerEmail string
	CustomerName  string
	TaxID         string
	// ClientReference is echoed back by the provider and lets support staff
	// match a session to a customer
	ClientReference string
	// IdempotencyKey makes a retried create return the same session
	IdempotencyKey string
	Metadata       map[string]string
}

// Session is a created payment session
type Session struct {
	ID          string
	RedirectURL string
	ExpiresAt   time.Time
}

// WebhookEventKind is the provider-neutral meaning of a webhook event
type WebhookEventKind string

const (
	WebhookSessionCompleted      WebhookEventKind = "SESSION_COMPLETED"
	WebhookAsyncPaymentSucceeded WebhookEventKind = "ASYNC_PAYMENT_SUCCEEDED"
	WebhookAsyncPaymentFailed    WebhookEventKind = "ASYNC_PAYMENT_FAILED"
	WebhookSessionExpired        WebhookEventKind = "SESSION_EXPIRED"
	WebhookIgnored               WebhookEventKind = "IGNORED"
)

// WebhookEvent is a verified notification from the provider
type WebhookEvent struct {
	ID        string
	Type      string
	Kind      WebhookEventKind
	SessionID string
	// Paid is false for completed sessions whose payment is still settling
	// (boleto); those are confirmed later by an async success event.
	Paid bool
}

// PaymentProvider is the external payment-session capability
type PaymentProvider interface {
	// CreateSession opens a hosted payment session
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ExpireSession closes an open session. It returns ErrSessionCompleted
	// when the customer already paid and ErrSessionAwaitingPayment when the
	// session is complete but its payment is still pending.
	ExpireSession(ctx context.Context, sessionID string) error
	// VerifyWebhook authenticates a raw payload against its signature header
	// and decodes it. It returns ErrInvalidSignature on mismatch.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
