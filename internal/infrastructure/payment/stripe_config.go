package payment

import (
	"errors"
	"strings"
	"time"
)

// Errors for configuration validation
var (
	ErrStripeMissingSecretKey     = errors.New("stripe: missing secret key")
	ErrStripeMissingWebhookSecret = errors.New("stripe: missing webhook secret")
	ErrStripeMissingSuccessURL    = errors.New("stripe: missing success URL")
	ErrStripeMissingCancelURL     = errors.New("stripe: missing cancel URL")
	ErrStripeKeyModeMismatch      = errors.New("stripe: secret key does not match the configured mode")
)

// StripeConfig holds configuration for the Stripe Checkout integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// IsTestMode indicates if using Stripe test mode
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// SuccessURL receives the customer after payment. The literal
	// {CHECKOUT_SESSION_ID} is replaced by Stripe with the session id.
	SuccessURL string `json:"success_url" mapstructure:"success_url"`

	// CancelURL receives the customer when they abandon the payment page
	CancelURL string `json:"cancel_url" mapstructure:"cancel_url"`

	// SessionTTL is how long a hosted payment page stays open.
	// Stripe accepts between 30 minutes and 24 hours.
	SessionTTL time.Duration `json:"session_ttl" mapstructure:"session_ttl"`

	// BoletoExpiresAfterDays is how many days a boleto voucher can be paid
	BoletoExpiresAfterDays int64 `json:"boleto_expires_after_days" mapstructure:"boleto_expires_after_days"`
}

// DefaultStripeConfig returns a default configuration for development/testing
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		IsTestMode:             true,
		SuccessURL:             "http://localhost:8080/api/v1/payments/stripe/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:              "http://localhost:3000/cart",
		SessionTTL:             24 * time.Hour,
		BoletoExpiresAfterDays: 3,
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return ErrStripeMissingSecretKey
	}
	if c.WebhookSecret == "" {
		return ErrStripeMissingWebhookSecret
	}
	if c.SuccessURL == "" {
		return ErrStripeMissingSuccessURL
	}
	if c.CancelURL == "" {
		return ErrStripeMissingCancelURL
	}

	// Restricted keys (rk_) are accepted as long as the mode matches
	mode := "_live_"
	if c.IsTestMode {
		mode = "_test_"
	}
	if !strings.Contains(c.SecretKey, mode) {
		return ErrStripeKeyModeMismatch
	}
	return nil
}

// maxSessionTTL stays just under Stripe's 24 hour ceiling, which is
// measured from when Stripe receives the request
const maxSessionTTL = 24*time.Hour - time.Minute

// sessionTTL clamps the configured TTL into the range Stripe accepts
func (c *StripeConfig) sessionTTL() time.Duration {
	switch {
	case c.SessionTTL <= 0, c.SessionTTL > maxSessionTTL:
		return maxSessionTTL
	case c.SessionTTL < 30*time.Minute:
		return 30 * time.Minute
	}
	return c.SessionTTL
}
