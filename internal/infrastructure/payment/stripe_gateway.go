package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// StripeGateway implements sales.PaymentProvider with Stripe Checkout
type StripeGateway struct {
	config *StripeConfig
	api    *client.API
	logger *zap.Logger
	now    func() time.Time
}

// StripeOption customizes a StripeGateway
type StripeOption func(*StripeGateway)

// WithStripeBackend routes API calls through the given backend
func WithStripeBackend(backend stripe.Backend) StripeOption {
	return func(g *StripeGateway) {
		g.api.Init(g.config.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	}
}

// WithStripeClock overrides the clock used for session expiry
func WithStripeClock(now func() time.Time) StripeOption {
	return func(g *StripeGateway) {
		g.now = now
	}
}

// NewStripeGateway creates a new Stripe gateway. The API client is private to
// the gateway; the package-level stripe.Key is never touched.
func NewStripeGateway(config *StripeConfig, logger *zap.Logger, opts ...StripeOption) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &StripeGateway{
		config: config,
		api:    client.New(config.SecretKey, nil),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CreateSession opens a Checkout session in payment mode
func (g *StripeGateway) CreateSession(ctx context.Context, req sales.SessionRequest) (*sales.Session, error) {
	g.logger.Debug("Creating Stripe checkout session",
		zap.String("client_reference", req.ClientReference),
		zap.String("payment_method", string(req.PaymentMethod)),
		zap.Int("lines", len(req.Lines)))

	if len(req.Lines) == 0 {
		return nil, errors.New("stripe: a checkout session needs at least one line")
	}

	params, err := g.buildSessionParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("client_reference", req.ClientReference),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("session_id", sess.ID),
		zap.String("client_reference", req.ClientReference))

	return &sales.Session{
		ID:          sess.ID,
		RedirectURL: sess.URL,
		ExpiresAt:   time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// buildSessionParams maps a provider-neutral request to Checkout parameters
func (g *StripeGateway) buildSessionParams(req sales.SessionRequest) (*stripe.CheckoutSessionParams, error) {
	method, err := stripePaymentMethodType(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	currency := strings.ToLower(req.Currency)

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(g.config.SuccessURL),
		CancelURL:          stripe.String(g.config.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{method}),
		ExpiresAt:          stripe.Int64(g.now().Add(g.config.sessionTTL()).Unix()),
		Metadata:           map[string]string{},
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(line.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	if req.PaymentMethod == sales.PaymentMethodBoleto {
		params.PaymentMethodOptions = &stripe.CheckoutSessionPaymentMethodOptionsParams{
			Boleto: &stripe.CheckoutSessionPaymentMethodOptionsBoletoParams{
				ExpiresAfterDays: stripe.Int64(g.config.BoletoExpiresAfterDays),
			},
		}
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ClientReference != "" {
		params.ClientReferenceID = stripe.String(req.ClientReference)
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.TaxID != "" {
		params.Metadata["tax_id"] = req.TaxID
	}
	if req.CustomerName != "" {
		params.Metadata["customer_name"] = req.CustomerName
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	return params, nil
}

// ExpireSession closes an open session. A session that can no longer be
// expired is looked up to tell a paid session from one still awaiting a
// delayed payment or one already expired.
func (g *StripeGateway) ExpireSession(ctx context.Context, sessionID string) error {
	g.logger.Debug("Expiring Stripe checkout session", zap.String("session_id", sessionID))

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	_, expireErr := g.api.CheckoutSessions.Expire(sessionID, params)
	if expireErr == nil {
		g.logger.Info("Expired Stripe checkout session", zap.String("session_id", sessionID))
		return nil
	}

	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(sessionID, getParams)
	if err != nil {
		g.logger.Error("Failed to expire Stripe checkout session",
			zap.String("session_id", sessionID),
			zap.Error(expireErr))
		return fmt.Errorf("stripe: failed to expire checkout session: %w", expireErr)
	}

	switch sess.Status {
	case stripe.CheckoutSessionStatusComplete:
		switch sess.PaymentStatus {
		case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
			return sales.ErrSessionCompleted
		}
		g.logger.Info("Stripe checkout session awaits delayed payment",
			zap.String("session_id", sessionID),
			zap.String("payment_status", string(sess.PaymentStatus)))
		return sales.ErrSessionAwaitingPayment
	case stripe.CheckoutSessionStatusExpired:
		return nil
	}
	return fmt.Errorf("stripe: failed to expire checkout session: %w", expireErr)
}

// VerifyWebhook checks the Stripe-Signature header and decodes the event
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*sales.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			g.logger.Warn("Rejected Stripe webhook with bad signature", zap.Error(err))
			return nil, sales.ErrInvalidSignature
		}
		return nil, fmt.Errorf("stripe: invalid webhook payload: %w", err)
	}

	result := &sales.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: mapStripeEventType(event.Type),
	}
	if result.Kind == sales.WebhookIgnored {
		return result, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("stripe: failed to decode checkout session from event %s: %w", event.ID, err)
	}
	result.SessionID = sess.ID
	result.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	return result, nil
}

// isSignatureError reports whether a webhook error is an authentication failure
func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

// mapStripeEventType maps Stripe event types to provider-neutral kinds
func mapStripeEventType(t stripe.EventType) sales.WebhookEventKind {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted:
		return sales.WebhookSessionCompleted
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return sales.WebhookAsyncPaymentSucceeded
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		return sales.WebhookAsyncPaymentFailed
	case stripe.EventTypeCheckoutSessionExpired:
		return sales.WebhookSessionExpired
	default:
		return sales.WebhookIgnored
	}
}

// stripePaymentMethodType maps a sale payment method to a Checkout payment method type
func stripePaymentMethodType(m sales.PaymentMethod) (string, error) {
	switch m {
	case sales.PaymentMethodCard:
		return string(stripe.PaymentMethodTypeCard), nil
	case sales.PaymentMethodBoleto:
		return string(stripe.PaymentMethodTypeBoleto), nil
	default:
		return "", fmt.Errorf("stripe: unsupported payment method %q", m)
	}
}

// Ensure StripeGateway implements PaymentProvider
var _ sales.PaymentProvider = (*StripeGateway)(nil)
