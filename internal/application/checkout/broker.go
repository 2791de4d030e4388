package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biblioteca/backend/internal/domain/cart"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Checkout errors
var (
	ErrInvalidTaxID         = shared.NewDomainError("INVALID_TAX_ID", "Tax id is not a valid CPF")
	ErrPaymentProvider      = shared.NewDomainError("PAYMENT_PROVIDER_ERROR", "Payment provider could not create a session")
	ErrCheckoutNotPersisted = shared.NewDomainError("CHECKOUT_NOT_PERSISTED", "Checkout could not be recorded, please try again")
)

// BrokerConfig tunes the broker
type BrokerConfig struct {
	Currency valueobject.Currency
	// PersistAttempts bounds how often a failed sale insert is retried
	// before the payment session is expired
	PersistAttempts int
	PersistBackoff  time.Duration
}

// DefaultBrokerConfig returns the default broker settings
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		Currency:        valueobject.DefaultCurrency,
		PersistAttempts: 3,
		PersistBackoff:  100 * time.Millisecond,
	}
}

// Broker turns a cart into a payment session and a PENDING sale
type Broker struct {
	carts     cart.CartRepository
	sales     sales.SaleRepository
	provider  sales.PaymentProvider
	publisher shared.EventPublisher
	auditor   shared.AuditRecorder
	config    BrokerConfig
	logger    *zap.Logger
}

// BrokerDeps holds the dependencies of Broker
type BrokerDeps struct {
	CartRepo  cart.CartRepository
	SaleRepo  sales.SaleRepository
	Provider  sales.PaymentProvider
	Publisher shared.EventPublisher
	Auditor   shared.AuditRecorder
	Logger    *zap.Logger
}

// NewBroker creates a new Broker
func NewBroker(deps BrokerDeps, config BrokerConfig) *Broker {
	if config.PersistAttempts < 1 {
		config.PersistAttempts = 1
	}
	if config.Currency == "" {
		config.Currency = valueobject.DefaultCurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auditor := deps.Auditor
	if auditor == nil {
		auditor = shared.NoopAuditRecorder{}
	}
	return &Broker{
		carts:     deps.CartRepo,
		sales:     deps.SaleRepo,
		provider:  deps.Provider,
		publisher: deps.Publisher,
		auditor:   auditor,
		config:    config,
		logger:    logger,
	}
}

// Checkout validates and snapshots the selected cart lines, opens a payment
// session and records a PENDING sale keyed by the session id. Nothing is
// persisted when the provider call fails. Inventory is not touched here.
func (b *Broker) Checkout(ctx context.Context, customerID uuid.UUID, req CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "create",
		telemetry.AttrCustomerID.String(customerID.String()),
		telemetry.AttrPaymentMethod.String(string(req.PaymentMethod)),
	)
	defer span.End()

	resp, err := b.checkout(ctx, customerID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(telemetry.AttrSaleID.String(resp.SessionID))
	return resp, nil
}

func (b *Broker) checkout(ctx context.Context, customerID uuid.UUID, req CheckoutRequest) (*CheckoutResponse, error) {
	taxID, err := valueobject.ParseTaxID(req.TaxID)
	if err != nil {
		return nil, shared.WrapDomainError(ErrInvalidTaxID.Code, ErrInvalidTaxID.Message, err)
	}
	if !req.PaymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method must be CARD or BOLETO")
	}

	c, err := b.carts.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, cart.ErrEmptyCart
		}
		return nil, err
	}
	selected, err := c.Select(req.BookIDs)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, cart.ErrEmptyCart
	}

	kind := sales.KindPurchase
	if req.Rental {
		kind = sales.KindRental
	}

	lines, items, err := b.buildLines(selected, req.Rental)
	if err != nil {
		return nil, err
	}

	customer := sales.Customer{
		ID:      customerID,
		Name:    req.CustomerName,
		TaxID:   taxID,
		Email:   req.Email,
		Address: req.Address,
	}
	// Validate the sale before calling out so a bad total never reaches the provider
	if _, err := sales.NewPendingSale("validation", customer, lines, req.PaymentMethod, kind); err != nil {
		return nil, err
	}

	b.logger.Debug("Creating payment session",
		zap.String("customer_id", customerID.String()),
		zap.Int("lines", len(lines)),
		zap.String("kind", string(kind)),
		zap.String("payment_method", string(req.PaymentMethod)))

	session, err := b.provider.CreateSession(ctx, sales.SessionRequest{
		Lines:           items,
		Currency:        string(b.config.Currency),
		PaymentMethod:   req.PaymentMethod,
		CustomerEmail:   req.Email,
		CustomerName:    req.CustomerName,
		TaxID:           taxID.Digits(),
		ClientReference: customerID.String(),
		IdempotencyKey:  uuid.NewString(),
		Metadata: map[string]string{
			"customer_id": customerID.String(),
			"kind":        string(kind),
		},
	})
	if err != nil {
		b.logger.Error("Payment session creation failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
		return nil, shared.WrapDomainError(ErrPaymentProvider.Code, ErrPaymentProvider.Message, err)
	}

	sale, err := sales.NewPendingSale(session.ID, customer, lines, req.PaymentMethod, kind)
	if err != nil {
		b.compensate(ctx, session.ID, err)
		return nil, err
	}

	if err := b.persist(ctx, sale); err != nil {
		b.compensate(ctx, session.ID, err)
		return nil, shared.WrapDomainError(ErrCheckoutNotPersisted.Code, ErrCheckoutNotPersisted.Message, err)
	}

	b.publish(ctx, sale)
	b.auditor.Record(ctx, shared.AuditEntry{
		Actor:   customerID.String(),
		Action:  shared.AuditSaleCreated,
		Subject: sale,
		Detail:  fmt.Sprintf("total=%s kind=%s", sale.Total, sale.Kind),
	})
	b.logger.Info("Checkout session created",
		zap.String("sale_id", sale.ID),
		zap.String("customer_id", customerID.String()),
		zap.String("total", sale.Total.String()))

	resp := &CheckoutResponse{
		SessionID:     session.ID,
		RedirectURL:   session.RedirectURL,
		Total:         sale.Total,
		Kind:          sale.Kind,
		PaymentMethod: sale.PaymentMethod,
	}
	if !session.ExpiresAt.IsZero() {
		expiresAt := session.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// buildLines prices each cart line (at the rental fraction in rental mode)
// and builds the matching provider line items in minor units
func (b *Broker) buildLines(selected []cart.CartLine, rental bool) ([]sales.SaleLine, []sales.ProviderLineItem, error) {
	lines := make([]sales.SaleLine, 0, len(selected))
	items := make([]sales.ProviderLineItem, 0, len(selected))
	for _, cl := range selected {
		if !cl.UnitPrice.IsPositive() {
			return nil, nil, shared.NewDomainError("INVALID_PRICE",
				fmt.Sprintf("Unit price of '%s' must be greater than zero", cl.Title))
		}
		price := cl.UnitPrice
		if rental {
			price = price.ApplyRental()
		}

		line, err := sales.NewSaleLine(cl.BookID, cl.Title, cl.Quantity, price)
		if err != nil {
			return nil, nil, err
		}
		minor, err := price.ToMinorUnits()
		if err != nil {
			return nil, nil, shared.WrapDomainError("INVALID_PRICE",
				fmt.Sprintf("Unit price of '%s' must be greater than zero", cl.Title), err)
		}

		lines = append(lines, line)
		items = append(items, sales.ProviderLineItem{
			Name:        cl.Title,
			AmountMinor: minor,
			Quantity:    int64(cl.Quantity),
		})
	}
	return lines, items, nil
}

// persist inserts the sale, retrying with exponential backoff
func (b *Broker) persist(ctx context.Context, sale *sales.Sale) error {
	backoff := b.config.PersistBackoff
	var err error
	for attempt := 1; attempt <= b.config.PersistAttempts; attempt++ {
		if err = b.sales.Create(ctx, sale); err == nil {
			return nil
		}
		b.logger.Warn("Failed to persist pending sale",
			zap.String("sale_id", sale.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == b.config.PersistAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// compensate expires a session that has no local sale so the customer
// cannot pay for an order nobody will fulfil
func (b *Broker) compensate(ctx context.Context, sessionID string, cause error) {
	expireCtx := context.WithoutCancel(ctx)
	if err := b.provider.ExpireSession(expireCtx, sessionID); err != nil {
		b.logger.Error("Failed to expire orphaned payment session",
			zap.String("session_id", sessionID),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	b.logger.Warn("Expired orphaned payment session",
		zap.String("session_id", sessionID),
		zap.NamedError("cause", cause))
}

func (b *Broker) publish(ctx context.Context, sale *sales.Sale) {
	events := sale.GetDomainEvents()
	sale.ClearDomainEvents()
	if b.publisher == nil || len(events) == 0 {
		return
	}
	if err := b.publisher.Publish(ctx, events...); err != nil {
		b.logger.Warn("Failed to publish sale events",
			zap.String("sale_id", sale.ID),
			zap.Error(err))
	}
}
