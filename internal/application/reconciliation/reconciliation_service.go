package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biblioteca/backend/internal/application/transaction"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Trigger names what asked for a reconciliation
type Trigger string

const (
	TriggerRedirect Trigger = "REDIRECT"
	TriggerWebhook  Trigger = "WEBHOOK"
	TriggerSweep    Trigger = "SWEEP"
)

// Reconciliation errors
var (
	ErrSaleNotFound     = shared.NewDomainError("SALE_NOT_FOUND", "No sale exists for this payment session")
	ErrInvalidSignature = shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")
)

// Result describes the outcome of a reconciliation
type Result struct {
	SaleID       string       `json:"sale_id"`
	CustomerID   string       `json:"customer_id"`
	Status       sales.Status `json:"status"`
	Transitioned bool         `json:"transitioned"`
	AlreadyPaid  bool         `json:"already_paid"`
	// Deferred is set when a redirect arrives for a sale whose payment
	// settles later; the sale stays PENDING until the webhook confirms it
	Deferred bool `json:"deferred"`
}

// Service performs the single guarded PENDING -> PAID transition shared by
// the redirect and webhook paths
type Service struct {
	scope       transaction.Scope
	provider    sales.PaymentProvider
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	auditor     shared.AuditRecorder
	config      shared.IdempotencyConfig
	logger      *zap.Logger
	now         func() time.Time
}

// ServiceDeps holds the dependencies of Service
type ServiceDeps struct {
	Scope       transaction.Scope
	Provider    sales.PaymentProvider
	Idempotency shared.IdempotencyStore
	Publisher   shared.EventPublisher
	Auditor     shared.AuditRecorder
	Config      shared.IdempotencyConfig
	Logger      *zap.Logger
}

// NewService creates a new reconciliation Service
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auditor := deps.Auditor
	if auditor == nil {
		auditor = shared.NoopAuditRecorder{}
	}
	config := deps.Config
	if config.TTL <= 0 {
		config = shared.DefaultIdempotencyConfig()
	}
	return &Service{
		scope:       deps.Scope,
		provider:    deps.Provider,
		idempotency: deps.Idempotency,
		publisher:   deps.Publisher,
		auditor:     auditor,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// Reconcile marks the sale PAID if it is still PENDING. Only the caller that
// wins the status compare-and-set reserves inventory and trims the cart, all
// in one transaction. A sale that is already PAID is reported, not failed.
// A redirect for a boleto sale is deferred: the customer finishing the
// payment page only means the voucher was issued.
func (s *Service) Reconcile(ctx context.Context, sessionID string, trigger Trigger) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile",
		telemetry.AttrSaleID.String(sessionID),
		attribute.String("trigger", string(trigger)),
	)
	defer span.End()

	result, err := s.reconcile(ctx, sessionID, trigger)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("transitioned", result.Transitioned))
	return result, nil
}

func (s *Service) reconcile(ctx context.Context, sessionID string, trigger Trigger) (*Result, error) {
	log := s.logger.With(zap.String("sale_id", sessionID), zap.String("trigger", string(trigger)))
	log.Debug("Reconciling sale")

	var paid *sales.Sale
	result := &Result{SaleID: sessionID}

	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		sale, err := repos.Sales().FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrSaleNotFound
			}
			return err
		}
		result.CustomerID = sale.Customer.ID.String()
		result.Status = sale.Status

		switch sale.Status {
		case sales.StatusPaid:
			result.AlreadyPaid = true
			return nil
		case sales.StatusExpired:
			return sales.ErrSaleExpired
		}

		if trigger == TriggerRedirect && sale.PaymentMethod.SettlesAsync() {
			result.Deferred = true
			return nil
		}

		paidAt := s.now()
		won, err := repos.Sales().TransitionStatus(ctx, sessionID, sales.StatusPending, sales.StatusPaid, paidAt)
		if err != nil {
			return fmt.Errorf("transition sale to paid: %w", err)
		}
		if !won {
			current, err := repos.Sales().FindByID(ctx, sessionID)
			if err != nil {
				return err
			}
			result.Status = current.Status
			if current.Status == sales.StatusPaid {
				result.AlreadyPaid = true
				return nil
			}
			return sales.ErrSaleExpired
		}

		for _, line := range sale.Lines {
			if err := repos.Inventory().Reserve(ctx, line.BookID, line.Quantity); err != nil {
				return err
			}
		}

		if err := s.trimCart(ctx, repos, sale, log); err != nil {
			return err
		}

		if err := sale.MarkPaid(paidAt); err != nil {
			return err
		}
		paid = sale
		result.Status = sales.StatusPaid
		result.Transitioned = true
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) {
			log.Error("Paid session could not be fulfilled from stock, sale left PENDING for follow-up",
				zap.Error(err))
		} else {
			log.Warn("Reconciliation did not complete", zap.Error(err))
		}
		return nil, err
	}

	if result.AlreadyPaid {
		log.Info("Sale already paid, nothing to do")
		return result, nil
	}
	if result.Deferred {
		log.Info("Sale settles asynchronously, waiting for the provider webhook")
		return result, nil
	}

	s.publish(ctx, paid)
	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   string(trigger),
		Action:  shared.AuditSalePaid,
		Subject: paid,
		Detail:  fmt.Sprintf("total=%s", paid.Total),
	})
	log.Info("Sale paid", zap.String("total", paid.Total.String()))
	return result, nil
}

// Expire moves a still-PENDING sale to EXPIRED. Terminal sales are left alone.
func (s *Service) Expire(ctx context.Context, sessionID string) (bool, error) {
	var expired *sales.Sale
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		sale, err := repos.Sales().FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrSaleNotFound
			}
			return err
		}
		if sale.Status != sales.StatusPending {
			return nil
		}
		at := s.now()
		won, err := repos.Sales().TransitionStatus(ctx, sessionID, sales.StatusPending, sales.StatusExpired, at)
		if err != nil {
			return fmt.Errorf("transition sale to expired: %w", err)
		}
		if !won {
			return nil
		}
		if err := sale.MarkExpired(at); err != nil {
			return err
		}
		expired = sale
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired == nil {
		return false, nil
	}

	s.publish(ctx, expired)
	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   "system",
		Action:  shared.AuditSaleExpired,
		Subject: expired,
	})
	s.logger.Info("Sale expired", zap.String("sale_id", sessionID))
	return true, nil
}

// trimCart removes the purchased quantities from the buyer's live cart.
// A concurrent cart edit is not worth failing a payment over.
func (s *Service) trimCart(ctx context.Context, repos transaction.Repositories, sale *sales.Sale, log *zap.Logger) error {
	c, err := repos.Carts().FindByCustomer(ctx, sale.Customer.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if !c.RemoveBooks(sale.Quantities()) {
		return nil
	}
	if c.IsEmpty() {
		return repos.Carts().Delete(ctx, c.ID)
	}
	if err := repos.Carts().Save(ctx, c); err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			log.Warn("Cart changed while reconciling, purchased lines left in place",
				zap.String("cart_id", c.ID.String()))
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) publish(ctx context.Context, sale *sales.Sale) {
	events := sale.GetDomainEvents()
	sale.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish sale events",
			zap.String("sale_id", sale.ID),
			zap.Error(err))
	}
}
