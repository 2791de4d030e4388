package reconciliation

import (
	"context"
	"errors"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// WebhookOutcome tells the transport layer what happened to a delivery
type WebhookOutcome string

const (
	OutcomeReconciled  WebhookOutcome = "RECONCILED"
	OutcomeAlreadyPaid WebhookOutcome = "ALREADY_PAID"
	OutcomeExpired     WebhookOutcome = "EXPIRED"
	OutcomeDuplicate   WebhookOutcome = "DUPLICATE"
	OutcomeAwaiting    WebhookOutcome = "AWAITING_PAYMENT"
	OutcomeConflict    WebhookOutcome = "CONFLICT"
	OutcomeIgnored     WebhookOutcome = "IGNORED"
)

// WebhookResult is acknowledged to the provider
type WebhookResult struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	SessionID string         `json:"session_id,omitempty"`
	Outcome   WebhookOutcome `json:"outcome"`
}

// HandleWebhook verifies and applies a payment provider notification.
// Business conflicts are acknowledged so the provider stops retrying;
// only infrastructure failures are returned as errors.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.provider.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, sales.ErrInvalidSignature) {
			s.logger.Warn("Rejected webhook with invalid signature")
			return nil, ErrInvalidSignature
		}
		return nil, shared.WrapDomainError("INVALID_WEBHOOK", "Webhook payload could not be parsed", err)
	}

	log := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("sale_id", event.SessionID),
	)
	result := &WebhookResult{EventID: event.ID, EventType: event.Type, SessionID: event.SessionID}

	if event.Kind == sales.WebhookIgnored {
		log.Debug("Ignoring webhook event type")
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	key := "webhook:" + event.ID
	if s.idempotency != nil {
		first, err := s.idempotency.MarkProcessed(ctx, key, s.config.TTL)
		if err != nil {
			log.Warn("Idempotency store unavailable, processing without deduplication", zap.Error(err))
		} else if !first {
			log.Info("Duplicate webhook delivery skipped")
			result.Outcome = OutcomeDuplicate
			return result, nil
		}
	}

	outcome, err := s.apply(ctx, event, log)
	if err != nil {
		if isBusinessConflict(err) {
			log.Warn("Webhook acknowledged without state change", zap.Error(err))
			result.Outcome = OutcomeConflict
			return result, nil
		}
		s.forget(ctx, key, log)
		return nil, err
	}
	result.Outcome = outcome
	return result, nil
}

func (s *Service) apply(ctx context.Context, event *sales.WebhookEvent, log *zap.Logger) (WebhookOutcome, error) {
	switch event.Kind {
	case sales.WebhookSessionCompleted:
		if !event.Paid {
			log.Info("Session completed with payment still pending")
			return OutcomeAwaiting, nil
		}
		return s.reconcileOutcome(ctx, event.SessionID)
	case sales.WebhookAsyncPaymentSucceeded:
		return s.reconcileOutcome(ctx, event.SessionID)
	case sales.WebhookAsyncPaymentFailed, sales.WebhookSessionExpired:
		if _, err := s.Expire(ctx, event.SessionID); err != nil {
			return "", err
		}
		return OutcomeExpired, nil
	}
	return OutcomeIgnored, nil
}

func (s *Service) reconcileOutcome(ctx context.Context, sessionID string) (WebhookOutcome, error) {
	res, err := s.Reconcile(ctx, sessionID, TriggerWebhook)
	if err != nil {
		return "", err
	}
	if res.AlreadyPaid {
		return OutcomeAlreadyPaid, nil
	}
	return OutcomeReconciled, nil
}

func (s *Service) forget(ctx context.Context, key string, log *zap.Logger) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Forget(context.WithoutCancel(ctx), key); err != nil {
		log.Warn("Failed to release idempotency key", zap.Error(err))
	}
}

// isBusinessConflict reports whether retrying the delivery could never succeed
func isBusinessConflict(err error) bool {
	return errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, sales.ErrSaleExpired) ||
		errors.Is(err, shared.ErrInsufficientStock)
}
