package event

import (
	"context"

	"github.com/biblioteca/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// KeyFunc derives the idempotency key of an event
type KeyFunc func(event shared.DomainEvent) string

// ByEventID keys on the event's unique id, suppressing redelivery of one event
func ByEventID(event shared.DomainEvent) string {
	return event.EventID().String()
}

// ByAggregate keys on the event type and aggregate, so that an aggregate
// is handled once per event type even if the event is raised again
func ByAggregate(event shared.DomainEvent) string {
	return event.EventType() + ":" + event.AggregateID()
}

// IdempotentHandler wraps an EventHandler so each key is processed once.
// Keys are namespaced per handler, so handlers sharing a store do not
// suppress each other.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	keyFunc KeyFunc
	logger  *zap.Logger
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the key TTL
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithKeyFunc overrides the default ByEventID key
func WithKeyFunc(fn KeyFunc) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.keyFunc = fn
	}
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(name string, handler shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		keyFunc: ByEventID,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle processes the event unless its key was already processed. A store
// failure lets the event through; a handler failure releases the key so a
// redelivery can retry.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := "event:" + h.name + ":" + h.keyFunc(event)
	log := h.logger.With(
		zap.String("idempotency_key", key),
		zap.String("event_type", event.EventType()),
	)

	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	if err != nil {
		log.Warn("Idempotency check failed, processing anyway", zap.Error(err))
	} else if !isNew {
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		if forgetErr := h.store.Forget(ctx, key); forgetErr != nil {
			log.Warn("Failed to release idempotency key", zap.Error(forgetErr))
		}
		return err
	}
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
