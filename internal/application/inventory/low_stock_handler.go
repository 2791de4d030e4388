package inventory

import (
	"context"
	"fmt"

	"github.com/biblioteca/backend/internal/domain/inventory"
	"github.com/biblioteca/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockAlert is a notification about one book running low
type StockAlert struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
	AlertType string `json:"alert_type"` // "low_stock", "out_of_stock"
}

// StockAlertNotifier delivers stock alerts to staff
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert StockAlert) error
}

// LowStockHandler turns LowStockDetected events into staff alerts
type LowStockHandler struct {
	logger   *zap.Logger
	notifier StockAlertNotifier
}

// NewLowStockHandler creates a new handler for low stock events
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{logger: logger}
}

// WithNotifier sets the notifier for sending alerts
func (h *LowStockHandler) WithNotifier(notifier StockAlertNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventTypeLowStockDetected}
}

// Handle processes a LowStockDetectedEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	lowStock, ok := event.(*inventory.LowStockDetectedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeLowStockDetected),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeLowStockDetected, event.EventType())
	}
	if h.notifier == nil {
		return nil
	}

	for _, item := range lowStock.Items {
		alert := StockAlert{
			BookID:    item.BookID.String(),
			Title:     item.Title,
			Available: item.Available,
			Threshold: lowStock.Threshold,
			AlertType: "low_stock",
		}
		if item.Available == 0 {
			alert.AlertType = "out_of_stock"
		}
		// Notification failure shouldn't fail the event handling
		if err := h.notifier.SendAlert(ctx, alert); err != nil {
			h.logger.Error("failed to send stock alert notification",
				zap.String("book_id", alert.BookID),
				zap.Error(err))
		}
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)

// LoggingStockAlertNotifier is a notifier that logs alerts
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{logger: logger}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(_ context.Context, alert StockAlert) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("type", alert.AlertType),
		zap.String("book_id", alert.BookID),
		zap.String("title", alert.Title),
		zap.Int("available", alert.Available),
		zap.Int("threshold", alert.Threshold))
	return nil
}
