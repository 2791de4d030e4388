package inventory

import (
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeLowStockDetected = "LowStockDetected"
	AggregateTypeInventory    = "Inventory"
)

// LowStockItem is one book below the alert threshold
type LowStockItem struct {
	BookID    uuid.UUID `json:"book_id"`
	Title     string    `json:"title"`
	Available int       `json:"available"`
}

// LowStockDetectedEvent is published by the stock monitor when one or more
// books fall below the configured threshold
type LowStockDetectedEvent struct {
	shared.BaseDomainEvent
	Threshold int            `json:"threshold"`
	Items     []LowStockItem `json:"items"`
}

// NewLowStockDetectedEvent creates a new LowStockDetectedEvent
func NewLowStockDetectedEvent(threshold int, items []LowStockItem) *LowStockDetectedEvent {
	return &LowStockDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLowStockDetected, AggregateTypeInventory, "catalog"),
		Threshold:       threshold,
		Items:           items,
	}
}
