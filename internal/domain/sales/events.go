package sales

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeSaleCreated = "SaleCreated"
	EventTypeSalePaid    = "SalePaid"
	EventTypeSaleExpired = "SaleExpired"
	AggregateTypeSale    = "Sale"
)

// SaleCreatedEvent is raised when a PENDING sale is recorded
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	SaleID        string            `json:"sale_id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	Total         valueobject.Money `json:"total"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Kind          Kind              `json:"kind"`
}

// NewSaleCreatedEvent creates a new SaleCreatedEvent
func NewSaleCreatedEvent(s *Sale) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, AggregateTypeSale, s.ID),
		SaleID:          s.ID,
		CustomerID:      s.Customer.ID,
		Total:           s.Total,
		PaymentMethod:   s.PaymentMethod,
		Kind:            s.Kind,
	}
}

// SalePaidEvent is raised once per sale, after the PAID transition commits.
// It carries the frozen snapshot needed to render fiscal documents.
type SalePaidEvent struct {
	shared.BaseDomainEvent
	SaleID        string            `json:"sale_id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	Total         valueobject.Money `json:"total"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Kind          Kind              `json:"kind"`
	PaidAt        time.Time         `json:"paid_at"`
}

// NewSalePaidEvent creates a new SalePaidEvent
func NewSalePaidEvent(s *Sale) *SalePaidEvent {
	paidAt := time.Now()
	if s.PaidAt != nil {
		paidAt = *s.PaidAt
	}
	return &SalePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalePaid, AggregateTypeSale, s.ID),
		SaleID:          s.ID,
		CustomerID:      s.Customer.ID,
		Total:           s.Total,
		PaymentMethod:   s.PaymentMethod,
		Kind:            s.Kind,
		PaidAt:          paidAt,
	}
}

// SaleExpiredEvent is raised when an abandoned sale is expired
type SaleExpiredEvent struct {
	shared.BaseDomainEvent
	SaleID     string    `json:"sale_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// NewSaleExpiredEvent creates a new SaleExpiredEvent
func NewSaleExpiredEvent(s *Sale) *SaleExpiredEvent {
	return &SaleExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleExpired, AggregateTypeSale, s.ID),
		SaleID:          s.ID,
		CustomerID:      s.Customer.ID,
	}
}
