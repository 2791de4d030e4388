package sales

import (
	"strings"
	"time"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Status is the sale state. PENDING moves to PAID on reconciliation or to
// EXPIRED when abandoned; both are terminal.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusExpired Status = "EXPIRED"
)

// IsValid checks if the status is a valid value
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusExpired
}

// CanTransitionTo reports whether the state machine allows s -> target
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusPending && (target == StatusPaid || target == StatusExpired)
}

// Kind distinguishes purchases from rentals
type Kind string

const (
	KindPurchase Kind = "PURCHASE"
	KindRental   Kind = "RENTAL"
)

// IsValid checks if the kind is a valid value
func (k Kind) IsValid() bool {
	return k == KindPurchase || k == KindRental
}

// PaymentMethod is the instrument offered on the payment page
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodBoleto PaymentMethod = "BOLETO"
)

// IsValid checks if the payment method is a valid value
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCard || m == PaymentMethodBoleto
}

// SettlesAsync reports whether completing the payment page leaves the funds
// still to clear. Only the provider's async webhook can confirm such a sale.
func (m PaymentMethod) SettlesAsync() bool {
	return m == PaymentMethodBoleto
}

// Sale errors
var (
	ErrSaleAlreadyPaid = shared.NewDomainError("SALE_ALREADY_PAID", "Sale has already been paid")
	ErrSaleExpired     = shared.NewDomainError("SALE_EXPIRED", "Sale has expired")
	ErrEmptySale       = shared.NewDomainError("EMPTY_SALE", "Sale must have at least one line")
)

// Customer is the buyer snapshot taken at checkout
type Customer struct {
	ID      uuid.UUID
	Name    string
	TaxID   valueobject.TaxID
	Email   string
	Address string
}

// SaleLine is an immutable copy of a cart line at checkout. For rentals
// UnitPrice is already the rental price.
type SaleLine struct {
	BookID    uuid.UUID
	Title     string
	Quantity  int
	UnitPrice valueobject.Money
	LineTotal valueobject.Money
}

// NewSaleLine builds a line, rejecting zero-value prices and quantities
func NewSaleLine(bookID uuid.UUID, title string, quantity int, unitPrice valueobject.Money) (SaleLine, error) {
	if quantity < 1 {
		return SaleLine{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if !unitPrice.IsPositive() {
		return SaleLine{}, shared.NewDomainError("INVALID_PRICE", "Unit price of '"+title+"' must be greater than zero")
	}
	return SaleLine{
		BookID:    bookID,
		Title:     title,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: unitPrice.MultiplyByInt(int64(quantity)),
	}, nil
}

// Sale is the order record, keyed by the payment session id.
// Lines and Total never change after creation.
type Sale struct {
	shared.BaseAggregateRoot
	ID            string
	Customer      Customer
	Lines         []SaleLine
	Total         valueobject.Money
	PaymentMethod PaymentMethod
	Kind          Kind
	Status        Status
	CreatedAt     time.Time
	PaidAt        *time.Time
	ExpiredAt     *time.Time
}

// NewPendingSale creates a PENDING sale for a freshly created payment session
func NewPendingSale(sessionID string, customer Customer, lines []SaleLine, method PaymentMethod, kind Kind) (*Sale, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Payment session id cannot be empty")
	}
	if len(lines) == 0 {
		return nil, ErrEmptySale
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unsupported payment method")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Sale kind must be PURCHASE or RENTAL")
	}

	totals := make([]valueobject.Money, len(lines))
	for i, line := range lines {
		totals[i] = line.LineTotal
	}
	total, err := valueobject.Sum(valueobject.DefaultCurrency, totals...)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_PRICE", "Sale lines must share one currency", err)
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_TOTAL", "Sale total must be greater than zero")
	}

	frozen := make([]SaleLine, len(lines))
	copy(frozen, lines)

	sale := &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ID:                sessionID,
		Customer:          customer,
		Lines:             frozen,
		Total:             total,
		PaymentMethod:     method,
		Kind:              kind,
		Status:            StatusPending,
		CreatedAt:         time.Now(),
	}
	sale.AddDomainEvent(NewSaleCreatedEvent(sale))
	return sale, nil
}

// MarkPaid moves a PENDING sale to PAID
func (s *Sale) MarkPaid(at time.Time) error {
	switch s.Status {
	case StatusPaid:
		return ErrSaleAlreadyPaid
	case StatusExpired:
		return ErrSaleExpired
	}
	s.Status = StatusPaid
	s.PaidAt = &at
	s.IncrementVersion()
	s.AddDomainEvent(NewSalePaidEvent(s))
	return nil
}

// MarkExpired moves a PENDING sale to EXPIRED
func (s *Sale) MarkExpired(at time.Time) error {
	switch s.Status {
	case StatusPaid:
		return ErrSaleAlreadyPaid
	case StatusExpired:
		return ErrSaleExpired
	}
	s.Status = StatusExpired
	s.ExpiredAt = &at
	s.IncrementVersion()
	s.AddDomainEvent(NewSaleExpiredEvent(s))
	return nil
}

// Quantities returns purchased quantity per book
func (s *Sale) Quantities() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.Lines))
	for _, line := range s.Lines {
		out[line.BookID] += line.Quantity
	}
	return out
}

// ReturnBy is the date rented books are due back. Zero for purchases.
func (s *Sale) ReturnBy(graceDays int) time.Time {
	if s.Kind != KindRental {
		return time.Time{}
	}
	base := s.CreatedAt
	if s.PaidAt != nil {
		base = *s.PaidAt
	}
	return base.AddDate(0, 0, graceDays)
}

// AuditKey implements shared.Auditable
func (s *Sale) AuditKey() string {
	return s.ID
}

// AuditType implements shared.Auditable
func (s *Sale) AuditType() string {
	return "Sale"
}
