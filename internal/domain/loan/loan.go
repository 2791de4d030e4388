package loan

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the loan state
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusReturned Status = "RETURNED"
)

// Loan errors
var (
	ErrAlreadyReturned  = shared.NewDomainError("ALREADY_RETURNED", "Loan has already been returned")
	ErrLoanOverdue      = shared.NewDomainError(ReasonOverdue, "Borrower has an overdue loan")
	ErrLoanLimitReached = shared.NewDomainError(ReasonLimitReached, "Borrower has reached the active loan limit")
	ErrUnpaidFines      = shared.NewDomainError(ReasonUnpaidFines, "Borrower has unpaid fines")
	ErrNoFineDue        = shared.NewDomainError("NO_FINE_DUE", "Loan has no unpaid fine")
)

// Loan is a time-boxed rental of one copy
type Loan struct {
	shared.BaseEntity
	UserID     uuid.UUID
	BookID     uuid.UUID
	BookTitle  string
	LoanDate   time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     Status
	LoanValue  valueobject.Money
	FrozenFine *valueobject.Money
	FinePaidAt *time.Time
}

// NewLoan creates an ACTIVE loan due GracePeriodDays after now
func NewLoan(userID uuid.UUID, book *catalog.Book, policy Policy, now time.Time) (*Loan, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User id cannot be empty")
	}
	if book == nil {
		return nil, shared.NewDomainError("INVALID_BOOK", "Book cannot be nil")
	}
	if !book.Price.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Book price must be greater than zero")
	}

	return &Loan{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		BookID:     book.ID,
		BookTitle:  book.Title,
		LoanDate:   now,
		DueDate:    now.AddDate(0, 0, policy.GracePeriodDays),
		Status:     StatusActive,
		LoanValue:  book.Price.Multiply(policy.RentalFraction).Round(2),
	}, nil
}

// IsActive reports whether the loan has not been returned
func (l *Loan) IsActive() bool {
	return l.Status == StatusActive
}

// IsOverdue reports whether an active loan is past its due date
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && DaysLate(l.DueDate, now) > 0
}

// Fine returns the frozen fine for returned loans and the live estimate
// as of now for active ones
func (l *Loan) Fine(now time.Time, penaltyRate decimal.Decimal) valueobject.Money {
	if l.FrozenFine != nil {
		return *l.FrozenFine
	}
	return CalculateFine(l.DueDate, now, l.LoanValue, penaltyRate)
}

// Return marks the loan RETURNED and freezes its fine
func (l *Loan) Return(now time.Time, penaltyRate decimal.Decimal) (valueobject.Money, error) {
	if !l.IsActive() {
		return valueobject.Money{}, ErrAlreadyReturned
	}
	fine := CalculateFine(l.DueDate, now, l.LoanValue, penaltyRate)
	l.ReturnDate = &now
	l.Status = StatusReturned
	l.FrozenFine = &fine
	l.Touch(now)
	return fine, nil
}

// UnpaidFine is the frozen fine still owed, zero when settled or nothing is due
func (l *Loan) UnpaidFine() valueobject.Money {
	if l.FrozenFine == nil || l.FinePaidAt != nil {
		return valueobject.Zero(l.LoanValue.Currency())
	}
	return *l.FrozenFine
}

// SettleFine records payment of the frozen fine
func (l *Loan) SettleFine(now time.Time) (valueobject.Money, error) {
	if l.IsActive() {
		return valueobject.Money{}, shared.NewDomainError("INVALID_STATE", "Fine can only be settled after return")
	}
	owed := l.UnpaidFine()
	if !owed.IsPositive() {
		return valueobject.Money{}, ErrNoFineDue
	}
	l.FinePaidAt = &now
	l.Touch(now)
	return owed, nil
}

// AuditKey implements shared.Auditable
func (l *Loan) AuditKey() string {
	return l.ID.String()
}

// AuditType implements shared.Auditable
func (l *Loan) AuditType() string {
	return "Loan"
}
