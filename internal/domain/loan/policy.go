package loan

import (
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Ineligibility reasons
const (
	ReasonOverdue      = "LOAN_OVERDUE"
	ReasonLimitReached = "LOAN_LIMIT_REACHED"
	ReasonUnpaidFines  = "UNPAID_FINES"
)

// Policy holds the lending rules
type Policy struct {
	MaxActiveLoans  int
	GracePeriodDays int
	RentalFraction  decimal.Decimal
	PenaltyRate     decimal.Decimal
}

// DefaultPolicy returns the standard lending rules
func DefaultPolicy() Policy {
	return Policy{
		MaxActiveLoans:  3,
		GracePeriodDays: 7,
		RentalFraction:  valueobject.RentalFraction,
		PenaltyRate:     decimal.RequireFromString("0.10"),
	}
}

// BorrowerSnapshot is a consistent view of a borrower's standing
type BorrowerSnapshot struct {
	ActiveLoans  int
	OverdueLoans int
	UnpaidFines  valueobject.Money
}

// Eligibility is the outcome of a policy check
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// Evaluate applies the rules in order: overdue, cap, unpaid fines
func (p Policy) Evaluate(s BorrowerSnapshot) Eligibility {
	switch {
	case s.OverdueLoans > 0:
		return Eligibility{Reason: ReasonOverdue}
	case s.ActiveLoans >= p.MaxActiveLoans:
		return Eligibility{Reason: ReasonLimitReached}
	case s.UnpaidFines.IsPositive():
		return Eligibility{Reason: ReasonUnpaidFines}
	}
	return Eligibility{Eligible: true}
}

// Error returns the domain error matching an ineligible outcome, or nil
func (e Eligibility) Error() error {
	switch e.Reason {
	case ReasonOverdue:
		return ErrLoanOverdue
	case ReasonLimitReached:
		return ErrLoanLimitReached
	case ReasonUnpaidFines:
		return ErrUnpaidFines
	}
	return nil
}
