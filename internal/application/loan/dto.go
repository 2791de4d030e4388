package loan

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateLoanRequest represents a request to borrow a book
type CreateLoanRequest struct {
	BookID uuid.UUID `json:"book_id" binding:"required"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	BookID     uuid.UUID         `json:"book_id"`
	BookTitle  string            `json:"book_title"`
	LoanDate   time.Time         `json:"loan_date"`
	DueDate    time.Time         `json:"due_date"`
	ReturnDate *time.Time        `json:"return_date,omitempty"`
	Status     loan.Status       `json:"status"`
	LoanValue  valueobject.Money `json:"loan_value"`
	Fine       valueobject.Money `json:"fine"`
	Overdue    bool              `json:"overdue"`
	FinePaid   bool              `json:"fine_paid"`
}

// ToLoanResponse converts a domain Loan, computing the fine as of now
func ToLoanResponse(l *loan.Loan, now time.Time, penaltyRate decimal.Decimal) LoanResponse {
	return LoanResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		BookID:     l.BookID,
		BookTitle:  l.BookTitle,
		LoanDate:   l.LoanDate,
		DueDate:    l.DueDate,
		ReturnDate: l.ReturnDate,
		Status:     l.Status,
		LoanValue:  l.LoanValue,
		Fine:       l.Fine(now, penaltyRate),
		Overdue:    l.IsOverdue(now),
		FinePaid:   l.FinePaidAt != nil,
	}
}

// ToLoanResponses converts a slice of loans
func ToLoanResponses(loans []*loan.Loan, now time.Time, penaltyRate decimal.Decimal) []LoanResponse {
	responses := make([]LoanResponse, len(loans))
	for i, l := range loans {
		responses[i] = ToLoanResponse(l, now, penaltyRate)
	}
	return responses
}

// FineResponse is the fine of a single loan
type FineResponse struct {
	LoanID   uuid.UUID         `json:"loan_id"`
	Fine     valueobject.Money `json:"fine"`
	DaysLate int               `json:"days_late"`
	Frozen   bool              `json:"frozen"`
	Paid     bool              `json:"paid"`
}

// FineBalanceResponse totals what a borrower owes
type FineBalanceResponse struct {
	UserID   uuid.UUID         `json:"user_id"`
	Unpaid   valueobject.Money `json:"unpaid"`
	Accruing valueobject.Money `json:"accruing"`
	Total    valueobject.Money `json:"total"`
}
