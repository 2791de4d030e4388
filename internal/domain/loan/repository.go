package loan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LoanRepository persists loans
type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) error
	// Save updates a loan. It only succeeds while the stored status still
	// matches expected, so a loan cannot be returned twice concurrently.
	Save(ctx context.Context, loan *Loan, expected Status) error
	FindByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error)
	FindOverdue(ctx context.Context, asOf time.Time) ([]*Loan, error)
	// Snapshot counts the borrower's active and overdue loans and sums their
	// unpaid frozen fines as of the given time
	Snapshot(ctx context.Context, userID uuid.UUID, asOf time.Time) (BorrowerSnapshot, error)
}

// QuotaRepository holds the per-borrower active loan counter. Acquire is a
// compare-and-increment against the cap so concurrent loan requests cannot
// both take the last slot.
type QuotaRepository interface {
	Acquire(ctx context.Context, userID uuid.UUID, max int) (bool, error)
	Release(ctx context.Context, userID uuid.UUID) error
}
