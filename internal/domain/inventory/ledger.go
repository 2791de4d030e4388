package inventory

import (
	"context"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrInvalidQuantity is returned when a reserve or release is asked for less than one copy
var ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")

// Ledger guards the per-book available quantity.
//
// Reserve is a compare-and-decrement: it either removes qty copies or fails
// with shared.ErrInsufficientStock and leaves the quantity untouched. Release
// adds copies back unconditionally. Implementations run inside the caller's
// transaction when obtained from a transaction scope.
type Ledger interface {
	Reserve(ctx context.Context, bookID uuid.UUID, qty int) error
	Release(ctx context.Context, bookID uuid.UUID, qty int) error
	Available(ctx context.Context, bookID uuid.UUID) (int, error)
}

// ValidateQuantity rejects quantities below one
func ValidateQuantity(qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
