package sales

import (
	"context"
	"time"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID
	Status        Status
	Kind          Kind
	PaymentMethod PaymentMethod
	From          *time.Time
	To            *time.Time
}

// Summary aggregates the ledger
type Summary struct {
	PaidCount       int64
	PendingCount    int64
	ExpiredCount    int64
	Revenue         valueobject.Money
	ByPaymentMethod map[PaymentMethod]int64
}

// SaleRepository persists the sale ledger
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	FindByID(ctx context.Context, id string) (*Sale, error)
	// TransitionStatus is a compare-and-set on the status column. It returns
	// false when the sale was no longer in the from state.
	TransitionStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]*Sale, int64, error)
	Summary(ctx context.Context, filter SaleFilter) (*Summary, error)
}
