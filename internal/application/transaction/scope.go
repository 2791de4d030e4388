package transaction

import (
	"context"

	"github.com/biblioteca/backend/internal/domain/cart"
	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/inventory"
	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/domain/sales"
)

// Scope runs a unit of work in one database transaction. Every repository
// handed to fn shares that transaction; returning an error rolls all of it back.
type Scope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories exposes the repositories bound to the current transaction
type Repositories interface {
	Books() catalog.BookRepository
	Inventory() inventory.Ledger
	Carts() cart.CartRepository
	Sales() sales.SaleRepository
	Loans() loan.LoanRepository
	Quotas() loan.QuotaRepository
}

// StaticRepositories is a fixed set of repositories
type StaticRepositories struct {
	BookRepo  catalog.BookRepository
	Ledger    inventory.Ledger
	CartRepo  cart.CartRepository
	SaleRepo  sales.SaleRepository
	LoanRepo  loan.LoanRepository
	QuotaRepo loan.QuotaRepository
}

// Books returns the book repository
func (r *StaticRepositories) Books() catalog.BookRepository { return r.BookRepo }

// Inventory returns the inventory ledger
func (r *StaticRepositories) Inventory() inventory.Ledger { return r.Ledger }

// Carts returns the cart repository
func (r *StaticRepositories) Carts() cart.CartRepository { return r.CartRepo }

// Sales returns the sale repository
func (r *StaticRepositories) Sales() sales.SaleRepository { return r.SaleRepo }

// Loans returns the loan repository
func (r *StaticRepositories) Loans() loan.LoanRepository { return r.LoanRepo }

// Quotas returns the loan quota repository
func (r *StaticRepositories) Quotas() loan.QuotaRepository { return r.QuotaRepo }

// NoOpScope runs fn against fixed repositories without a transaction.
// Useful for tests or when transaction support is not required.
type NoOpScope struct {
	Repos *StaticRepositories
}

// NewNoOpScope creates a NoOpScope
func NewNoOpScope(repos *StaticRepositories) *NoOpScope {
	return &NoOpScope{Repos: repos}
}

// Execute runs fn directly
func (s *NoOpScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.Repos)
}

var (
	_ Scope        = (*NoOpScope)(nil)
	_ Repositories = (*StaticRepositories)(nil)
)
