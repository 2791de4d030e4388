package persistence

import (
	"context"

	"github.com/biblioteca/backend/internal/application/transaction"
	"github.com/biblioteca/backend/internal/domain/cart"
	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/inventory"
	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/domain/sales"
	"gorm.io/gorm"
)

// GormTransactionScope implements transaction.Scope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos transaction.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories hands out repositories bound to one transaction.
type gormRepositories struct {
	tx *gorm.DB
}

// Books returns the book repository scoped to the current transaction.
func (r *gormRepositories) Books() catalog.BookRepository {
	return NewGormBookRepository(r.tx)
}

// Inventory returns the inventory ledger scoped to the current transaction.
func (r *gormRepositories) Inventory() inventory.Ledger {
	return NewGormLedger(r.tx)
}

// Carts returns the cart repository scoped to the current transaction.
func (r *gormRepositories) Carts() cart.CartRepository {
	return NewGormCartRepository(r.tx)
}

// Sales returns the sale repository scoped to the current transaction.
func (r *gormRepositories) Sales() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

// Loans returns the loan repository scoped to the current transaction.
func (r *gormRepositories) Loans() loan.LoanRepository {
	return NewGormLoanRepository(r.tx)
}

// Quotas returns the loan quota repository scoped to the current transaction.
func (r *gormRepositories) Quotas() loan.QuotaRepository {
	return NewGormQuotaRepository(r.tx)
}

var (
	_ transaction.Scope        = (*GormTransactionScope)(nil)
	_ transaction.Repositories = (*gormRepositories)(nil)
)
