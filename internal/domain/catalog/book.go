package catalog

import (
	"context"
	"strings"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Book is the inventory-bearing catalog entry.
// AvailableQuantity is only ever changed through the inventory ledger.
type Book struct {
	shared.BaseEntity
	Title             string
	Author            string
	ISBN              string
	Price             valueobject.Money
	AvailableQuantity int
}

// NewBook creates a new catalog entry
func NewBook(title, author, isbn string, price valueobject.Money, quantity int) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Book title cannot be empty")
	}
	if len(title) > 300 {
		return nil, shared.NewDomainError("INVALID_TITLE", "Book title cannot exceed 300 characters")
	}
	if !price.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Book price must be greater than zero")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Available quantity cannot be negative")
	}

	return &Book{
		BaseEntity:        shared.NewBaseEntity(),
		Title:             title,
		Author:            strings.TrimSpace(author),
		ISBN:              strings.TrimSpace(isbn),
		Price:             price,
		AvailableQuantity: quantity,
	}, nil
}

// HasStock reports whether qty copies are currently available.
// This is a read-time hint; the ledger is the only guard against overselling.
func (b *Book) HasStock(qty int) bool {
	return b.AvailableQuantity >= qty
}

// RentalValue returns the loan value of one copy
func (b *Book) RentalValue() valueobject.Money {
	return b.Price.ApplyRental()
}

// AuditKey implements shared.Auditable
func (b *Book) AuditKey() string {
	return b.ID.String()
}

// AuditType implements shared.Auditable
func (b *Book) AuditType() string {
	return "Book"
}

// BookFilter narrows catalog listings
type BookFilter struct {
	shared.Filter
	Search string
}

// BookRepository is the read side of the catalog. Catalog maintenance is
// handled elsewhere; stock columns are owned by inventory.Ledger.
type BookRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Book, error)
	List(ctx context.Context, filter BookFilter) ([]*Book, int64, error)
	FindLowStock(ctx context.Context, threshold int) ([]*Book, error)
	Create(ctx context.Context, book *Book) error
}
