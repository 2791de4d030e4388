package cart

import (
	"context"
	"strings"
	"time"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Cart errors
var (
	ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	ErrEmptyCart       = shared.NewDomainError("EMPTY_CART", "Cart has no lines")
)

// CartLine is a snapshot of a book taken when it was added.
// Price changes in the catalog do not reach lines already in a cart.
type CartLine struct {
	BookID    uuid.UUID
	Title     string
	UnitPrice valueobject.Money
	Quantity  int
}

// LineTotal returns unit price times quantity
func (l CartLine) LineTotal() valueobject.Money {
	return l.UnitPrice.MultiplyByInt(int64(l.Quantity))
}

// Cart is the per-customer collection of lines awaiting checkout.
// There is at most one live cart per customer.
type Cart struct {
	shared.BaseEntity
	shared.BaseAggregateRoot
	CustomerID uuid.UUID
	Lines      []CartLine
}

// NewCart creates an empty cart for the customer
func NewCart(customerID uuid.UUID) *Cart {
	return &Cart{
		BaseEntity:        shared.NewBaseEntity(),
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Lines:             make([]CartLine, 0),
	}
}

// AddLine adds qty copies of the book, merging with an existing line for the
// same book. New lines snapshot the book's current title and price.
func (c *Cart) AddLine(book *catalog.Book, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if book == nil {
		return shared.NewDomainError("INVALID_BOOK", "Book cannot be nil")
	}

	if i := c.indexOfBook(book.ID); i >= 0 {
		c.Lines[i].Quantity += qty
	} else {
		c.Lines = append(c.Lines, CartLine{
			BookID:    book.ID,
			Title:     book.Title,
			UnitPrice: book.Price,
			Quantity:  qty,
		})
	}
	c.touch()
	return nil
}

// RemoveLine decrements the line whose title matches by qty and drops it
// once its quantity reaches zero. It returns false when no line has the title.
func (c *Cart) RemoveLine(title string, qty int) (bool, error) {
	if qty < 1 {
		return false, ErrInvalidQuantity
	}
	i := c.indexOfTitle(title)
	if i < 0 {
		return false, nil
	}

	c.Lines[i].Quantity -= qty
	if c.Lines[i].Quantity <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
	c.touch()
	return true, nil
}

// RemoveBooks takes purchased quantities out of the cart after a sale was
// paid. Books that are not in the cart are skipped.
func (c *Cart) RemoveBooks(quantities map[uuid.UUID]int) bool {
	changed := false
	kept := c.Lines[:0]
	for _, line := range c.Lines {
		if qty, ok := quantities[line.BookID]; ok && qty > 0 {
			changed = true
			line.Quantity -= qty
			if line.Quantity <= 0 {
				continue
			}
		}
		kept = append(kept, line)
	}
	c.Lines = kept
	if changed {
		c.touch()
	}
	return changed
}

// Clear removes every line
func (c *Cart) Clear() {
	c.Lines = make([]CartLine, 0)
	c.touch()
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount returns the number of copies across all lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// Total sums unit price times quantity over every line. In rental mode the
// rental fraction is applied once to the sum, not per line.
func (c *Cart) Total(rental bool) valueobject.Money {
	return totalOf(c.Lines, rental)
}

// Select returns the lines for the given books, or every line when bookIDs
// is empty. Unknown ids are reported as not found.
func (c *Cart) Select(bookIDs []uuid.UUID) ([]CartLine, error) {
	if len(bookIDs) == 0 {
		out := make([]CartLine, len(c.Lines))
		copy(out, c.Lines)
		return out, nil
	}
	out := make([]CartLine, 0, len(bookIDs))
	seen := make(map[uuid.UUID]bool, len(bookIDs))
	for _, id := range bookIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		i := c.indexOfBook(id)
		if i < 0 {
			return nil, shared.NewDomainError("NOT_FOUND", "Book "+id.String()+" is not in the cart")
		}
		out = append(out, c.Lines[i])
	}
	return out, nil
}

// AuditKey implements shared.Auditable
func (c *Cart) AuditKey() string {
	return c.ID.String()
}

// AuditType implements shared.Auditable
func (c *Cart) AuditType() string {
	return "Cart"
}

func (c *Cart) indexOfBook(bookID uuid.UUID) int {
	for i, line := range c.Lines {
		if line.BookID == bookID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfTitle(title string) int {
	title = strings.TrimSpace(title)
	for i, line := range c.Lines {
		if strings.EqualFold(line.Title, title) {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.Touch(time.Now())
}

// TotalOf computes the total of an arbitrary selection of lines
func TotalOf(lines []CartLine, rental bool) valueobject.Money {
	return totalOf(lines, rental)
}

func totalOf(lines []CartLine, rental bool) valueobject.Money {
	total := valueobject.Zero(valueobject.DefaultCurrency)
	for _, line := range lines {
		total = total.MustAdd(line.LineTotal())
	}
	if rental {
		return total.ApplyRental()
	}
	return total
}

// CartRepository persists carts. Save uses the version for optimistic
// locking and fails with shared.ErrConcurrentModification on conflict.
type CartRepository interface {
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, id uuid.UUID) error
}
