package cart

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/cart"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AddBookRequest adds copies of a book to the caller's cart
type AddBookRequest struct {
	BookID   uuid.UUID `json:"book_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1,max=100"`
}

// RemoveBookRequest removes copies of a book from the caller's cart by title
type RemoveBookRequest struct {
	Title    string `json:"title" binding:"required,min=1,max=300"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// CartLineResponse is a cart line in API responses
type CartLineResponse struct {
	BookID    uuid.UUID         `json:"book_id"`
	Title     string            `json:"title"`
	UnitPrice valueobject.Money `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	LineTotal valueobject.Money `json:"line_total"`
}

// CartResponse is the cart with both purchase and rental totals
type CartResponse struct {
	ID          uuid.UUID          `json:"id"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	Lines       []CartLineResponse `json:"lines"`
	ItemCount   int                `json:"item_count"`
	Total       valueobject.Money  `json:"total"`
	RentalTotal valueobject.Money  `json:"rental_total"`
	Version     int                `json:"version"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ToCartResponse converts the domain cart to a response DTO
func ToCartResponse(c *cart.Cart) *CartResponse {
	lines := make([]CartLineResponse, len(c.Lines))
	for i, line := range c.Lines {
		lines[i] = CartLineResponse{
			BookID:    line.BookID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal(),
		}
	}
	return &CartResponse{
		ID:          c.ID,
		CustomerID:  c.CustomerID,
		Lines:       lines,
		ItemCount:   c.ItemCount(),
		Total:       c.Total(false),
		RentalTotal: c.Total(true),
		Version:     c.Version,
		UpdatedAt:   c.UpdatedAt,
	}
}
