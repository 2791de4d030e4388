package catalog

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// BookListFilter represents filter options for the book list
type BookListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// BookResponse represents a book in API responses
type BookResponse struct {
	ID                uuid.UUID         `json:"id"`
	Title             string            `json:"title"`
	Author            string            `json:"author"`
	ISBN              string            `json:"isbn,omitempty"`
	Price             valueobject.Money `json:"price"`
	RentalPrice       valueobject.Money `json:"rental_price"`
	AvailableQuantity int               `json:"available_quantity"`
	InStock           bool              `json:"in_stock"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ToBookResponse converts a domain Book
func ToBookResponse(b *catalog.Book) BookResponse {
	return BookResponse{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		ISBN:              b.ISBN,
		Price:             b.Price,
		RentalPrice:       b.RentalValue(),
		AvailableQuantity: b.AvailableQuantity,
		InStock:           b.HasStock(1),
		UpdatedAt:         b.UpdatedAt,
	}
}
