package handler

import (
	"context"

	catalogapp "github.com/biblioteca/backend/internal/application/catalog"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookCatalog reads the book catalog
type BookCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.BookResponse, error)
	List(ctx context.Context, filter catalogapp.BookListFilter) ([]catalogapp.BookResponse, int64, error)
}

// BookHandler serves the catalog with live stock
type BookHandler struct {
	BaseHandler
	catalog BookCatalog
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(catalog BookCatalog) *BookHandler {
	return &BookHandler{catalog: catalog}
}

// ListBooks godoc
// @ID           listBooks
// @Summary      List books
// @Tags         books
// @Produce      json
// @Param        search    query string false "Title, author or ISBN"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        order_by  query string false "title, author, price or available_quantity"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} APIResponse[[]catalogapp.BookResponse]
// @Router       /books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var filter catalogapp.BookListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	books, total, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, books, total, filter.Page, filter.PageSize)
}

// GetBook godoc
// @ID           getBook
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        id path string true "Book id"
// @Success      200 {object} APIResponse[catalogapp.BookResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	book, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, book)
}
