package handler

import (
	"context"

	cartapp "github.com/biblioteca/backend/internal/application/cart"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartService is the cart use-case surface the handler needs
type CartService interface {
	Get(ctx context.Context, customerID uuid.UUID) (*cartapp.CartResponse, error)
	AddBook(ctx context.Context, customerID uuid.UUID, req cartapp.AddBookRequest) (*cartapp.CartResponse, error)
	RemoveBook(ctx context.Context, customerID uuid.UUID, req cartapp.RemoveBookRequest) (*cartapp.CartResponse, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

// CartHandler handles the caller's shopping cart
type CartHandler struct {
	BaseHandler
	cartService CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart godoc
// @ID           getCart
// @Summary      Get the caller's cart
// @Description  Returns the cart with purchase and rental totals, creating an empty one on first access
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	customerID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	resp, err := h.cartService.Get(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddLine godoc
// @ID           addCartLine
// @Summary      Add a book to the cart
// @Description  Adds quantity copies, merging with an existing line for the same title. Stock is checked but not reserved.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body cartapp.AddBookRequest true "Book and quantity"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Insufficient stock"
// @Router       /cart/lines [post]
func (h *CartHandler) AddLine(c *gin.Context) {
	customerID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	var req cartapp.AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.cartService.AddBook(c.Request.Context(), customerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveLine godoc
// @ID           removeCartLine
// @Summary      Remove copies of a title from the cart
// @Description  Decrements the line matched by title; the line disappears when its quantity reaches zero
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body cartapp.RemoveBookRequest true "Title and quantity"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cart/lines [delete]
func (h *CartHandler) RemoveLine(c *gin.Context) {
	customerID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	var req cartapp.RemoveBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.cartService.RemoveBook(c.Request.Context(), customerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ClearCart godoc
// @ID           clearCart
// @Summary      Empty the cart
// @Tags         cart
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Router       /cart [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	customerID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	if err := h.cartService.Clear(c.Request.Context(), customerID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
