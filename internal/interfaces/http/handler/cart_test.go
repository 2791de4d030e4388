package handler

import (
	"net/http"
	"testing"

	cartapp "github.com/biblioteca/backend/internal/application/cart"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCartRouter(svc CartService, identity gin.HandlerFunc) *gin.Engine {
	h := NewCartHandler(svc)
	router := gin.New()
	router.Use(identity)
	router.GET("/cart", h.GetCart)
	router.POST("/cart/lines", h.AddLine)
	router.DELETE("/cart/lines", h.RemoveLine)
	router.DELETE("/cart", h.ClearCart)
	return router
}

func sampleCart(customer uuid.UUID) *cartapp.CartResponse {
	return &cartapp.CartResponse{
		ID:          uuid.New(),
		CustomerID:  customer,
		ItemCount:   2,
		Total:       valueobject.MustMoneyBRL("100.00"),
		RentalTotal: valueobject.MustMoneyBRL("10.00"),
	}
}

func TestCartHandler_GetCart(t *testing.T) {
	customer := uuid.New()
	svc := new(mockCartService)
	svc.On("Get", mock.Anything, customer).Return(sampleCart(customer), nil)

	w := perform(newCartRouter(svc, as(customer)), http.MethodGet, "/cart", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, customer.String(), data["customer_id"])
	assert.EqualValues(t, 2, data["item_count"])
	svc.AssertExpectations(t)
}

func TestCartHandler_RequiresCustomer(t *testing.T) {
	svc := new(mockCartService)
	w := perform(newCartRouter(svc, anonymous), http.MethodGet, "/cart", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCartHandler_AddLine(t *testing.T) {
	customer := uuid.New()
	bookID := uuid.New()

	t.Run("adds the book", func(t *testing.T) {
		svc := new(mockCartService)
		svc.On("AddBook", mock.Anything, customer, cartapp.AddBookRequest{BookID: bookID, Quantity: 2}).
			Return(sampleCart(customer), nil)

		w := perform(newCartRouter(svc, as(customer)), http.MethodPost, "/cart/lines",
			map[string]any{"book_id": bookID, "quantity": 2})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects zero quantity before the service", func(t *testing.T) {
		svc := new(mockCartService)
		w := perform(newCartRouter(svc, as(customer)), http.MethodPost, "/cart/lines",
			map[string]any{"book_id": bookID, "quantity": 0})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCodeOf(t, w))
		svc.AssertNotCalled(t, "AddBook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient stock is unprocessable", func(t *testing.T) {
		svc := new(mockCartService)
		svc.On("AddBook", mock.Anything, customer, mock.Anything).
			Return(nil, shared.NewDomainError("INSUFFICIENT_STOCK", "Only 1 copy available"))

		w := perform(newCartRouter(svc, as(customer)), http.MethodPost, "/cart/lines",
			map[string]any{"book_id": bookID, "quantity": 5})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INSUFFICIENT_STOCK", errorCodeOf(t, w))
	})

	t.Run("unknown book", func(t *testing.T) {
		svc := new(mockCartService)
		svc.On("AddBook", mock.Anything, customer, mock.Anything).
			Return(nil, shared.NewDomainError("BOOK_NOT_FOUND", "Book not found"))

		w := perform(newCartRouter(svc, as(customer)), http.MethodPost, "/cart/lines",
			map[string]any{"book_id": bookID, "quantity": 1})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCartHandler_RemoveLine(t *testing.T) {
	customer := uuid.New()
	svc := new(mockCartService)
	svc.On("RemoveBook", mock.Anything, customer, cartapp.RemoveBookRequest{Title: "Dom Casmurro", Quantity: 1}).
		Return(sampleCart(customer), nil)

	w := perform(newCartRouter(svc, as(customer)), http.MethodDelete, "/cart/lines",
		map[string]any{"title": "Dom Casmurro", "quantity": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCartHandler_ClearCart(t *testing.T) {
	customer := uuid.New()
	svc := new(mockCartService)
	svc.On("Clear", mock.Anything, customer).Return(nil)

	w := perform(newCartRouter(svc, as(customer)), http.MethodDelete, "/cart", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}
