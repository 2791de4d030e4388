package handler

import (
	"context"

	checkoutapp "github.com/biblioteca/backend/internal/application/checkout"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutBroker opens payment sessions for the caller's cart
type CheckoutBroker interface {
	Checkout(ctx context.Context, customerID uuid.UUID, req checkoutapp.CheckoutRequest) (*checkoutapp.CheckoutResponse, error)
}

// CheckoutHandler handles checkout requests
type CheckoutHandler struct {
	BaseHandler
	broker CheckoutBroker
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(broker CheckoutBroker) *CheckoutHandler {
	return &CheckoutHandler{broker: broker}
}

// Checkout godoc
// @ID           createCheckout
// @Summary      Start a payment session
// @Description  Opens a Stripe Checkout session for the cart (or the selected book_ids) and records a PENDING sale keyed by the session id.
// @Description  The browser must be sent to redirect_url to pay.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body checkoutapp.CheckoutRequest true "Buyer details, payment method and purchase or rental"
// @Success      201 {object} APIResponse[checkoutapp.CheckoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Empty cart or invalid buyer data"
// @Failure      429 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse "Payment provider rejected the session"
// @Failure      503 {object} ErrorResponse "Session created but the sale could not be recorded"
// @Router       /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	customerID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	var req checkoutapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.broker.Checkout(c.Request.Context(), customerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
