package handler

import (
	"context"

	salesapp "github.com/biblioteca/backend/internal/application/sales"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SaleQueries reads the sale ledger. A nil customerID reads across customers.
type SaleQueries interface {
	List(ctx context.Context, customerID *uuid.UUID, filter salesapp.SaleListFilter) ([]salesapp.SaleResponse, int64, error)
	Get(ctx context.Context, customerID *uuid.UUID, id string) (*salesapp.SaleResponse, error)
	Summary(ctx context.Context, customerID *uuid.UUID, filter salesapp.SaleListFilter) (*salesapp.SummaryResponse, error)
}

// SalesHandler exposes the sale ledger. Customers see their own sales; staff
// see everyone's.
type SalesHandler struct {
	BaseHandler
	queries SaleQueries
}

// NewSalesHandler creates a new SalesHandler
func NewSalesHandler(queries SaleQueries) *SalesHandler {
	return &SalesHandler{queries: queries}
}

// ListSales godoc
// @ID           listSales
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Param        status         query string false "PENDING, PAID or EXPIRED"
// @Param        kind           query string false "PURCHASE or RENTAL"
// @Param        payment_method query string false "CARD or BOLETO"
// @Param        from           query string false "Created on or after (YYYY-MM-DD)"
// @Param        to             query string false "Created before (YYYY-MM-DD)"
// @Param        page           query int    false "Page number" default(1)
// @Param        page_size      query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]salesapp.SaleResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /sales [get]
func (h *SalesHandler) ListSales(c *gin.Context) {
	scope, ok := h.customerScope(c)
	if !ok {
		return
	}

	var filter salesapp.SaleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	list, total, err := h.queries.List(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, list, total, filter.Page, filter.PageSize)
}

// GetSale godoc
// @ID           getSale
// @Summary      Get a sale with its lines
// @Description  For rentals the response carries return_by, the loan due date plus the grace period
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale id (the checkout session id)"
// @Success      200 {object} APIResponse[salesapp.SaleResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /sales/{id} [get]
func (h *SalesHandler) GetSale(c *gin.Context) {
	scope, ok := h.customerScope(c)
	if !ok {
		return
	}

	sale, err := h.queries.Get(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// GetSummary godoc
// @ID           getSalesSummary
// @Summary      Sale counts and paid revenue
// @Tags         sales
// @Produce      json
// @Success      200 {object} APIResponse[salesapp.SummaryResponse]
// @Router       /sales/summary [get]
func (h *SalesHandler) GetSummary(c *gin.Context) {
	scope, ok := h.customerScope(c)
	if !ok {
		return
	}

	var filter salesapp.SaleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	summary, err := h.queries.Summary(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
