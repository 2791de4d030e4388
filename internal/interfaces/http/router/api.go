package router

import (
	"github.com/biblioteca/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers of the bookstore API
type Handlers struct {
	Health   *handler.HealthHandler
	Books    *handler.BookHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Payments *handler.PaymentHandler
	Sales    *handler.SalesHandler
	Docs     *handler.DocumentHandler
	Loans    *handler.LoanHandler
}

// Guards are the access-control middleware the API routes are wrapped in
type Guards struct {
	// Auth validates the bearer token and loads the caller identity
	Auth gin.HandlerFunc
	// Staff rejects callers without the staff role
	Staff gin.HandlerFunc
	// CheckoutLimit throttles checkout attempts; nil disables it
	CheckoutLimit gin.HandlerFunc
}

// RegisterAPI wires every bookstore route onto r. Catalog, health and the
// Stripe callbacks are public; everything else needs a bearer token.
func RegisterAPI(r *Router, h Handlers, g Guards) *Router {
	system := NewDomainGroup("system", "").Public().
		GET("/health", h.Health.Health)

	catalog := NewDomainGroup("catalog", "/books").Public().
		GET("", h.Books.ListBooks).
		GET("/:id", h.Books.GetBook)

	payments := NewDomainGroup("payments", "/payments/stripe").Public().
		GET("/success", h.Payments.StripeSuccess).
		POST("/webhook", h.Payments.StripeWebhook)

	cart := NewDomainGroup("cart", "/cart").Use(g.Auth).
		GET("", h.Cart.GetCart).
		DELETE("", h.Cart.ClearCart).
		POST("/lines", h.Cart.AddLine).
		DELETE("/lines", h.Cart.RemoveLine)

	checkoutHandlers := []gin.HandlerFunc{h.Checkout.Checkout}
	if g.CheckoutLimit != nil {
		checkoutHandlers = append([]gin.HandlerFunc{g.CheckoutLimit}, checkoutHandlers...)
	}
	checkout := NewDomainGroup("checkout", "/checkout").Use(g.Auth).
		POST("", checkoutHandlers...)

	sales := NewDomainGroup("sales", "/sales").Use(g.Auth).
		GET("", h.Sales.ListSales).
		GET("/summary", h.Sales.GetSummary).
		GET("/:id", h.Sales.GetSale)

	documents := NewDomainGroup("documents", "/documents").Use(g.Auth).
		GET("/:saleID/:kind", h.Docs.Download)

	loans := NewDomainGroup("loans", "/loans").Use(g.Auth).
		GET("", h.Loans.ListLoans).
		POST("", h.Loans.CreateLoan).
		GET("/eligibility", h.Loans.GetEligibility).
		GET("/fines", h.Loans.GetFineBalance).
		GET("/overdue", g.Staff, h.Loans.ListOverdue).
		GET("/:id/fine", h.Loans.GetFine).
		POST("/:id/return", h.Loans.ReturnLoan).
		POST("/:id/settle", h.Loans.SettleFine)

	return r.Register(system).
		Register(catalog).
		Register(payments).
		Register(cart).
		Register(checkout).
		Register(sales).
		Register(documents).
		Register(loans)
}
