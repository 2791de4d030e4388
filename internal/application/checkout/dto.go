package checkout

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CheckoutRequest starts payment for the caller's cart or a subset of it
type CheckoutRequest struct {
	CustomerName  string              `json:"customer_name" binding:"required,min=1,max=200"`
	Email         string              `json:"email" binding:"required,email,max=200"`
	Address       string              `json:"address" binding:"max=500"`
	TaxID         string              `json:"tax_id" binding:"required,max=20"`
	PaymentMethod sales.PaymentMethod `json:"payment_method" binding:"required,oneof=CARD BOLETO"`
	Rental        bool                `json:"rental"`
	// BookIDs selects cart lines to pay for; empty means the whole cart
	BookIDs []uuid.UUID `json:"book_ids"`
}

// CheckoutResponse tells the client where to pay
type CheckoutResponse struct {
	SessionID     string              `json:"session_id"`
	RedirectURL   string              `json:"redirect_url"`
	Total         valueobject.Money   `json:"total"`
	Kind          sales.Kind          `json:"kind"`
	PaymentMethod sales.PaymentMethod `json:"payment_method"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
}
