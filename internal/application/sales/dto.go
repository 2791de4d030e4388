package sales

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SaleListFilter represents filter options for sale listings
type SaleListFilter struct {
	Status        string     `form:"status" binding:"omitempty,oneof=PENDING PAID EXPIRED"`
	Kind          string     `form:"kind" binding:"omitempty,oneof=PURCHASE RENTAL"`
	PaymentMethod string     `form:"payment_method" binding:"omitempty,oneof=CARD BOLETO"`
	From          *time.Time `form:"from" time_format:"2006-01-02"`
	To            *time.Time `form:"to" time_format:"2006-01-02"`
	Page          int        `form:"page" binding:"omitempty,min=1"`
	PageSize      int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SaleLineResponse represents a sale line in API responses
type SaleLineResponse struct {
	BookID    uuid.UUID         `json:"book_id"`
	Title     string            `json:"title"`
	Quantity  int               `json:"quantity"`
	UnitPrice valueobject.Money `json:"unit_price"`
	LineTotal valueobject.Money `json:"line_total"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID            string              `json:"id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	Email         string              `json:"email"`
	TaxID         string              `json:"tax_id"`
	Lines         []SaleLineResponse  `json:"lines"`
	Total         valueobject.Money   `json:"total"`
	PaymentMethod sales.PaymentMethod `json:"payment_method"`
	Kind          sales.Kind          `json:"kind"`
	Status        sales.Status        `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	ExpiredAt     *time.Time          `json:"expired_at,omitempty"`
	ReturnBy      *time.Time          `json:"return_by,omitempty"`
}

// ToSaleResponse converts a domain Sale
func ToSaleResponse(s *sales.Sale, graceDays int) SaleResponse {
	lines := make([]SaleLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = SaleLineResponse{
			BookID:    l.BookID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}
	resp := SaleResponse{
		ID:            s.ID,
		CustomerID:    s.Customer.ID,
		CustomerName:  s.Customer.Name,
		Email:         s.Customer.Email,
		TaxID:         s.Customer.TaxID.String(),
		Lines:         lines,
		Total:         s.Total,
		PaymentMethod: s.PaymentMethod,
		Kind:          s.Kind,
		Status:        s.Status,
		CreatedAt:     s.CreatedAt,
		PaidAt:        s.PaidAt,
		ExpiredAt:     s.ExpiredAt,
	}
	if returnBy := s.ReturnBy(graceDays); !returnBy.IsZero() {
		resp.ReturnBy = &returnBy
	}
	return resp
}

// SummaryResponse aggregates the ledger
type SummaryResponse struct {
	PaidCount       int64                         `json:"paid_count"`
	PendingCount    int64                         `json:"pending_count"`
	ExpiredCount    int64                         `json:"expired_count"`
	Revenue         valueobject.Money             `json:"revenue"`
	ByPaymentMethod map[sales.PaymentMethod]int64 `json:"by_payment_method"`
}
