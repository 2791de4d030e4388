package sales

import (
	"context"
	"errors"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSaleNotFound is returned when a sale does not exist or is not visible to the caller
var ErrSaleNotFound = shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")

// QueryService answers read-only questions about the sale ledger
type QueryService struct {
	saleRepo  sales.SaleRepository
	graceDays int
	logger    *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(saleRepo sales.SaleRepository, graceDays int, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{saleRepo: saleRepo, graceDays: graceDays, logger: logger}
}

// List returns a page of the customer's sales. A nil customer lists everyone's.
func (s *QueryService) List(ctx context.Context, customerID *uuid.UUID, filter SaleListFilter) ([]SaleResponse, int64, error) {
	domainFilter := toDomainFilter(customerID, filter)
	list, total, err := s.saleRepo.List(ctx, domainFilter)
	if err != nil {
		s.logger.Error("Failed to list sales", zap.Error(err))
		return nil, 0, err
	}
	responses := make([]SaleResponse, len(list))
	for i, sale := range list {
		responses[i] = ToSaleResponse(sale, s.graceDays)
	}
	return responses, total, nil
}

// Get returns one sale. When customerID is set, sales of other customers are hidden.
func (s *QueryService) Get(ctx context.Context, customerID *uuid.UUID, id string) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	if customerID != nil && sale.Customer.ID != *customerID {
		return nil, ErrSaleNotFound
	}
	resp := ToSaleResponse(sale, s.graceDays)
	return &resp, nil
}

// Summary reports counts per status, revenue of PAID sales and paid sales per method
func (s *QueryService) Summary(ctx context.Context, customerID *uuid.UUID, filter SaleListFilter) (*SummaryResponse, error) {
	summary, err := s.saleRepo.Summary(ctx, toDomainFilter(customerID, filter))
	if err != nil {
		s.logger.Error("Failed to summarise sales", zap.Error(err))
		return nil, err
	}
	byMethod := summary.ByPaymentMethod
	if byMethod == nil {
		byMethod = map[sales.PaymentMethod]int64{}
	}
	return &SummaryResponse{
		PaidCount:       summary.PaidCount,
		PendingCount:    summary.PendingCount,
		ExpiredCount:    summary.ExpiredCount,
		Revenue:         summary.Revenue,
		ByPaymentMethod: byMethod,
	}, nil
}

func toDomainFilter(customerID *uuid.UUID, filter SaleListFilter) sales.SaleFilter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}
	return sales.SaleFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		},
		CustomerID:    customerID,
		Status:        sales.Status(filter.Status),
		Kind:          sales.Kind(filter.Kind),
		PaymentMethod: sales.PaymentMethod(filter.PaymentMethod),
		From:          filter.From,
		To:            filter.To,
	}
}
