package document

import (
	"context"
	"fmt"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SalePaidHandler issues the documents of a sale once it is paid
type SalePaidHandler struct {
	saleRepo sales.SaleRepository
	service  *Service
	logger   *zap.Logger
}

// NewSalePaidHandler creates a new SalePaidHandler
func NewSalePaidHandler(saleRepo sales.SaleRepository, service *Service, logger *zap.Logger) *SalePaidHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalePaidHandler{saleRepo: saleRepo, service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *SalePaidHandler) EventTypes() []string {
	return []string{sales.EventTypeSalePaid}
}

// Handle processes a SalePaidEvent. Generation failures are logged only;
// the download endpoint regenerates missing documents on demand.
func (h *SalePaidHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	paid, ok := event.(*sales.SalePaidEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			sales.EventTypeSalePaid, event.EventType())
	}

	sale, err := h.saleRepo.FindByID(ctx, paid.SaleID)
	if err != nil {
		h.logger.Error("Failed to load paid sale for documents",
			zap.String("sale_id", paid.SaleID),
			zap.Error(err))
		return nil
	}
	if err := h.service.IssueAll(ctx, sale); err != nil {
		h.logger.Error("Document issue incomplete",
			zap.String("sale_id", paid.SaleID),
			zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*SalePaidHandler)(nil)
