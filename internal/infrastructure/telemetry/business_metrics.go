package telemetry

import (
	"context"
	"errors"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics counts the sale lifecycle and tracks stock health.
// It subscribes to sale events, so services never call it directly.
type BusinessMetrics struct {
	logger *zap.Logger

	salesCreated *Counter
	salesPaid    *Counter
	salesExpired *Counter
	revenue      *Counter
	lowStock     *Gauge
}

// NewBusinessMetrics creates the business instruments on meter.
func NewBusinessMetrics(meter metric.Meter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}

	var err error
	if bm.salesCreated, err = NewCounter(meter,
		"biblioteca_sales_created_total", "Checkout sessions opened", "{sales}"); err != nil {
		return nil, err
	}
	if bm.salesPaid, err = NewCounter(meter,
		"biblioteca_sales_paid_total", "Sales settled as paid", "{sales}"); err != nil {
		return nil, err
	}
	if bm.salesExpired, err = NewCounter(meter,
		"biblioteca_sales_expired_total", "Abandoned sales expired", "{sales}"); err != nil {
		return nil, err
	}
	if bm.revenue, err = NewCounter(meter,
		"biblioteca_revenue_total", "Settled revenue in centavos", "{centavos}"); err != nil {
		return nil, err
	}
	if bm.lowStock, err = NewGauge(meter,
		"biblioteca_low_stock_books", "Books with availability below the alert threshold", "{books}"); err != nil {
		return nil, err
	}

	return bm, nil
}

// EventTypes implements shared.EventHandler
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		sales.EventTypeSaleCreated,
		sales.EventTypeSalePaid,
		sales.EventTypeSaleExpired,
	}
}

// Handle implements shared.EventHandler
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.SaleCreatedEvent:
		bm.salesCreated.Inc(ctx,
			AttrPaymentMethod.String(string(e.PaymentMethod)),
			AttrSaleKind.String(string(e.Kind)),
		)
	case *sales.SalePaidEvent:
		attrs := []attribute.KeyValue{
			AttrPaymentMethod.String(string(e.PaymentMethod)),
			AttrSaleKind.String(string(e.Kind)),
		}
		bm.salesPaid.Inc(ctx, attrs...)
		minor, err := e.Total.ToMinorUnits()
		if err != nil {
			bm.logger.Warn("Skipping revenue for unconvertible total",
				zap.String("sale_id", e.SaleID),
				zap.Error(err),
			)
			return nil
		}
		bm.revenue.Add(ctx, minor, attrs...)
	case *sales.SaleExpiredEvent:
		bm.salesExpired.Inc(ctx)
	}
	return nil
}

// RecordLowStock records how many books are below the alert threshold.
func (bm *BusinessMetrics) RecordLowStock(ctx context.Context, count int) {
	bm.lowStock.Record(ctx, int64(count))
}
