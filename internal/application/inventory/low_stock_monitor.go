package inventory

import (
	"context"
	"time"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/inventory"
	"github.com/biblioteca/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultLowStockThreshold is the availability below which a book is reported
const DefaultLowStockThreshold = 5

// StockGauge records the number of books below the threshold
type StockGauge interface {
	RecordLowStock(ctx context.Context, count int)
}

// LowStockMonitor periodically reports books that are running out
type LowStockMonitor struct {
	bookRepo  catalog.BookRepository
	publisher shared.EventPublisher
	gauge     StockGauge
	threshold int
	logger    *zap.Logger
}

// NewLowStockMonitor creates a new LowStockMonitor
func NewLowStockMonitor(bookRepo catalog.BookRepository, publisher shared.EventPublisher, threshold int, logger *zap.Logger) *LowStockMonitor {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockMonitor{
		bookRepo:  bookRepo,
		publisher: publisher,
		threshold: threshold,
		logger:    logger,
	}
}

// WithGauge sets the metric sink for low-stock counts
func (m *LowStockMonitor) WithGauge(gauge StockGauge) *LowStockMonitor {
	m.gauge = gauge
	return m
}

// LowStockStats contains the outcome of a check
type LowStockStats struct {
	Threshold int                      `json:"threshold"`
	Items     []inventory.LowStockItem `json:"items"`
	CheckedAt time.Time                `json:"checked_at"`
}

// Check lists books with available stock strictly below the threshold
func (m *LowStockMonitor) Check(ctx context.Context) (*LowStockStats, error) {
	books, err := m.bookRepo.FindLowStock(ctx, m.threshold)
	if err != nil {
		m.logger.Error("Failed to query low stock", zap.Error(err))
		return nil, err
	}

	stats := &LowStockStats{
		Threshold: m.threshold,
		Items:     make([]inventory.LowStockItem, 0, len(books)),
		CheckedAt: time.Now(),
	}
	for _, b := range books {
		stats.Items = append(stats.Items, inventory.LowStockItem{
			BookID:    b.ID,
			Title:     b.Title,
			Available: b.AvailableQuantity,
		})
	}

	if m.gauge != nil {
		m.gauge.RecordLowStock(ctx, len(stats.Items))
	}
	if len(stats.Items) == 0 {
		m.logger.Debug("No books below stock threshold", zap.Int("threshold", m.threshold))
		return stats, nil
	}

	titles := make([]string, len(stats.Items))
	for i, item := range stats.Items {
		titles[i] = item.Title
	}
	m.logger.Warn("Books below stock threshold",
		zap.Int("threshold", m.threshold),
		zap.Int("count", len(stats.Items)),
		zap.Strings("titles", titles))

	if m.publisher != nil {
		event := inventory.NewLowStockDetectedEvent(m.threshold, stats.Items)
		if err := m.publisher.Publish(ctx, event); err != nil {
			m.logger.Warn("Failed to publish low stock event", zap.Error(err))
		}
	}
	return stats, nil
}
