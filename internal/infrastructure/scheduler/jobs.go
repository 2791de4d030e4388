package scheduler

import (
	"context"
	"time"

	"github.com/biblioteca/backend/internal/application/inventory"
	"github.com/biblioteca/backend/internal/application/reconciliation"
	"go.uber.org/zap"
)

// Job names
const (
	JobExpireAbandonedSales = "expire-abandoned-sales"
	JobLowStockCheck        = "low-stock-check"
)

// AbandonedSaleSweeper expires checkouts left unpaid past their TTL
type AbandonedSaleSweeper interface {
	ExpireAbandoned(ctx context.Context) (*reconciliation.SweepStats, error)
}

// LowStockChecker reports books running out of stock
type LowStockChecker interface {
	Check(ctx context.Context) (*inventory.LowStockStats, error)
}

// NewExpirationJob sweeps abandoned checkouts every interval
func NewExpirationJob(sweeper AbandonedSaleSweeper, interval time.Duration, log *zap.Logger) Job {
	if log == nil {
		log = zap.NewNop()
	}
	return Job{
		Name:       JobExpireAbandonedSales,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			stats, err := sweeper.ExpireAbandoned(ctx)
			if err != nil {
				return err
			}
			if stats.Scanned > 0 {
				log.Info("Abandoned checkout sweep finished",
					zap.Int("scanned", stats.Scanned),
					zap.Int("expired", stats.Expired),
					zap.Int("reconciled", stats.Reconciled),
					zap.Int("awaiting", stats.Awaiting),
					zap.Int("failed", stats.Failed),
				)
			}
			return nil
		},
	}
}

// NewLowStockJob checks stock levels every interval
func NewLowStockJob(checker LowStockChecker, interval time.Duration, log *zap.Logger) Job {
	if log == nil {
		log = zap.NewNop()
	}
	return Job{
		Name:     JobLowStockCheck,
		Interval: interval,
		Run: func(ctx context.Context) error {
			stats, err := checker.Check(ctx)
			if err != nil {
				return err
			}
			log.Debug("Low stock check finished",
				zap.Int("threshold", stats.Threshold),
				zap.Int("low_stock_books", len(stats.Items)),
			)
			return nil
		},
	}
}
