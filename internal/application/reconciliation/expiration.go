package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"go.uber.org/zap"
)

// ExpirationConfig controls the abandoned-checkout sweep
type ExpirationConfig struct {
	// TTL is how long a sale may stay PENDING before it is expired
	TTL time.Duration
	// BatchSize caps the sales handled per sweep
	BatchSize int
}

// DefaultExpirationConfig returns the default sweep configuration
func DefaultExpirationConfig() ExpirationConfig {
	return ExpirationConfig{
		TTL:       24 * time.Hour,
		BatchSize: 100,
	}
}

// SweepStats summarises a sweep
type SweepStats struct {
	Scanned    int `json:"scanned"`
	Expired    int `json:"expired"`
	Reconciled int `json:"reconciled"`
	Awaiting   int `json:"awaiting"`
	Failed     int `json:"failed"`
}

// ExpirationService expires PENDING sales whose checkout was abandoned
type ExpirationService struct {
	saleRepo sales.SaleRepository
	service  *Service
	config   ExpirationConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewExpirationService creates a new ExpirationService
func NewExpirationService(saleRepo sales.SaleRepository, service *Service, config ExpirationConfig, logger *zap.Logger) *ExpirationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultExpirationConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &ExpirationService{
		saleRepo: saleRepo,
		service:  service,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// ExpireAbandoned expires the provider session first and the sale second.
// A session the provider reports as paid was settled while nobody was
// listening, so it is reconciled instead. A session completed with a delayed
// method that has not cleared stays PENDING until the provider's async webhook
// settles it.
func (e *ExpirationService) ExpireAbandoned(ctx context.Context) (*SweepStats, error) {
	cutoff := e.now().Add(-e.config.TTL)
	pending, err := e.saleRepo.FindPendingCreatedBefore(ctx, cutoff, e.config.BatchSize)
	if err != nil {
		e.logger.Error("Failed to list abandoned sales", zap.Error(err))
		return nil, err
	}

	stats := &SweepStats{Scanned: len(pending)}
	for _, sale := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		log := e.logger.With(zap.String("sale_id", sale.ID))

		err := e.service.provider.ExpireSession(ctx, sale.ID)
		switch {
		case errors.Is(err, sales.ErrSessionCompleted):
			if _, err := e.service.Reconcile(ctx, sale.ID, TriggerSweep); err != nil {
				log.Warn("Completed session could not be reconciled", zap.Error(err))
				stats.Failed++
				continue
			}
			stats.Reconciled++
		case errors.Is(err, sales.ErrSessionAwaitingPayment):
			log.Debug("Session awaits delayed payment, leaving sale pending")
			stats.Awaiting++
		case err != nil:
			log.Warn("Failed to expire provider session", zap.Error(err))
			stats.Failed++
		default:
			changed, err := e.service.Expire(ctx, sale.ID)
			if err != nil {
				log.Warn("Failed to expire sale", zap.Error(err))
				stats.Failed++
				continue
			}
			if changed {
				stats.Expired++
			}
		}
	}

	e.logger.Info("Abandoned checkout sweep finished",
		zap.Int("scanned", stats.Scanned),
		zap.Int("expired", stats.Expired),
		zap.Int("reconciled", stats.Reconciled),
		zap.Int("awaiting", stats.Awaiting),
		zap.Int("failed", stats.Failed))
	return stats, nil
}
