package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service issues and serves the invoice and receipt of paid sales.
// Document failures are logged and retried later; they never touch the sale.
type Service struct {
	saleRepo    sales.SaleRepository
	generator   Generator
	store       Store
	idempotency shared.IdempotencyStore
	lockTTL     time.Duration
	logger      *zap.Logger
}

// ServiceDeps holds the dependencies of Service
type ServiceDeps struct {
	SaleRepo    sales.SaleRepository
	Generator   Generator
	Store       Store
	Idempotency shared.IdempotencyStore
	Logger      *zap.Logger
}

// NewService creates a new document Service
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		saleRepo:    deps.SaleRepo,
		generator:   deps.Generator,
		store:       deps.Store,
		idempotency: deps.Idempotency,
		lockTTL:     10 * time.Minute,
		logger:      logger,
	}
}

// IssueAll generates every missing document of a paid sale
func (s *Service) IssueAll(ctx context.Context, sale *sales.Sale) error {
	var errs []error
	for _, kind := range Kinds {
		if err := s.Issue(ctx, sale, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Issue generates and stores one document unless it already exists
func (s *Service) Issue(ctx context.Context, sale *sales.Sale, kind Kind) error {
	if sale.Status != sales.StatusPaid {
		return ErrDocumentNotIssued
	}
	key := Key(sale.ID, kind)
	log := s.logger.With(zap.String("sale_id", sale.ID), zap.String("kind", string(kind)))

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		log.Error("Failed to check stored document", zap.Error(err))
		return err
	}
	if exists {
		log.Debug("Document already issued")
		return nil
	}

	lockKey := "document:" + key
	if s.idempotency != nil {
		first, err := s.idempotency.MarkProcessed(ctx, lockKey, s.lockTTL)
		if err != nil {
			log.Warn("Idempotency store unavailable, generating without lock", zap.Error(err))
		} else if !first {
			log.Debug("Document generation already in progress")
			return nil
		}
	}

	data, err := s.generator.Generate(ctx, sale, kind)
	if err == nil {
		err = s.store.Put(ctx, key, data, ContentType)
	}
	if err != nil {
		s.release(ctx, lockKey)
		log.Error("Failed to issue document", zap.Error(err))
		return fmt.Errorf("issue %s for sale %s: %w", kind, sale.ID, err)
	}

	log.Info("Document issued", zap.Int("bytes", len(data)))
	return nil
}

// Download opens a document of a paid sale, generating it on demand when the
// background issue has not happened yet. A non-nil customerID restricts access
// to that customer's sales.
func (s *Service) Download(ctx context.Context, customerID *uuid.UUID, saleID string, kind Kind) (io.ReadCloser, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if customerID != nil && sale.Customer.ID != *customerID {
		return nil, ErrDocumentNotFound
	}
	if sale.Status != sales.StatusPaid {
		return nil, ErrDocumentNotIssued
	}

	key := Key(sale.ID, kind)
	body, err := s.store.Open(ctx, key)
	if err == nil {
		return body, nil
	}
	if !errors.Is(err, ErrObjectMissing) {
		return nil, err
	}

	data, err := s.generator.Generate(ctx, sale, kind)
	if err != nil {
		s.logger.Error("On-demand document generation failed",
			zap.String("sale_id", sale.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, err
	}
	if err := s.store.Put(ctx, key, data, ContentType); err != nil {
		s.logger.Warn("Failed to store generated document", zap.String("sale_id", sale.ID), zap.Error(err))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Service) release(ctx context.Context, key string) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Forget(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to release document lock", zap.String("key", key), zap.Error(err))
	}
}
