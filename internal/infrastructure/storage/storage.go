package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/biblioteca/backend/internal/application/document"
	infraconfig "github.com/biblioteca/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Storage drivers
const (
	DriverS3         = "s3"
	DriverFileSystem = "filesystem"
)

// New builds the document store selected by cfg.Driver. The S3 bucket is
// created when missing.
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (document.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("storage")

	switch strings.ToLower(cfg.Driver) {
	case DriverS3:
		store, err := NewS3DocumentStore(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("Using S3 document storage", zap.String("bucket", store.Bucket()))
		return store, nil
	case DriverFileSystem, "":
		store, err := NewFileSystemDocumentStore(cfg.BaseDir, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using filesystem document storage", zap.String("base_dir", store.BaseDir()))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
