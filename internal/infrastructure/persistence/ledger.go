package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/biblioteca/backend/internal/domain/inventory"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedger implements inventory.Ledger with single conditional UPDATE
// statements, so concurrent reservations can never drive a book below zero.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger creates a new GormLedger
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// Reserve removes qty copies if, and only if, that many are available
func (l *GormLedger) Reserve(ctx context.Context, bookID uuid.UUID, qty int) error {
	if err := inventory.ValidateQuantity(qty); err != nil {
		return err
	}

	result := l.db.WithContext(ctx).
		Model(&models.BookModel{}).
		Where("id = ? AND available_quantity >= ?", bookID, qty).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", qty),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := l.Available(ctx, bookID); err != nil {
			return err
		}
		return shared.ErrInsufficientStock
	}
	return nil
}

// Release adds qty copies back
func (l *GormLedger) Release(ctx context.Context, bookID uuid.UUID, qty int) error {
	if err := inventory.ValidateQuantity(qty); err != nil {
		return err
	}

	result := l.db.WithContext(ctx).
		Model(&models.BookModel{}).
		Where("id = ?", bookID).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", qty),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Available returns the current available quantity of a book
func (l *GormLedger) Available(ctx context.Context, bookID uuid.UUID) (int, error) {
	var model models.BookModel
	if err := l.db.WithContext(ctx).
		Select("id", "available_quantity").
		First(&model, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return model.AvailableQuantity, nil
}

// Ensure GormLedger implements Ledger
var _ inventory.Ledger = (*GormLedger)(nil)
