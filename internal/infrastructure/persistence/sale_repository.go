package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSaleRepository implements sales.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// Create inserts a sale together with its lines
func (r *GormSaleRepository) Create(ctx context.Context, sale *sales.Sale) error {
	if err := r.db.WithContext(ctx).Create(models.SaleModelFromDomain(sale)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a sale by its payment session ID
func (r *GormSaleRepository) FindByID(ctx context.Context, id string) (*sales.Sale, error) {
	var model models.SaleModel
	if err := r.preloadLines(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// TransitionStatus moves a sale from one status to another in a single
// conditional UPDATE. The matching timestamp column is set with the move.
func (r *GormSaleRepository) TransitionStatus(ctx context.Context, id string, from, to sales.Status, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":  string(to),
		"version": gorm.Expr("version + 1"),
	}
	switch to {
	case sales.StatusPaid:
		updates["paid_at"] = at
	case sales.StatusExpired:
		updates["expired_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindPendingCreatedBefore returns the oldest pending sales created before cutoff
func (r *GormSaleRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*sales.Sale, error) {
	query := r.preloadLines(r.db.WithContext(ctx)).
		Where("status = ? AND created_at < ?", string(sales.StatusPending), cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.SaleModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toSales(rows), nil
}

// List returns a page of sales matching the filter and the total count
func (r *GormSaleRepository) List(ctx context.Context, filter sales.SaleFilter) ([]*sales.Sale, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SaleModel{}), filter).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SaleModel
	if err := applyPaging(r.preloadLines(query), filter.Filter, SaleSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toSales(rows), total, nil
}

// statusAggregate is one row of the per-status summary query
type statusAggregate struct {
	Status string
	Count  int64
	Total  decimal.NullDecimal
}

// methodAggregate is one row of the per-payment-method summary query
type methodAggregate struct {
	PaymentMethod string
	Count         int64
}

// Summary aggregates counts per status and the revenue of paid sales
func (r *GormSaleRepository) Summary(ctx context.Context, filter sales.SaleFilter) (*sales.Summary, error) {
	base := r.applyFilter(r.db.WithContext(ctx).Model(&models.SaleModel{}), filter).Session(&gorm.Session{})

	var byStatus []statusAggregate
	if err := base.
		Select("status, COUNT(*) AS count, SUM(total) AS total").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}

	summary := &sales.Summary{
		Revenue:         valueobject.Zero(valueobject.DefaultCurrency),
		ByPaymentMethod: make(map[sales.PaymentMethod]int64),
	}
	for _, row := range byStatus {
		switch sales.Status(row.Status) {
		case sales.StatusPaid:
			summary.PaidCount = row.Count
			if row.Total.Valid {
				summary.Revenue = valueobject.NewMoneyBRL(row.Total.Decimal)
			}
		case sales.StatusPending:
			summary.PendingCount = row.Count
		case sales.StatusExpired:
			summary.ExpiredCount = row.Count
		}
	}

	var byMethod []methodAggregate
	if err := base.
		Where("status = ?", string(sales.StatusPaid)).
		Select("payment_method, COUNT(*) AS count").
		Group("payment_method").
		Scan(&byMethod).Error; err != nil {
		return nil, err
	}
	for _, row := range byMethod {
		summary.ByPaymentMethod[sales.PaymentMethod(row.PaymentMethod)] = row.Count
	}

	return summary, nil
}

// applyFilter applies sale filter conditions to a query
func (r *GormSaleRepository) applyFilter(query *gorm.DB, filter sales.SaleFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", string(filter.Kind))
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", string(filter.PaymentMethod))
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

func (r *GormSaleRepository) preloadLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func toSales(rows []models.SaleModel) []*sales.Sale {
	result := make([]*sales.Sale, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result
}

// Ensure GormSaleRepository implements SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)
