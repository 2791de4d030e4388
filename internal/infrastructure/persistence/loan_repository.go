package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLoanRepository implements loan.LoanRepository using GORM
type GormLoanRepository struct {
	db *gorm.DB
}

// NewGormLoanRepository creates a new GormLoanRepository
func NewGormLoanRepository(db *gorm.DB) *GormLoanRepository {
	return &GormLoanRepository{db: db}
}

// Create inserts a new loan
func (r *GormLoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	return r.db.WithContext(ctx).Create(models.LoanModelFromDomain(l)).Error
}

// Save writes the mutable columns of a loan while its stored status still
// matches expected
func (r *GormLoanRepository) Save(ctx context.Context, l *loan.Loan, expected loan.Status) error {
	model := models.LoanModelFromDomain(l)
	result := r.db.WithContext(ctx).
		Model(&models.LoanModel{}).
		Where("id = ? AND status = ?", l.ID, string(expected)).
		Updates(map[string]any{
			"status":       model.Status,
			"return_date":  model.ReturnDate,
			"frozen_fine":  model.FrozenFine,
			"fine_paid_at": model.FinePaidAt,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.LoanModel{}).Where("id = ?", l.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrentModification
	}
	return nil
}

// FindByID finds a loan by its ID
func (r *GormLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	var model models.LoanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser returns all of a borrower's loans, newest first
func (r *GormLoanRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*loan.Loan, error) {
	var rows []models.LoanModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("loan_date DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLoans(rows), nil
}

// FindOverdue returns active loans whose due date falls before asOf's calendar day
func (r *GormLoanRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]*loan.Loan, error) {
	var rows []models.LoanModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", string(loan.StatusActive), startOfDay(asOf)).
		Order("due_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLoans(rows), nil
}

// snapshotRow is the single-row result of the borrower snapshot query
type snapshotRow struct {
	ActiveLoans  int64
	OverdueLoans int64
	UnpaidFines  decimal.NullDecimal
}

// Snapshot counts the borrower's active and overdue loans and sums their
// unpaid frozen fines in one statement
func (r *GormLoanRepository) Snapshot(ctx context.Context, userID uuid.UUID, asOf time.Time) (loan.BorrowerSnapshot, error) {
	var row snapshotRow
	err := r.db.WithContext(ctx).
		Model(&models.LoanModel{}).
		Select(
			"COUNT(CASE WHEN status = ? THEN 1 END) AS active_loans, "+
				"COUNT(CASE WHEN status = ? AND due_date < ? THEN 1 END) AS overdue_loans, "+
				"SUM(CASE WHEN fine_paid_at IS NULL AND frozen_fine > 0 THEN frozen_fine END) AS unpaid_fines",
			string(loan.StatusActive), string(loan.StatusActive), startOfDay(asOf),
		).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return loan.BorrowerSnapshot{}, err
	}

	unpaid := valueobject.Zero(valueobject.DefaultCurrency)
	if row.UnpaidFines.Valid {
		unpaid = valueobject.NewMoneyBRL(row.UnpaidFines.Decimal)
	}
	return loan.BorrowerSnapshot{
		ActiveLoans:  int(row.ActiveLoans),
		OverdueLoans: int(row.OverdueLoans),
		UnpaidFines:  unpaid,
	}, nil
}

// startOfDay truncates t to midnight in its own location
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func toLoans(rows []models.LoanModel) []*loan.Loan {
	result := make([]*loan.Loan, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result
}

// GormQuotaRepository implements loan.QuotaRepository with a per-borrower
// counter row updated by compare-and-increment
type GormQuotaRepository struct {
	db *gorm.DB
}

// NewGormQuotaRepository creates a new GormQuotaRepository
func NewGormQuotaRepository(db *gorm.DB) *GormQuotaRepository {
	return &GormQuotaRepository{db: db}
}

// Acquire takes one loan slot if the borrower holds fewer than max
func (r *GormQuotaRepository) Acquire(ctx context.Context, userID uuid.UUID, max int) (bool, error) {
	now := time.Now()
	if err := r.ensureRow(ctx, userID, now); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.LoanQuotaModel{}).
		Where("user_id = ? AND active_loans < ?", userID, max).
		Updates(map[string]any{
			"active_loans": gorm.Expr("active_loans + 1"),
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release gives one loan slot back; the counter never drops below zero
func (r *GormQuotaRepository) Release(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LoanQuotaModel{}).
		Where("user_id = ? AND active_loans > 0", userID).
		Updates(map[string]any{
			"active_loans": gorm.Expr("active_loans - 1"),
			"updated_at":   time.Now(),
		}).Error
}

func (r *GormQuotaRepository) ensureRow(ctx context.Context, userID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.LoanQuotaModel{UserID: userID, UpdatedAt: now}).Error
}

// Ensure the loan repositories implement their interfaces
var (
	_ loan.LoanRepository  = (*GormLoanRepository)(nil)
	_ loan.QuotaRepository = (*GormQuotaRepository)(nil)
)
