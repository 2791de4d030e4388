package models

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanModel is the persistence model for the Loan entity.
type LoanModel struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_loans_user_status,priority:1"`
	BookID     uuid.UUID `gorm:"type:uuid;not null;index"`
	BookTitle  string    `gorm:"type:varchar(300);not null"`
	LoanDate   time.Time `gorm:"not null"`
	DueDate    time.Time `gorm:"not null;index"`
	ReturnDate *time.Time
	Status     string              `gorm:"type:varchar(20);not null;index:idx_loans_user_status,priority:2"`
	LoanValue  decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	FrozenFine decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	FinePaidAt *time.Time
}

// TableName returns the table name for GORM
func (LoanModel) TableName() string {
	return "loans"
}

// ToDomain converts the persistence model to a domain Loan entity.
func (m *LoanModel) ToDomain() *loan.Loan {
	l := &loan.Loan{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		BookID:     m.BookID,
		BookTitle:  m.BookTitle,
		LoanDate:   m.LoanDate,
		DueDate:    m.DueDate,
		ReturnDate: m.ReturnDate,
		Status:     loan.Status(m.Status),
		LoanValue:  toMoney(m.LoanValue, ""),
		FinePaidAt: m.FinePaidAt,
	}
	if m.FrozenFine.Valid {
		fine := toMoney(m.FrozenFine.Decimal, "")
		l.FrozenFine = &fine
	}
	return l
}

// FromDomain populates the persistence model from a domain Loan entity.
func (m *LoanModel) FromDomain(l *loan.Loan) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.UserID = l.UserID
	m.BookID = l.BookID
	m.BookTitle = l.BookTitle
	m.LoanDate = l.LoanDate
	m.DueDate = l.DueDate
	m.ReturnDate = l.ReturnDate
	m.Status = string(l.Status)
	m.LoanValue = l.LoanValue.Amount()
	m.FrozenFine = nullMoney(l.FrozenFine)
	m.FinePaidAt = l.FinePaidAt
}

// LoanModelFromDomain creates a new persistence model from a domain Loan entity.
func LoanModelFromDomain(l *loan.Loan) *LoanModel {
	m := &LoanModel{}
	m.FromDomain(l)
	return m
}

// LoanQuotaModel holds the per-borrower active loan counter
type LoanQuotaModel struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	ActiveLoans int       `gorm:"not null;default:0;check:chk_loan_quotas_non_negative,active_loans >= 0"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LoanQuotaModel) TableName() string {
	return "loan_quotas"
}

func nullMoney(m *valueobject.Money) decimal.NullDecimal {
	if m == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: m.Amount(), Valid: true}
}
