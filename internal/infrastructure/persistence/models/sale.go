package models

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate root.
// The primary key is the payment provider's session id.
type SaleModel struct {
	ID              string          `gorm:"type:varchar(255);primaryKey"`
	Version         int             `gorm:"not null;default:1"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerName    string          `gorm:"type:varchar(200);not null"`
	CustomerTaxID   string          `gorm:"column:customer_tax_id;type:varchar(11);not null"`
	CustomerEmail   string          `gorm:"type:varchar(254)"`
	CustomerAddress string          `gorm:"type:varchar(500)"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'BRL'"`
	PaymentMethod   string          `gorm:"type:varchar(20);not null;index"`
	Kind            string          `gorm:"type:varchar(20);not null"`
	Status          string          `gorm:"type:varchar(20);not null;index:idx_sales_status_created,priority:1"`
	CreatedAt       time.Time       `gorm:"not null;index:idx_sales_status_created,priority:2"`
	PaidAt          *time.Time
	ExpiredAt       *time.Time
	Lines           []SaleLineModel `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// SaleLineModel is one immutable line of a sale
type SaleLineModel struct {
	SaleID    string          `gorm:"type:varchar(255);primaryKey"`
	Position  int             `gorm:"primaryKey"`
	BookID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title     string          `gorm:"type:varchar(300);not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (SaleLineModel) TableName() string {
	return "sale_lines"
}

// ToDomain converts the persistence model to a domain Sale aggregate.
func (m *SaleModel) ToDomain() *sales.Sale {
	// Stored tax ids were validated on the way in
	taxID, _ := valueobject.ParseTaxID(m.CustomerTaxID)

	root := shared.NewBaseAggregateRoot()
	root.Version = m.Version
	s := &sales.Sale{
		BaseAggregateRoot: root,
		ID:                m.ID,
		Customer: sales.Customer{
			ID:      m.CustomerID,
			Name:    m.CustomerName,
			TaxID:   taxID,
			Email:   m.CustomerEmail,
			Address: m.CustomerAddress,
		},
		Lines:         make([]sales.SaleLine, len(m.Lines)),
		Total:         toMoney(m.Total, m.Currency),
		PaymentMethod: sales.PaymentMethod(m.PaymentMethod),
		Kind:          sales.Kind(m.Kind),
		Status:        sales.Status(m.Status),
		CreatedAt:     m.CreatedAt,
		PaidAt:        m.PaidAt,
		ExpiredAt:     m.ExpiredAt,
	}
	for i, l := range m.Lines {
		s.Lines[i] = sales.SaleLine{
			BookID:    l.BookID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: toMoney(l.UnitPrice, m.Currency),
			LineTotal: toMoney(l.LineTotal, m.Currency),
		}
	}
	return s
}

// FromDomain populates the persistence model from a domain Sale aggregate.
func (m *SaleModel) FromDomain(s *sales.Sale) {
	m.ID = s.ID
	m.Version = s.Version
	m.CustomerID = s.Customer.ID
	m.CustomerName = s.Customer.Name
	m.CustomerTaxID = s.Customer.TaxID.Digits()
	m.CustomerEmail = s.Customer.Email
	m.CustomerAddress = s.Customer.Address
	m.Total = s.Total.Amount()
	m.Currency = string(s.Total.Currency())
	m.PaymentMethod = string(s.PaymentMethod)
	m.Kind = string(s.Kind)
	m.Status = string(s.Status)
	m.CreatedAt = s.CreatedAt
	m.PaidAt = s.PaidAt
	m.ExpiredAt = s.ExpiredAt
	m.Lines = make([]SaleLineModel, len(s.Lines))
	for i, l := range s.Lines {
		m.Lines[i] = SaleLineModel{
			SaleID:    s.ID,
			Position:  i,
			BookID:    l.BookID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Amount(),
			LineTotal: l.LineTotal.Amount(),
		}
	}
}

// SaleModelFromDomain creates a new persistence model from a domain Sale aggregate.
func SaleModelFromDomain(s *sales.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}
