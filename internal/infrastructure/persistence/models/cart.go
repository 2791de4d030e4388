package models

import (
	"github.com/biblioteca/backend/internal/domain/cart"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartModel is the persistence model for the Cart aggregate root.
type CartModel struct {
	AggregateModel
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Lines      []CartLineModel `gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartLineModel is one book snapshot inside a cart
type CartLineModel struct {
	CartID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Position  int             `gorm:"not null"`
	Title     string          `gorm:"type:varchar(300);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity  int             `gorm:"not null;check:chk_cart_lines_quantity_positive,quantity > 0"`
}

// TableName returns the table name for GORM
func (CartLineModel) TableName() string {
	return "cart_lines"
}

// ToDomain converts the persistence model to a domain Cart aggregate.
// Lines are expected in position order.
func (m *CartModel) ToDomain() *cart.Cart {
	c := &cart.Cart{
		BaseEntity:        m.BaseModel.ToDomain(),
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		Lines:             make([]cart.CartLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		c.Lines[i] = cart.CartLine{
			BookID:    l.BookID,
			Title:     l.Title,
			UnitPrice: toMoney(l.UnitPrice, ""),
			Quantity:  l.Quantity,
		}
	}
	return c
}

// FromDomain populates the persistence model from a domain Cart aggregate.
func (m *CartModel) FromDomain(c *cart.Cart) {
	m.FromDomainAggregate(c.BaseEntity, c.BaseAggregateRoot)
	m.CustomerID = c.CustomerID
	m.Lines = CartLineModelsFromDomain(c)
}

// CartLineModelsFromDomain maps the lines of a cart, preserving order
func CartLineModelsFromDomain(c *cart.Cart) []CartLineModel {
	lines := make([]CartLineModel, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = CartLineModel{
			CartID:    c.ID,
			BookID:    l.BookID,
			Position:  i,
			Title:     l.Title,
			UnitPrice: l.UnitPrice.Amount(),
			Quantity:  l.Quantity,
		}
	}
	return lines
}

// CartModelFromDomain creates a new persistence model from a domain Cart aggregate.
func CartModelFromDomain(c *cart.Cart) *CartModel {
	m := &CartModel{}
	m.FromDomain(c)
	return m
}
