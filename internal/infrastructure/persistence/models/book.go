package models

import (
	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// BookModel is the persistence model for the Book entity.
// available_quantity is guarded by a CHECK so no write path can oversell.
type BookModel struct {
	BaseModel
	Title             string          `gorm:"type:varchar(300);not null;index"`
	Author            string          `gorm:"type:varchar(200)"`
	ISBN              string          `gorm:"column:isbn;type:varchar(20)"`
	Price             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AvailableQuantity int             `gorm:"not null;default:0;check:chk_books_available_non_negative,available_quantity >= 0"`
}

// TableName returns the table name for GORM
func (BookModel) TableName() string {
	return "books"
}

// ToDomain converts the persistence model to a domain Book entity.
func (m *BookModel) ToDomain() *catalog.Book {
	return &catalog.Book{
		BaseEntity:        m.BaseModel.ToDomain(),
		Title:             m.Title,
		Author:            m.Author,
		ISBN:              m.ISBN,
		Price:             toMoney(m.Price, ""),
		AvailableQuantity: m.AvailableQuantity,
	}
}

// FromDomain populates the persistence model from a domain Book entity.
func (m *BookModel) FromDomain(b *catalog.Book) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.Title = b.Title
	m.Author = b.Author
	m.ISBN = b.ISBN
	m.Price = b.Price.Amount()
	m.AvailableQuantity = b.AvailableQuantity
}

// BookModelFromDomain creates a new persistence model from a domain Book entity.
func BookModelFromDomain(b *catalog.Book) *BookModel {
	m := &BookModel{}
	m.FromDomain(b)
	return m
}
