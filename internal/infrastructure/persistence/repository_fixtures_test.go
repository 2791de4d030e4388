package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/infrastructure/persistence/models"
	"github.com/biblioteca/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixtureTime is a fixed UTC instant; SQLite compares stored times as text,
// so fixtures stay in one location with whole seconds.
var fixtureTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newRepositoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t, models.All()...)
}

func seedBook(t *testing.T, db *gorm.DB, title, price string, qty int) *catalog.Book {
	t.Helper()
	book, err := catalog.NewBook(title, "Autor", "978-0000000000", valueobject.MustMoneyBRL(price), qty)
	require.NoError(t, err)
	require.NoError(t, NewGormBookRepository(db).Create(context.Background(), book))
	return book
}

func newTestSale(t *testing.T, sessionID string, customerID uuid.UUID, method sales.PaymentMethod, createdAt time.Time, books ...*catalog.Book) *sales.Sale {
	t.Helper()
	taxID, err := valueobject.ParseTaxID("529.982.247-25")
	require.NoError(t, err)

	lines := make([]sales.SaleLine, 0, len(books))
	for _, b := range books {
		line, err := sales.NewSaleLine(b.ID, b.Title, 1, b.Price)
		require.NoError(t, err)
		lines = append(lines, line)
	}
	sale, err := sales.NewPendingSale(sessionID, sales.Customer{
		ID:    customerID,
		Name:  "Maria Silva",
		TaxID: taxID,
		Email: "maria@example.com",
	}, lines, method, sales.KindPurchase)
	require.NoError(t, err)
	sale.CreatedAt = createdAt
	return sale
}
