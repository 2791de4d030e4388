package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/infrastructure/persistence/models"
	"github.com/biblioteca/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSaleRepository_CreateAndFind(t *testing.T) {
	db := newRepositoryDB(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()
	a := seedBook(t, db, "Vidas Secas", "100.00", 5)
	b := seedBook(t, db, "O Cortiço", "3.45", 5)

	sale := newTestSale(t, "cs_test_1", uuid.New(), sales.PaymentMethodCard, fixtureTime, a, b)
	require.NoError(t, repo.Create(ctx, sale))

	got, err := repo.FindByID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, sales.StatusPending, got.Status)
	assert.Equal(t, "103.45", got.Total.StringFixed(2))
	assert.Equal(t, "529.982.247-25", got.Customer.TaxID.String())
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Vidas Secas", got.Lines[0].Title)
	assert.Equal(t, "3.45", got.Lines[1].LineTotal.StringFixed(2))

	t.Run("duplicate session id", func(t *testing.T) {
		dup := newTestSale(t, "cs_test_1", uuid.New(), sales.PaymentMethodCard, fixtureTime, a)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("unknown session id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "cs_missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormSaleRepository_TransitionStatus(t *testing.T) {
	db := newRepositoryDB(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()
	book := seedBook(t, db, "Vidas Secas", "100.00", 5)
	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_cas", uuid.New(), sales.PaymentMethodCard, fixtureTime, book)))

	paidAt := fixtureTime.Add(time.Hour)
	moved, err := repo.TransitionStatus(ctx, "cs_cas", sales.StatusPending, sales.StatusPaid, paidAt)
	require.NoError(t, err)
	assert.True(t, moved)

	again, err := repo.TransitionStatus(ctx, "cs_cas", sales.StatusPending, sales.StatusPaid, paidAt)
	require.NoError(t, err)
	assert.False(t, again, "second transition must lose the compare-and-set")

	expired, err := repo.TransitionStatus(ctx, "cs_cas", sales.StatusPending, sales.StatusExpired, paidAt)
	require.NoError(t, err)
	assert.False(t, expired)

	got, err := repo.FindByID(ctx, "cs_cas")
	require.NoError(t, err)
	assert.Equal(t, sales.StatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(paidAt))
	assert.Nil(t, got.ExpiredAt)
}

func TestGormSaleRepository_PaidSnapshotSurvivesCatalogChanges(t *testing.T) {
	tests := []struct {
		name       string
		kind       sales.Kind
		wantUnits  []string
		wantTotals []string
		wantTotal  string
	}{
		{
			name:       "purchase",
			kind:       sales.KindPurchase,
			wantUnits:  []string{"12.34", "7.89", "0.99"},
			wantTotals: []string{"12.34", "15.78", "2.97"},
			wantTotal:  "31.09",
		},
		{
			name:       "rental with non-round prices",
			kind:       sales.KindRental,
			wantUnits:  []string{"1.23", "0.79", "0.10"},
			wantTotals: []string{"1.23", "1.58", "0.30"},
			wantTotal:  "3.11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newRepositoryDB(t)
			repo := NewGormSaleRepository(db)
			ctx := context.Background()
			books := []*catalog.Book{
				seedBook(t, db, "Iracema", "12.34", 10),
				seedBook(t, db, "Macunaíma", "7.89", 10),
				seedBook(t, db, "Quincas Borba", "0.99", 10),
			}

			lines := make([]sales.SaleLine, 0, len(books))
			for i, b := range books {
				price := b.Price
				if tt.kind == sales.KindRental {
					price = price.ApplyRental()
				}
				line, err := sales.NewSaleLine(b.ID, b.Title, i+1, price)
				require.NoError(t, err)
				lines = append(lines, line)
			}
			taxID, err := valueobject.ParseTaxID("529.982.247-25")
			require.NoError(t, err)
			sale, err := sales.NewPendingSale("cs_snapshot", sales.Customer{
				ID:    uuid.New(),
				Name:  "Maria Silva",
				TaxID: taxID,
				Email: "maria@example.com",
			}, lines, sales.PaymentMethodCard, tt.kind)
			require.NoError(t, err)
			sale.CreatedAt = fixtureTime
			require.NoError(t, repo.Create(ctx, sale))

			moved, err := repo.TransitionStatus(ctx, "cs_snapshot", sales.StatusPending, sales.StatusPaid, fixtureTime.Add(time.Minute))
			require.NoError(t, err)
			require.True(t, moved)

			for _, b := range books {
				require.NoError(t, db.Model(&models.BookModel{}).Where("id = ?", b.ID).
					Update("price", decimal.RequireFromString("999.99")).Error)
			}

			got, err := repo.FindByID(ctx, "cs_snapshot")
			require.NoError(t, err)
			assert.Equal(t, sales.StatusPaid, got.Status)
			assert.Equal(t, tt.kind, got.Kind)
			assert.True(t, got.Total.Amount().Equal(decimal.RequireFromString(tt.wantTotal)), "total %s", got.Total)
			require.Len(t, got.Lines, 3)
			for i, line := range got.Lines {
				assert.Equal(t, books[i].Title, line.Title)
				assert.Equal(t, i+1, line.Quantity)
				assert.True(t, line.UnitPrice.Amount().Equal(decimal.RequireFromString(tt.wantUnits[i])), "unit %d: %s", i, line.UnitPrice)
				assert.True(t, line.LineTotal.Amount().Equal(decimal.RequireFromString(tt.wantTotals[i])), "line %d: %s", i, line.LineTotal)
			}
		})
	}
}

func TestGormSaleRepository_TransitionStatement(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormSaleRepository(mockDB.DB)
	at := fixtureTime

	mockDB.Mock.ExpectExec(`UPDATE "sales" SET "expired_at"=\$1,"status"=\$2,"version"=version \+ 1 WHERE id = \$3 AND status = \$4`).
		WithArgs(at, "EXPIRED", "cs_1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.TransitionStatus(context.Background(), "cs_1", sales.StatusPending, sales.StatusExpired, at)
	require.NoError(t, err)
	assert.True(t, moved)
	mockDB.ExpectationsWereMet(t)
}

func TestGormSaleRepository_FindPendingCreatedBefore(t *testing.T) {
	db := newRepositoryDB(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()
	book := seedBook(t, db, "Vidas Secas", "100.00", 5)

	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_old_1", uuid.New(), sales.PaymentMethodCard, fixtureTime.Add(-48*time.Hour), book)))
	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_old_2", uuid.New(), sales.PaymentMethodCard, fixtureTime.Add(-30*time.Hour), book)))
	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_new", uuid.New(), sales.PaymentMethodCard, fixtureTime.Add(-time.Hour), book)))
	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_paid", uuid.New(), sales.PaymentMethodCard, fixtureTime.Add(-72*time.Hour), book)))
	_, err := repo.TransitionStatus(ctx, "cs_paid", sales.StatusPending, sales.StatusPaid, fixtureTime)
	require.NoError(t, err)

	cutoff := fixtureTime.Add(-24 * time.Hour)
	stale, err := repo.FindPendingCreatedBefore(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "cs_old_1", stale[0].ID)
	assert.Equal(t, "cs_old_2", stale[1].ID)
	assert.Len(t, stale[0].Lines, 1)

	limited, err := repo.FindPendingCreatedBefore(ctx, cutoff, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormSaleRepository_ListAndSummary(t *testing.T) {
	db := newRepositoryDB(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()
	cheap := seedBook(t, db, "Cheap", "10.00", 50)
	pricey := seedBook(t, db, "Pricey", "90.00", 50)
	customer := uuid.New()

	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_a", customer, sales.PaymentMethodCard, fixtureTime.Add(-3*time.Hour), cheap)))
	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_b", customer, sales.PaymentMethodBoleto, fixtureTime.Add(-2*time.Hour), pricey)))
	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_c", uuid.New(), sales.PaymentMethodCard, fixtureTime.Add(-time.Hour), cheap, pricey)))
	require.NoError(t, repo.Create(ctx, newTestSale(t, "cs_d", uuid.New(), sales.PaymentMethodCard, fixtureTime, cheap)))

	_, err := repo.TransitionStatus(ctx, "cs_a", sales.StatusPending, sales.StatusPaid, fixtureTime)
	require.NoError(t, err)
	_, err = repo.TransitionStatus(ctx, "cs_b", sales.StatusPending, sales.StatusPaid, fixtureTime)
	require.NoError(t, err)
	_, err = repo.TransitionStatus(ctx, "cs_c", sales.StatusPending, sales.StatusExpired, fixtureTime)
	require.NoError(t, err)

	t.Run("lists newest first with the total count", func(t *testing.T) {
		list, total, err := repo.List(ctx, sales.SaleFilter{Filter: shared.Filter{Page: 1, PageSize: 2}})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, list, 2)
		assert.Equal(t, "cs_d", list[0].ID)
		assert.Equal(t, "cs_c", list[1].ID)
		assert.Len(t, list[1].Lines, 2)
	})

	t.Run("filters by customer and status", func(t *testing.T) {
		list, total, err := repo.List(ctx, sales.SaleFilter{CustomerID: &customer, Status: sales.StatusPaid})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 2)
	})

	t.Run("filters by creation window", func(t *testing.T) {
		from := fixtureTime.Add(-150 * time.Minute)
		to := fixtureTime.Add(-30 * time.Minute)
		list, _, err := repo.List(ctx, sales.SaleFilter{From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "cs_c", list[0].ID)
		assert.Equal(t, "cs_b", list[1].ID)
	})

	t.Run("summarises counts, revenue and payment methods", func(t *testing.T) {
		summary, err := repo.Summary(ctx, sales.SaleFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.PaidCount)
		assert.Equal(t, int64(1), summary.PendingCount)
		assert.Equal(t, int64(1), summary.ExpiredCount)
		assert.Equal(t, "100.00", summary.Revenue.StringFixed(2))
		assert.Equal(t, int64(1), summary.ByPaymentMethod[sales.PaymentMethodCard])
		assert.Equal(t, int64(1), summary.ByPaymentMethod[sales.PaymentMethodBoleto])
	})

	t.Run("empty ledger summary", func(t *testing.T) {
		nobody := uuid.New()
		summary, err := repo.Summary(ctx, sales.SaleFilter{CustomerID: &nobody})
		require.NoError(t, err)
		assert.Zero(t, summary.PaidCount)
		assert.True(t, summary.Revenue.IsZero())
		assert.Empty(t, summary.ByPaymentMethod)
	})
}
