package printing

import (
	"testing"
	"time"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var paidAt = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func newPaidSale(t *testing.T, kind sales.Kind) *sales.Sale {
	t.Helper()
	taxID, err := valueobject.ParseTaxID("529.982.247-25")
	require.NoError(t, err)

	l1, err := sales.NewSaleLine(uuid.MustParse("6f1c2a9e-0000-4000-8000-00000000a001"), "Dom Casmurro", 2, valueobject.MustMoneyBRL("1000.25"))
	require.NoError(t, err)
	l2, err := sales.NewSaleLine(uuid.MustParse("6f1c2a9e-0000-4000-8000-00000000a002"), "Memórias Póstumas <de> Brás Cubas", 1, valueobject.MustMoneyBRL("39.90"))
	require.NoError(t, err)

	sale, err := sales.NewPendingSale("cs_test_abc12345", sales.Customer{
		ID:      uuid.New(),
		Name:    "Maria Silva",
		TaxID:   taxID,
		Email:   "maria@example.com",
		Address: "Rua das Flores, 10",
	}, []sales.SaleLine{l1, l2}, sales.PaymentMethodBoleto, kind)
	require.NoError(t, err)
	sale.CreatedAt = paidAt.Add(-time.Hour)
	require.NoError(t, sale.MarkPaid(paidAt))
	return sale
}
