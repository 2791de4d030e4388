package printing

import (
	"testing"
	"time"

	"github.com/biblioteca/backend/internal/application/document"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSaleDocumentData(t *testing.T) {
	issuer := Issuer{Name: "Biblioteca Central", TaxID: "12.345.678/0001-90"}

	t.Run("purchase", func(t *testing.T) {
		sale := newPaidSale(t, sales.KindPurchase)
		data := NewSaleDocumentData(sale, document.KindInvoice, issuer, 7)

		assert.Equal(t, "Nota Fiscal", data.Title)
		assert.Equal(t, sale.ID, data.Number)
		assert.Equal(t, "529.982.247-25", data.Customer.TaxID)
		assert.Equal(t, "Boleto Bancário", data.PaymentMethod)
		assert.Equal(t, "Compra", data.SaleKind)
		assert.False(t, data.IsRental)
		assert.Nil(t, data.ReturnBy)
		assert.Equal(t, 3, data.ItemCount)
		require.Len(t, data.Lines, 2)
		assert.Equal(t, 1, data.Lines[0].Position)
		assert.Equal(t, "2000.50", data.Lines[0].LineTotal.StringFixed(2))
		assert.Equal(t, "2040.40", data.Total.StringFixed(2))
		assert.Equal(t, issuer, data.Issuer)
	})

	t.Run("rental carries the return-by date", func(t *testing.T) {
		sale := newPaidSale(t, sales.KindRental)
		data := NewSaleDocumentData(sale, document.KindReceipt, issuer, 7)

		assert.Equal(t, "Recibo", data.Title)
		assert.Equal(t, "Aluguel", data.SaleKind)
		require.NotNil(t, data.ReturnBy)
		assert.Equal(t, paidAt.AddDate(0, 0, 7), *data.ReturnBy)
		assert.Equal(t, time.March, data.ReturnBy.Month())
	})
}
