package printing

import (
	"time"

	"github.com/biblioteca/backend/internal/application/document"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
)

// Issuer identifies the store on every document
type Issuer struct {
	Name    string
	TaxID   string
	Address string
}

// SaleDocumentData is the view model bound to invoice and receipt templates
type SaleDocumentData struct {
	Kind          document.Kind
	Title         string
	Number        string
	IssuedAt      time.Time
	PaidAt        *time.Time
	Issuer        Issuer
	Customer      CustomerData
	Lines         []LineData
	ItemCount     int
	Total         valueobject.Money
	PaymentMethod string
	SaleKind      string
	IsRental      bool
	// ReturnBy is set for rentals only
	ReturnBy *time.Time
}

// CustomerData is the buyer block of a document
type CustomerData struct {
	Name    string
	TaxID   string
	Email   string
	Address string
}

// LineData is one printed sale line
type LineData struct {
	Position  int
	Code      string
	Title     string
	Quantity  int
	UnitPrice valueobject.Money
	LineTotal valueobject.Money
}

var documentTitles = map[document.Kind]string{
	document.KindInvoice: "Nota Fiscal",
	document.KindReceipt: "Recibo",
}

var paymentMethodLabels = map[sales.PaymentMethod]string{
	sales.PaymentMethodCard:   "Cartão de Crédito",
	sales.PaymentMethodBoleto: "Boleto Bancário",
}

var saleKindLabels = map[sales.Kind]string{
	sales.KindPurchase: "Compra",
	sales.KindRental:   "Aluguel",
}

// NewSaleDocumentData maps a paid sale to the document view model. Rentals
// carry a return-by date loanPeriodDays after payment.
func NewSaleDocumentData(sale *sales.Sale, kind document.Kind, issuer Issuer, loanPeriodDays int) *SaleDocumentData {
	data := &SaleDocumentData{
		Kind:     kind,
		Title:    documentTitles[kind],
		Number:   sale.ID,
		IssuedAt: sale.CreatedAt,
		PaidAt:   sale.PaidAt,
		Issuer:   issuer,
		Customer: CustomerData{
			Name:    sale.Customer.Name,
			TaxID:   sale.Customer.TaxID.String(),
			Email:   sale.Customer.Email,
			Address: sale.Customer.Address,
		},
		Lines:         make([]LineData, 0, len(sale.Lines)),
		Total:         sale.Total,
		PaymentMethod: paymentMethodLabels[sale.PaymentMethod],
		SaleKind:      saleKindLabels[sale.Kind],
		IsRental:      sale.Kind == sales.KindRental,
	}

	for i, line := range sale.Lines {
		data.Lines = append(data.Lines, LineData{
			Position:  i + 1,
			Code:      line.BookID.String(),
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
		data.ItemCount += line.Quantity
	}

	if returnBy := sale.ReturnBy(loanPeriodDays); !returnBy.IsZero() {
		data.ReturnBy = &returnBy
	}
	return data
}
