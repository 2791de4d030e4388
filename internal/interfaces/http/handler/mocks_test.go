package handler

import (
	"context"
	"io"

	cartapp "github.com/biblioteca/backend/internal/application/cart"
	catalogapp "github.com/biblioteca/backend/internal/application/catalog"
	checkoutapp "github.com/biblioteca/backend/internal/application/checkout"
	documentapp "github.com/biblioteca/backend/internal/application/document"
	loanapp "github.com/biblioteca/backend/internal/application/loan"
	reconapp "github.com/biblioteca/backend/internal/application/reconciliation"
	salesapp "github.com/biblioteca/backend/internal/application/sales"
	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockCartService struct{ mock.Mock }

func (m *mockCartService) Get(ctx context.Context, customerID uuid.UUID) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartapp.CartResponse), args.Error(1)
}

func (m *mockCartService) AddBook(ctx context.Context, customerID uuid.UUID, req cartapp.AddBookRequest) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartapp.CartResponse), args.Error(1)
}

func (m *mockCartService) RemoveBook(ctx context.Context, customerID uuid.UUID, req cartapp.RemoveBookRequest) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartapp.CartResponse), args.Error(1)
}

func (m *mockCartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	return m.Called(ctx, customerID).Error(0)
}

type mockBroker struct{ mock.Mock }

func (m *mockBroker) Checkout(ctx context.Context, customerID uuid.UUID, req checkoutapp.CheckoutRequest) (*checkoutapp.CheckoutResponse, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkoutapp.CheckoutResponse), args.Error(1)
}

type mockReconciler struct{ mock.Mock }

func (m *mockReconciler) Reconcile(ctx context.Context, sessionID string, trigger reconapp.Trigger) (*reconapp.Result, error) {
	args := m.Called(ctx, sessionID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconapp.Result), args.Error(1)
}

func (m *mockReconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) (*reconapp.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconapp.WebhookResult), args.Error(1)
}

type mockSaleQueries struct{ mock.Mock }

func (m *mockSaleQueries) List(ctx context.Context, customerID *uuid.UUID, filter salesapp.SaleListFilter) ([]salesapp.SaleResponse, int64, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]salesapp.SaleResponse), args.Get(1).(int64), args.Error(2)
}

func (m *mockSaleQueries) Get(ctx context.Context, customerID *uuid.UUID, id string) (*salesapp.SaleResponse, error) {
	args := m.Called(ctx, customerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SaleResponse), args.Error(1)
}

func (m *mockSaleQueries) Summary(ctx context.Context, customerID *uuid.UUID, filter salesapp.SaleListFilter) (*salesapp.SummaryResponse, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SummaryResponse), args.Error(1)
}

type mockDownloader struct{ mock.Mock }

func (m *mockDownloader) Download(ctx context.Context, customerID *uuid.UUID, saleID string, kind documentapp.Kind) (io.ReadCloser, error) {
	args := m.Called(ctx, customerID, saleID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

type mockLoanService struct{ mock.Mock }

func (m *mockLoanService) Eligibility(ctx context.Context, userID uuid.UUID) (loan.Eligibility, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(loan.Eligibility), args.Error(1)
}

func (m *mockLoanService) CreateLoan(ctx context.Context, userID uuid.UUID, req loanapp.CreateLoanRequest) (*loanapp.LoanResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loanapp.LoanResponse), args.Error(1)
}

func (m *mockLoanService) fine(args mock.Arguments) (*loanapp.FineResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loanapp.FineResponse), args.Error(1)
}

func (m *mockLoanService) ReturnLoan(ctx context.Context, userID, loanID uuid.UUID) (*loanapp.FineResponse, error) {
	return m.fine(m.Called(ctx, userID, loanID))
}

func (m *mockLoanService) ReceiveReturn(ctx context.Context, staffID, loanID uuid.UUID) (*loanapp.FineResponse, error) {
	return m.fine(m.Called(ctx, staffID, loanID))
}

func (m *mockLoanService) GetFine(ctx context.Context, userID, loanID uuid.UUID) (*loanapp.FineResponse, error) {
	return m.fine(m.Called(ctx, userID, loanID))
}

func (m *mockLoanService) SettleFine(ctx context.Context, userID, loanID uuid.UUID) (*loanapp.FineResponse, error) {
	return m.fine(m.Called(ctx, userID, loanID))
}

func (m *mockLoanService) ListLoans(ctx context.Context, userID uuid.UUID) ([]loanapp.LoanResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]loanapp.LoanResponse), args.Error(1)
}

func (m *mockLoanService) ListOverdue(ctx context.Context) ([]loanapp.LoanResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]loanapp.LoanResponse), args.Error(1)
}

func (m *mockLoanService) FineBalance(ctx context.Context, userID uuid.UUID) (*loanapp.FineBalanceResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loanapp.FineBalanceResponse), args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.BookResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.BookResponse), args.Error(1)
}

func (m *mockCatalog) List(ctx context.Context, filter catalogapp.BookListFilter) ([]catalogapp.BookResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]catalogapp.BookResponse), args.Get(1).(int64), args.Error(2)
}

var (
	_ CartService        = (*mockCartService)(nil)
	_ CheckoutBroker     = (*mockBroker)(nil)
	_ Reconciler         = (*mockReconciler)(nil)
	_ SaleQueries        = (*mockSaleQueries)(nil)
	_ DocumentDownloader = (*mockDownloader)(nil)
	_ LoanService        = (*mockLoanService)(nil)
	_ BookCatalog        = (*mockCatalog)(nil)
)
