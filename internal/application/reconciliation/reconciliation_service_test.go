package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/biblioteca/backend/internal/application/transaction"
	"github.com/biblioteca/backend/internal/domain/cart"
	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reconcileFixture struct {
	service     *Service
	sales       *testutil.MockSaleRepository
	carts       *testutil.MockCartRepository
	ledger      *testutil.MockLedger
	provider    *testutil.MockPaymentProvider
	idempotency *testutil.MockIdempotencyStore
	publisher   *testutil.RecordingPublisher
	auditor     *testutil.RecordingAuditor
	book        *catalog.Book
	sale        *sales.Sale
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		sales:       new(testutil.MockSaleRepository),
		carts:       new(testutil.MockCartRepository),
		ledger:      new(testutil.MockLedger),
		provider:    new(testutil.MockPaymentProvider),
		idempotency: new(testutil.MockIdempotencyStore),
		publisher:   &testutil.RecordingPublisher{},
		auditor:     &testutil.RecordingAuditor{},
	}
	scope := transaction.NewNoOpScope(&transaction.StaticRepositories{
		CartRepo: f.carts,
		SaleRepo: f.sales,
		Ledger:   f.ledger,
	})
	f.service = NewService(ServiceDeps{
		Scope:       scope,
		Provider:    f.provider,
		Idempotency: f.idempotency,
		Publisher:   f.publisher,
		Auditor:     f.auditor,
		Logger:      zap.NewNop(),
	})

	book, err := catalog.NewBook("Dom Casmurro", "Machado de Assis", "", valueobject.MustMoneyBRL("10"), 5)
	require.NoError(t, err)
	f.book = book
	f.sale = newPendingSale(t, "cs_test_1", book, 2)
	return f
}

func newPendingSale(t *testing.T, id string, book *catalog.Book, qty int) *sales.Sale {
	t.Helper()
	taxID, err := valueobject.ParseTaxID("52998224725")
	require.NoError(t, err)
	line, err := sales.NewSaleLine(book.ID, book.Title, qty, book.Price)
	require.NoError(t, err)
	sale, err := sales.NewPendingSale(id, sales.Customer{
		ID:    uuid.New(),
		Name:  "Maria",
		TaxID: taxID,
		Email: "maria@example.com",
	}, []sales.SaleLine{line}, sales.PaymentMethodCard, sales.KindPurchase)
	require.NoError(t, err)
	sale.ClearDomainEvents()
	return sale
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("pending sale becomes paid and trims the cart", func(t *testing.T) {
		f := newReconcileFixture(t)
		c := cart.NewCart(f.sale.Customer.ID)
		require.NoError(t, c.AddLine(f.book, 3))

		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusPaid, mock.Anything).Return(true, nil)
		f.ledger.On("Reserve", ctx, f.book.ID, 2).Return(nil)
		f.carts.On("FindByCustomer", ctx, f.sale.Customer.ID).Return(c, nil)
		f.carts.On("Save", ctx, mock.MatchedBy(func(saved *cart.Cart) bool {
			return len(saved.Lines) == 1 && saved.Lines[0].Quantity == 1
		})).Return(nil)

		result, err := f.service.Reconcile(ctx, "cs_test_1", TriggerRedirect)
		require.NoError(t, err)
		assert.True(t, result.Transitioned)
		assert.False(t, result.AlreadyPaid)
		assert.Equal(t, sales.StatusPaid, result.Status)
		assert.Equal(t, []string{sales.EventTypeSalePaid}, f.publisher.EventTypes())
		assert.Equal(t, []shared.AuditAction{shared.AuditSalePaid}, f.auditor.Actions())
		f.ledger.AssertExpectations(t)
		f.carts.AssertExpectations(t)
	})

	t.Run("cart emptied by the purchase is deleted", func(t *testing.T) {
		f := newReconcileFixture(t)
		c := cart.NewCart(f.sale.Customer.ID)
		require.NoError(t, c.AddLine(f.book, 2))

		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusPaid, mock.Anything).Return(true, nil)
		f.ledger.On("Reserve", ctx, f.book.ID, 2).Return(nil)
		f.carts.On("FindByCustomer", ctx, f.sale.Customer.ID).Return(c, nil)
		f.carts.On("Delete", ctx, c.ID).Return(nil)

		_, err := f.service.Reconcile(ctx, "cs_test_1", TriggerWebhook)
		require.NoError(t, err)
		f.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("already paid sale is a no-op", func(t *testing.T) {
		f := newReconcileFixture(t)
		require.NoError(t, f.sale.MarkPaid(time.Now()))
		f.sale.ClearDomainEvents()
		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)

		result, err := f.service.Reconcile(ctx, "cs_test_1", TriggerRedirect)
		require.NoError(t, err)
		assert.True(t, result.AlreadyPaid)
		assert.False(t, result.Transitioned)
		assert.Empty(t, f.publisher.Events())
		f.sales.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.ledger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("losing the race to another reconciler does not reserve twice", func(t *testing.T) {
		f := newReconcileFixture(t)
		paid := newPendingSale(t, "cs_test_1", f.book, 2)
		require.NoError(t, paid.MarkPaid(time.Now()))

		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil).Once()
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusPaid, mock.Anything).Return(false, nil)
		f.sales.On("FindByID", ctx, "cs_test_1").Return(paid, nil).Once()

		result, err := f.service.Reconcile(ctx, "cs_test_1", TriggerWebhook)
		require.NoError(t, err)
		assert.True(t, result.AlreadyPaid)
		f.ledger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired sale is refused", func(t *testing.T) {
		f := newReconcileFixture(t)
		require.NoError(t, f.sale.MarkExpired(time.Now()))
		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)

		_, err := f.service.Reconcile(ctx, "cs_test_1", TriggerRedirect)
		assert.ErrorIs(t, err, sales.ErrSaleExpired)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.sales.On("FindByID", ctx, "cs_missing").Return(nil, shared.ErrNotFound)

		_, err := f.service.Reconcile(ctx, "cs_missing", TriggerRedirect)
		assert.ErrorIs(t, err, ErrSaleNotFound)
	})

	t.Run("insufficient stock aborts without events", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusPaid, mock.Anything).Return(true, nil)
		f.ledger.On("Reserve", ctx, f.book.ID, 2).Return(shared.ErrInsufficientStock)

		_, err := f.service.Reconcile(ctx, "cs_test_1", TriggerWebhook)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Empty(t, f.publisher.Events())
		assert.Empty(t, f.auditor.Actions())
		f.carts.AssertNotCalled(t, "FindByCustomer", mock.Anything, mock.Anything)
	})

	t.Run("concurrent cart edit does not fail the payment", func(t *testing.T) {
		f := newReconcileFixture(t)
		c := cart.NewCart(f.sale.Customer.ID)
		require.NoError(t, c.AddLine(f.book, 4))

		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusPaid, mock.Anything).Return(true, nil)
		f.ledger.On("Reserve", ctx, f.book.ID, 2).Return(nil)
		f.carts.On("FindByCustomer", ctx, f.sale.Customer.ID).Return(c, nil)
		f.carts.On("Save", ctx, mock.Anything).Return(shared.ErrConcurrentModification)

		result, err := f.service.Reconcile(ctx, "cs_test_1", TriggerRedirect)
		require.NoError(t, err)
		assert.True(t, result.Transitioned)
	})

	t.Run("missing cart is fine", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusPaid, mock.Anything).Return(true, nil)
		f.ledger.On("Reserve", ctx, f.book.ID, 2).Return(nil)
		f.carts.On("FindByCustomer", ctx, f.sale.Customer.ID).Return(nil, shared.ErrNotFound)

		result, err := f.service.Reconcile(ctx, "cs_test_1", TriggerRedirect)
		require.NoError(t, err)
		assert.True(t, result.Transitioned)
	})
}

func TestService_Reconcile_DelayedSettlement(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		method    sales.PaymentMethod
		trigger   Trigger
		wantPaid  bool
		wantDefer bool
	}{
		{"card redirect pays", sales.PaymentMethodCard, TriggerRedirect, true, false},
		{"boleto redirect waits for webhook", sales.PaymentMethodBoleto, TriggerRedirect, false, true},
		{"boleto webhook pays", sales.PaymentMethodBoleto, TriggerWebhook, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcileFixture(t)
			f.sale.PaymentMethod = tt.method
			f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
			f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusPaid, mock.Anything).Return(true, nil)
			f.ledger.On("Reserve", ctx, f.book.ID, 2).Return(nil)
			f.carts.On("FindByCustomer", ctx, f.sale.Customer.ID).Return(nil, shared.ErrNotFound)

			result, err := f.service.Reconcile(ctx, "cs_test_1", tt.trigger)

			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, result.Transitioned)
			assert.Equal(t, tt.wantDefer, result.Deferred)
			if tt.wantDefer {
				assert.Equal(t, sales.StatusPending, result.Status)
				assert.Equal(t, sales.StatusPending, f.sale.Status)
				f.sales.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				f.ledger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
				assert.Empty(t, f.publisher.Events())
			} else {
				assert.Equal(t, sales.StatusPaid, result.Status)
			}
		})
	}
}

func TestService_Expire(t *testing.T) {
	ctx := context.Background()

	t.Run("pending sale expires", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusExpired, mock.Anything).Return(true, nil)

		changed, err := f.service.Expire(ctx, "cs_test_1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{sales.EventTypeSaleExpired}, f.publisher.EventTypes())
	})

	t.Run("paid sale is never expired", func(t *testing.T) {
		f := newReconcileFixture(t)
		require.NoError(t, f.sale.MarkPaid(time.Now()))
		f.sale.ClearDomainEvents()
		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)

		changed, err := f.service.Expire(ctx, "cs_test_1")
		require.NoError(t, err)
		assert.False(t, changed)
		f.sales.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.sales.On("FindByID", ctx, "cs_test_1").Return(f.sale, nil)
		f.sales.On("TransitionStatus", ctx, "cs_test_1", sales.StatusPending, sales.StatusExpired, mock.Anything).
			Return(false, errors.New("connection reset"))

		_, err := f.service.Expire(ctx, "cs_test_1")
		assert.Error(t, err)
		assert.Empty(t, f.publisher.Events())
	})
}
