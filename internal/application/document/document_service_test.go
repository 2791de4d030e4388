package document

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

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

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectMissing
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, sale *sales.Sale, kind Kind) ([]byte, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []byte("%PDF " + string(kind) + " " + sale.ID), nil
}

func paidSale(t *testing.T, customer uuid.UUID) *sales.Sale {
	t.Helper()
	taxID, err := valueobject.ParseTaxID("52998224725")
	require.NoError(t, err)
	line, err := sales.NewSaleLine(uuid.New(), "Memórias Póstumas", 1, valueobject.MustMoneyBRL("42.00"))
	require.NoError(t, err)
	sale, err := sales.NewPendingSale("cs_test_doc", sales.Customer{ID: customer, Name: "João", TaxID: taxID},
		[]sales.SaleLine{line}, sales.PaymentMethodCard, sales.KindPurchase)
	require.NoError(t, err)
	require.NoError(t, sale.MarkPaid(time.Now()))
	return sale
}

func newTestService(repo sales.SaleRepository, gen Generator, store Store, idem shared.IdempotencyStore) *Service {
	return NewService(ServiceDeps{
		SaleRepo:    repo,
		Generator:   gen,
		Store:       store,
		Idempotency: idem,
		Logger:      zap.NewNop(),
	})
}

func TestService_IssueAll(t *testing.T) {
	ctx := context.Background()

	t.Run("stores invoice and receipt once", func(t *testing.T) {
		store := newMemStore()
		gen := &fakeGenerator{}
		idem := new(testutil.MockIdempotencyStore)
		idem.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(true, nil)
		svc := newTestService(nil, gen, store, idem)
		sale := paidSale(t, uuid.New())

		require.NoError(t, svc.IssueAll(ctx, sale))
		require.NoError(t, svc.IssueAll(ctx, sale))

		assert.Equal(t, 2, gen.calls)
		assert.Contains(t, store.objects, "sales/cs_test_doc/invoice.pdf")
		assert.Contains(t, store.objects, "sales/cs_test_doc/receipt.pdf")
	})

	t.Run("pending sale gets no documents", func(t *testing.T) {
		svc := newTestService(nil, &fakeGenerator{}, newMemStore(), nil)
		sale := paidSale(t, uuid.New())
		sale.Status = sales.StatusPending

		assert.ErrorIs(t, svc.Issue(ctx, sale, KindInvoice), ErrDocumentNotIssued)
	})

	t.Run("failure releases the lock", func(t *testing.T) {
		idem := new(testutil.MockIdempotencyStore)
		idem.On("MarkProcessed", ctx, "document:sales/cs_test_doc/invoice.pdf", mock.Anything).Return(true, nil)
		idem.On("Forget", mock.Anything, "document:sales/cs_test_doc/invoice.pdf").Return(nil)
		svc := newTestService(nil, &fakeGenerator{err: errors.New("chrome crashed")}, newMemStore(), idem)

		err := svc.Issue(ctx, paidSale(t, uuid.New()), KindInvoice)
		assert.Error(t, err)
		idem.AssertExpectations(t)
	})

	t.Run("concurrent issue is skipped", func(t *testing.T) {
		gen := &fakeGenerator{}
		idem := new(testutil.MockIdempotencyStore)
		idem.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, nil)
		svc := newTestService(nil, gen, newMemStore(), idem)

		require.NoError(t, svc.Issue(ctx, paidSale(t, uuid.New()), KindReceipt))
		assert.Zero(t, gen.calls)
	})
}

func TestService_Download(t *testing.T) {
	ctx := context.Background()
	customer := uuid.New()

	t.Run("generates on demand and caches", func(t *testing.T) {
		repo := new(testutil.MockSaleRepository)
		sale := paidSale(t, customer)
		repo.On("FindByID", ctx, sale.ID).Return(sale, nil)
		store := newMemStore()
		gen := &fakeGenerator{}
		svc := newTestService(repo, gen, store, nil)

		body, err := svc.Download(ctx, &customer, sale.ID, KindReceipt)
		require.NoError(t, err)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "%PDF RECEIPT cs_test_doc", string(data))

		_, err = svc.Download(ctx, &customer, sale.ID, KindReceipt)
		require.NoError(t, err)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("other customer", func(t *testing.T) {
		repo := new(testutil.MockSaleRepository)
		sale := paidSale(t, uuid.New())
		repo.On("FindByID", ctx, sale.ID).Return(sale, nil)
		svc := newTestService(repo, &fakeGenerator{}, newMemStore(), nil)

		_, err := svc.Download(ctx, &customer, sale.ID, KindInvoice)
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("unpaid sale", func(t *testing.T) {
		repo := new(testutil.MockSaleRepository)
		sale := paidSale(t, customer)
		sale.Status = sales.StatusExpired
		repo.On("FindByID", ctx, sale.ID).Return(sale, nil)
		svc := newTestService(repo, &fakeGenerator{}, newMemStore(), nil)

		_, err := svc.Download(ctx, &customer, sale.ID, KindInvoice)
		assert.ErrorIs(t, err, ErrDocumentNotIssued)
	})
}

func TestSalePaidHandler_Handle(t *testing.T) {
	ctx := context.Background()
	repo := new(testutil.MockSaleRepository)
	sale := paidSale(t, uuid.New())
	repo.On("FindByID", ctx, sale.ID).Return(sale, nil)
	store := newMemStore()
	handler := NewSalePaidHandler(repo, newTestService(repo, &fakeGenerator{}, store, nil), nil)

	require.NoError(t, handler.Handle(ctx, sales.NewSalePaidEvent(sale)))
	assert.Len(t, store.objects, 2)

	t.Run("storage failure never fails the event", func(t *testing.T) {
		broken := newMemStore()
		broken.putErr = errors.New("bucket unavailable")
		h := NewSalePaidHandler(repo, newTestService(repo, &fakeGenerator{}, broken, nil), nil)
		assert.NoError(t, h.Handle(ctx, sales.NewSalePaidEvent(sale)))
	})
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("invoice")
	require.NoError(t, err)
	assert.Equal(t, KindInvoice, k)

	_, err = ParseKind("contract")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
