package event

import (
	"context"
	"errors"
	"testing"

	"github.com/biblioteca/backend/internal/infrastructure/cache"
	"github.com/biblioteca/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("redelivery of the same event is skipped", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		inner := newTestHandler("SalePaid")
		h := NewIdempotentHandler("documents", inner, store, zap.NewNop())

		event := newTestEvent("SalePaid", "cs_1")
		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, newTestEvent("SalePaid", "cs_1")))

		assert.Equal(t, 2, inner.count())
		assert.Equal(t, []string{"SalePaid"}, h.EventTypes())
	})

	t.Run("aggregate keys collapse re-raised events", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		inner := newTestHandler("SalePaid")
		h := NewIdempotentHandler("documents", inner, store, zap.NewNop(), WithKeyFunc(ByAggregate))

		require.NoError(t, h.Handle(ctx, newTestEvent("SalePaid", "cs_1")))
		require.NoError(t, h.Handle(ctx, newTestEvent("SalePaid", "cs_1")))
		require.NoError(t, h.Handle(ctx, newTestEvent("SalePaid", "cs_2")))

		assert.Equal(t, 2, inner.count())
	})

	t.Run("handlers sharing a store do not suppress each other", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		a, b := newTestHandler("SalePaid"), newTestHandler("SalePaid")
		event := newTestEvent("SalePaid", "cs_1")

		require.NoError(t, NewIdempotentHandler("documents", a, store, zap.NewNop()).Handle(ctx, event))
		require.NoError(t, NewIdempotentHandler("metrics", b, store, zap.NewNop()).Handle(ctx, event))

		assert.Equal(t, 1, a.count())
		assert.Equal(t, 1, b.count())
	})

	t.Run("failure releases the key for a retry", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		inner := newTestHandler("SalePaid")
		inner.err = errors.New("storage unavailable")
		h := NewIdempotentHandler("documents", inner, store, zap.NewNop())
		event := newTestEvent("SalePaid", "cs_1")

		assert.Error(t, h.Handle(ctx, event))
		inner.err = nil
		assert.NoError(t, h.Handle(ctx, event))
		assert.Equal(t, 2, inner.count())
	})

	t.Run("store outage processes anyway", func(t *testing.T) {
		store := new(testutil.MockIdempotencyStore)
		store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		inner := newTestHandler("SalePaid")
		h := NewIdempotentHandler("documents", inner, store, zap.NewNop())

		require.NoError(t, h.Handle(ctx, newTestEvent("SalePaid", "cs_1")))
		assert.Equal(t, 1, inner.count())
		store.AssertExpectations(t)
	})
}
