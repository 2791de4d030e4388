package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/inventory"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type gaugeRecorder struct{ values []int }

func (g *gaugeRecorder) RecordLowStock(_ context.Context, count int) {
	g.values = append(g.values, count)
}

type alertRecorder struct {
	alerts []StockAlert
	err    error
}

func (a *alertRecorder) SendAlert(_ context.Context, alert StockAlert) error {
	a.alerts = append(a.alerts, alert)
	return a.err
}

func book(t *testing.T, title string, qty int) *catalog.Book {
	t.Helper()
	b, err := catalog.NewBook(title, "", "", valueobject.MustMoneyBRL("20"), qty)
	require.NoError(t, err)
	return b
}

func TestLowStockMonitor_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("reports and publishes books below threshold", func(t *testing.T) {
		repo := new(testutil.MockBookRepository)
		publisher := &testutil.RecordingPublisher{}
		gauge := &gaugeRecorder{}
		monitor := NewLowStockMonitor(repo, publisher, 0, zap.NewNop()).WithGauge(gauge)

		repo.On("FindLowStock", ctx, DefaultLowStockThreshold).
			Return([]*catalog.Book{book(t, "Macunaíma", 4), book(t, "O Cortiço", 0)}, nil)

		stats, err := monitor.Check(ctx)
		require.NoError(t, err)
		assert.Len(t, stats.Items, 2)
		assert.Equal(t, []int{2}, gauge.values)
		assert.Equal(t, []string{inventory.EventTypeLowStockDetected}, publisher.EventTypes())
	})

	t.Run("nothing low publishes nothing", func(t *testing.T) {
		repo := new(testutil.MockBookRepository)
		publisher := &testutil.RecordingPublisher{}
		monitor := NewLowStockMonitor(repo, publisher, 3, nil)
		repo.On("FindLowStock", ctx, 3).Return([]*catalog.Book{}, nil)

		stats, err := monitor.Check(ctx)
		require.NoError(t, err)
		assert.Empty(t, stats.Items)
		assert.Empty(t, publisher.Events())
	})

	t.Run("query failure", func(t *testing.T) {
		repo := new(testutil.MockBookRepository)
		monitor := NewLowStockMonitor(repo, nil, 3, nil)
		repo.On("FindLowStock", ctx, 3).Return(nil, errors.New("boom"))

		_, err := monitor.Check(ctx)
		assert.Error(t, err)
	})
}

func TestLowStockHandler_Handle(t *testing.T) {
	ctx := context.Background()
	low := book(t, "Macunaíma", 4)
	out := book(t, "O Cortiço", 0)
	event := inventory.NewLowStockDetectedEvent(5, []inventory.LowStockItem{
		{BookID: low.ID, Title: low.Title, Available: 4},
		{BookID: out.ID, Title: out.Title, Available: 0},
	})

	t.Run("alerts per book", func(t *testing.T) {
		notifier := &alertRecorder{}
		handler := NewLowStockHandler(zap.NewNop()).WithNotifier(notifier)

		require.NoError(t, handler.Handle(ctx, event))
		require.Len(t, notifier.alerts, 2)
		assert.Equal(t, "low_stock", notifier.alerts[0].AlertType)
		assert.Equal(t, "out_of_stock", notifier.alerts[1].AlertType)
		assert.Equal(t, 5, notifier.alerts[1].Threshold)
	})

	t.Run("notifier failure is swallowed", func(t *testing.T) {
		handler := NewLowStockHandler(nil).WithNotifier(&alertRecorder{err: errors.New("smtp down")})
		assert.NoError(t, handler.Handle(ctx, event))
	})

	t.Run("rejects other events", func(t *testing.T) {
		handler := NewLowStockHandler(nil)
		other := shared.NewBaseDomainEvent("Other", "X", "1")
		assert.Error(t, handler.Handle(ctx, &other))
	})
}
