package loan

import (
	"testing"
	"time"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoan(t *testing.T, now time.Time) *Loan {
	t.Helper()
	book, err := catalog.NewBook("O Alienista", "Machado de Assis", "", valueobject.MustMoneyBRL("150.00"), 2)
	require.NoError(t, err)
	l, err := NewLoan(uuid.New(), book, DefaultPolicy(), now)
	require.NoError(t, err)
	return l
}

func TestNewLoan(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	l := newTestLoan(t, now)

	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, now.AddDate(0, 0, 7), l.DueDate)
	assert.Equal(t, "15.00", l.LoanValue.StringFixed(2))
	assert.Nil(t, l.ReturnDate)
	assert.Nil(t, l.FrozenFine)

	t.Run("rejects nil book", func(t *testing.T) {
		_, err := NewLoan(uuid.New(), nil, DefaultPolicy(), now)
		assert.Error(t, err)
	})
}

func TestLoan_LiveFine(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	l := newTestLoan(t, now)
	rate := DefaultPolicy().PenaltyRate

	assert.True(t, l.Fine(l.DueDate, rate).IsZero())
	assert.False(t, l.IsOverdue(l.DueDate))

	dayAfter := l.DueDate.AddDate(0, 0, 1)
	assert.Equal(t, "1.50", l.Fine(dayAfter, rate).StringFixed(2))
	assert.True(t, l.IsOverdue(dayAfter))

	assert.Equal(t, "3.00", l.Fine(dayAfter.AddDate(0, 0, 1), rate).StringFixed(2))
}

func TestLoan_Return(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rate := DefaultPolicy().PenaltyRate

	t.Run("freezes the fine", func(t *testing.T) {
		l := newTestLoan(t, now)
		returnedAt := l.DueDate.AddDate(0, 0, 3)

		fine, err := l.Return(returnedAt, rate)
		require.NoError(t, err)

		assert.Equal(t, "4.50", fine.StringFixed(2))
		assert.Equal(t, StatusReturned, l.Status)
		assert.Equal(t, returnedAt, *l.ReturnDate)
		assert.Equal(t, "4.50", l.Fine(returnedAt.AddDate(0, 1, 0), rate).StringFixed(2))
		assert.False(t, l.IsOverdue(returnedAt.AddDate(0, 1, 0)))
	})

	t.Run("second return fails", func(t *testing.T) {
		l := newTestLoan(t, now)
		_, err := l.Return(now, rate)
		require.NoError(t, err)

		_, err = l.Return(now, rate)
		assert.ErrorIs(t, err, ErrAlreadyReturned)
	})
}

func TestLoan_SettleFine(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rate := DefaultPolicy().PenaltyRate

	t.Run("active loan cannot be settled", func(t *testing.T) {
		l := newTestLoan(t, now)
		_, err := l.SettleFine(now)
		assert.Error(t, err)
	})

	t.Run("on-time return has nothing to settle", func(t *testing.T) {
		l := newTestLoan(t, now)
		_, err := l.Return(now, rate)
		require.NoError(t, err)

		_, err = l.SettleFine(now)
		assert.ErrorIs(t, err, ErrNoFineDue)
	})

	t.Run("settles the frozen fine once", func(t *testing.T) {
		l := newTestLoan(t, now)
		_, err := l.Return(l.DueDate.AddDate(0, 0, 2), rate)
		require.NoError(t, err)
		assert.Equal(t, "3.00", l.UnpaidFine().StringFixed(2))

		paid, err := l.SettleFine(now)
		require.NoError(t, err)
		assert.Equal(t, "3.00", paid.StringFixed(2))
		assert.True(t, l.UnpaidFine().IsZero())

		_, err = l.SettleFine(now)
		assert.ErrorIs(t, err, ErrNoFineDue)
	})
}

func TestPolicy_Evaluate(t *testing.T) {
	p := DefaultPolicy()
	zero := valueobject.Zero(valueobject.BRL)

	tests := []struct {
		name     string
		snapshot BorrowerSnapshot
		eligible bool
		reason   string
	}{
		{"clean borrower", BorrowerSnapshot{ActiveLoans: 2, UnpaidFines: zero}, true, ""},
		{"at the cap", BorrowerSnapshot{ActiveLoans: 3, UnpaidFines: zero}, false, ReasonLimitReached},
		{"overdue wins over cap", BorrowerSnapshot{ActiveLoans: 3, OverdueLoans: 1, UnpaidFines: zero}, false, ReasonOverdue},
		{"unpaid fines", BorrowerSnapshot{ActiveLoans: 0, UnpaidFines: valueobject.MustMoneyBRL("0.01")}, false, ReasonUnpaidFines},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Evaluate(tt.snapshot)
			assert.Equal(t, tt.eligible, got.Eligible)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.eligible {
				assert.NoError(t, got.Error())
			} else {
				assert.Error(t, got.Error())
			}
		})
	}
}
