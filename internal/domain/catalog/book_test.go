package catalog

import (
	"testing"

	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBook(t *testing.T) {
	t.Run("valid book", func(t *testing.T) {
		b, err := NewBook("  Quincas Borba ", "Machado de Assis", "978-85-359-0277-1", valueobject.MustMoneyBRL("42.90"), 4)
		require.NoError(t, err)
		assert.Equal(t, "Quincas Borba", b.Title)
		assert.True(t, b.HasStock(4))
		assert.False(t, b.HasStock(5))
		assert.Equal(t, "4.29", b.RentalValue().StringFixed(2))
		assert.Equal(t, b.ID.String(), b.AuditKey())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := NewBook("", "", "", valueobject.MustMoneyBRL("1"), 1)
		assert.Error(t, err)

		_, err = NewBook("T", "", "", valueobject.MustMoneyBRL("0"), 1)
		assert.Error(t, err)

		_, err = NewBook("T", "", "", valueobject.MustMoneyBRL("1"), -1)
		assert.Error(t, err)
	})
}
