package persistence

import (
	"testing"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/infrastructure/persistence/models"
	"github.com/biblioteca/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidateSortOrder(t *testing.T) {
	tests := map[string]string{
		"":                         "DESC",
		"asc":                      "ASC",
		"  ASC  ":                  "ASC",
		"desc":                     "DESC",
		"sideways":                 "DESC",
		"ASC; DROP TABLE books;--": "DESC",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, ValidateSortOrder(input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty falls back", "", "title"},
		{"whitelisted column", "price", "price"},
		{"surrounding whitespace trimmed", "  author ", "author"},
		{"case sensitive", "PRICE", "title"},
		{"unknown column", "password", "title"},
		{"injection", "price; DROP TABLE books;--", "title"},
		{"subquery", "id, (SELECT 1)", "title"},
		{"quote", "title'--", "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, BookSortFields, "title"))
		})
	}
}

func TestSortFieldsWhitelists(t *testing.T) {
	for name, whitelist := range map[string]map[string]bool{
		"books": BookSortFields,
		"sales": SaleSortFields,
		"loans": LoanSortFields,
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, whitelist["id"])
			assert.True(t, whitelist["created_at"])
		})
	}
	assert.True(t, SaleSortFields["paid_at"])
	assert.True(t, LoanSortFields["due_date"])
}

func TestApplyPaging(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	render := func(filter shared.Filter) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var rows []models.BookModel
			return applyPaging(tx.Model(&models.BookModel{}), filter, BookSortFields, "title").Find(&rows)
		})
	}

	t.Run("whitelisted order with id tiebreak and page window", func(t *testing.T) {
		sql := render(shared.Filter{Page: 3, PageSize: 10, OrderBy: "price", OrderDir: "asc"})
		assert.Contains(t, sql, "ORDER BY price ASC,id ASC")
		assert.Contains(t, sql, "LIMIT 10 OFFSET 20")
	})

	t.Run("unknown column falls back to default", func(t *testing.T) {
		sql := render(shared.Filter{OrderBy: "password"})
		assert.Contains(t, sql, "ORDER BY title DESC,id DESC")
		assert.NotContains(t, sql, "LIMIT")
	})

	t.Run("ordering by id adds no tiebreak", func(t *testing.T) {
		sql := render(shared.Filter{OrderBy: "id", OrderDir: "ASC", PageSize: 5})
		assert.Contains(t, sql, "ORDER BY id ASC LIMIT 5")
	})
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, shared.TotalPages(0, 20))
	assert.Equal(t, 1, shared.TotalPages(20, 20))
	assert.Equal(t, 2, shared.TotalPages(21, 20))
	assert.Equal(t, 0, shared.TotalPages(5, 0))
}
