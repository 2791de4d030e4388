package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBookRepository implements catalog.BookRepository using GORM
type GormBookRepository struct {
	db *gorm.DB
}

// NewGormBookRepository creates a new GormBookRepository
func NewGormBookRepository(db *gorm.DB) *GormBookRepository {
	return &GormBookRepository{db: db}
}

// FindByID finds a book by its ID
func (r *GormBookRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var model models.BookModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the books with the given IDs. Unknown IDs are skipped.
func (r *GormBookRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Book, error) {
	if len(ids) == 0 {
		return []*catalog.Book{}, nil
	}
	var rows []models.BookModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("title ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBooks(rows), nil
}

// List returns a page of books matching the filter and the total count
func (r *GormBookRepository) List(ctx context.Context, filter catalog.BookFilter) ([]*catalog.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BookModel{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR isbn LIKE ?", pattern, pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BookModel
	if err := applyPaging(query, filter.Filter, BookSortFields, "title").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toBooks(rows), total, nil
}

// FindLowStock returns books whose available quantity is at or below the
// threshold, scarcest first
func (r *GormBookRepository) FindLowStock(ctx context.Context, threshold int) ([]*catalog.Book, error) {
	var rows []models.BookModel
	if err := r.db.WithContext(ctx).
		Where("available_quantity <= ?", threshold).
		Order("available_quantity ASC, title ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBooks(rows), nil
}

// Create inserts a new book
func (r *GormBookRepository) Create(ctx context.Context, book *catalog.Book) error {
	return r.db.WithContext(ctx).Create(models.BookModelFromDomain(book)).Error
}

func toBooks(rows []models.BookModel) []*catalog.Book {
	books := make([]*catalog.Book, len(rows))
	for i := range rows {
		books[i] = rows[i].ToDomain()
	}
	return books
}

// Ensure GormBookRepository implements BookRepository
var _ catalog.BookRepository = (*GormBookRepository)(nil)
